package lockmgr

import (
	"github.com/google/uuid"
)

// generateOwnerID creates a new unique owner ID.
// The owner ID is a random (version 4) uuid.
func generateOwnerID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
