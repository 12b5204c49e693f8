package lockmgr

import (
	"context"
	"time"

	"github.com/ValentinKolb/trol/lib/backend"
	"github.com/ValentinKolb/trol/lib/common"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/redis/go-redis/v9"
)

var Logger = logger.GetLogger("lockmgr")

type lockMgrImpl struct {
	conn backend.Conn
}

// NewLockManager creates a lock provider on conn. It keeps no state besides
// the connection, so any number of managers may share one backend.
func NewLockManager(conn backend.Conn) ILockManager {
	return &lockMgrImpl{
		conn: conn,
	}
}

func (lm *lockMgrImpl) AcquireLock(ctx context.Context, key string, timeout time.Duration) (bool, string, error) {
	ownerID, err := generateOwnerID()
	if err != nil {
		return false, "", err
	}

	// SET NX is atomic: only one requester can create the key
	ok, err := lm.conn.SetNX(ctx, key, ownerID, timeout).Result()
	if err != nil {
		Logger.Warningf("acquiring lock %s failed: %v", key, err)
		return false, "", err
	}
	if !ok {
		return false, "", nil
	}
	Logger.Debugf("acquired lock %s", key)
	return true, ownerID, nil
}

func (lm *lockMgrImpl) ReleaseLock(ctx context.Context, key string, ownerID string) (bool, error) {
	released := false
	err := backend.Transaction(ctx, lm.conn, func(tx *redis.Tx) error {
		// Check if the lock exists
		value, err := tx.Get(ctx, key).Result()
		if backend.IsNil(err) {
			released = true
			return nil
		}
		if err != nil {
			return err
		}

		// Check if the lock is owned by us
		if value != ownerID {
			released = false
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Del(ctx, key)
			return nil
		})
		released = err == nil
		return err
	}, key)
	if err != nil {
		return false, err
	}
	if released {
		Logger.Debugf("released lock %s", key)
	}
	return released, nil
}

func (lm *lockMgrImpl) ExtendLock(ctx context.Context, key string, ownerID string, additional time.Duration) (bool, error) {
	extended := false
	err := backend.Transaction(ctx, lm.conn, func(tx *redis.Tx) error {
		value, err := tx.Get(ctx, key).Result()
		if backend.IsNil(err) {
			extended = false
			return nil
		}
		if err != nil {
			return err
		}
		if value != ownerID {
			extended = false
			return nil
		}

		ttl, err := tx.PTTL(ctx, key).Result()
		if err != nil {
			return err
		}
		if ttl < 0 {
			return common.Errorf(common.RetCPrecondition, "lock %s has no timeout and cannot be extended", key)
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.PExpire(ctx, key, ttl+additional)
			return nil
		})
		extended = err == nil
		return err
	}, key)
	if err != nil {
		return false, err
	}
	return extended, nil
}
