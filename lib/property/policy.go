package property

// Policy is a tri-state flag of a property. Inherit defers to the default
// of the owning entity.
type Policy uint8

const (
	Inherit Policy = iota
	Enabled
	Disabled
)

// Resolve returns the effective value of p, falling back to def when p is Inherit.
func (p Policy) Resolve(def bool) bool {
	switch p {
	case Enabled:
		return true
	case Disabled:
		return false
	default:
		return def
	}
}

// PolicyOf converts a bool to Enabled or Disabled.
func PolicyOf(b bool) Policy {
	if b {
		return Enabled
	}
	return Disabled
}

func (p Policy) String() string {
	switch p {
	case Enabled:
		return "enabled"
	case Disabled:
		return "disabled"
	default:
		return "inherit"
	}
}
