package store

// Page limits for delta reads.
const (
	DefaultPageLimit = 500
	MaxPageLimit     = 1000
)

// ClampLimit returns limit bounded to [1, max], substituting def for non-positive values.
func ClampLimit(limit, def, max int) int {
	if def <= 0 {
		def = DefaultPageLimit
	}
	if max <= 0 {
		max = MaxPageLimit
	}
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	return limit
}
