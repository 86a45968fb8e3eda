package common

// Coalesce picks the first setting that was actually given. Descriptor and config
// fields use the zero value for "unset", so Coalesce(field, fallback) applies a default.
//
// Parameters:
//   - values: candidates in priority order
//
// Returns:
//   - T: the first non-zero candidate, or the zero value when none is set
func Coalesce[T comparable](values ...T) T {
	var unset T
	for _, v := range values {
		if v == unset {
			continue
		}
		return v
	}
	return unset
}
