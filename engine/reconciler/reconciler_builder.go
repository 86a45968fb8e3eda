package reconciler

// ReconcilerBuilderOption is a functional option for configuring a Reconciler.
type ReconcilerBuilderOption func(r *reconciler)

// WithPrecision sets the decimal places kept when keying placement and rotation.
//
// Parameters:
//   - decimals: decimal places kept (negative values are ignored)
//
// Returns:
//   - ReconcilerBuilderOption: option function to apply
func WithPrecision(decimals int) ReconcilerBuilderOption {
	return func(r *reconciler) {
		if decimals >= 0 {
			r.precision = decimals
		}
	}
}

// WithDebug logs every plan and duplicate key.
//
// Parameters:
//   - enabled: whether to log plans
//
// Returns:
//   - ReconcilerBuilderOption: option function to apply
func WithDebug(enabled bool) ReconcilerBuilderOption {
	return func(r *reconciler) {
		r.debug = enabled
	}
}
