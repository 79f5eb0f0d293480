package retry

import "context"

// DoWithResultTyped is a type-safe generic wrapper around Retryer.DoWithResult.
// It eliminates the need for type assertions on the return value.
//
// Usage:
//
//	out, err := retry.DoWithResultTyped[*crews.CrewOutput](r, ctx, func() (*crews.CrewOutput, error) {
//	    return crew.Kickoff(ctx, inputs)
//	})
func DoWithResultTyped[T any](r Retryer, ctx context.Context, fn func() (T, error)) (T, error) {
	result, err := r.DoWithResult(ctx, func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	out, _ := result.(T)
	return out, nil
}
