package reconcile

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreRead is returned when the store cannot list its cards.
	// Nothing has been applied when this error is returned.
	ErrStoreRead = errors.New("failed to read store")

	// ErrMutationApply is returned when the store rejects a mutation or the
	// final commit. Mutations applied before the failure remain applied.
	ErrMutationApply = errors.New("failed to apply mutation")
)

// ApplyError reports the mutation that aborted a run.
//
//	var applyErr *reconcile.ApplyError
//	if errors.As(err, &applyErr) {
//	    fmt.Printf("stopped at %q after %d mutations\n", applyErr.Mutation.Front, applyErr.Applied)
//	}
type ApplyError struct {
	// Mutation is the rejected mutation. Zero for a failed commit.
	Mutation Mutation
	// Applied counts the mutations applied before the failure.
	Applied int
	// Err is the store's error.
	Err error
}

func (e *ApplyError) Error() string {
	if e.Mutation.Kind == KindSkip {
		return fmt.Sprintf("failed to commit after %d mutations: %v", e.Applied, e.Err)
	}
	return fmt.Sprintf("failed to apply %s for %q after %d mutations: %v",
		e.Mutation.Kind, e.Mutation.Front, e.Applied, e.Err)
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrMutationApply) match any ApplyError.
func (e *ApplyError) Is(target error) bool {
	return target == ErrMutationApply
}
