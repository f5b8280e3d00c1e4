package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrCustomerNotFound means the identifier matched nobody. It does not
	// count against the attempt budget.
	ErrCustomerNotFound = errors.New("auth: customer not found")

	// ErrLockedOut is returned once the attempt budget is spent. The session
	// stays locked for its lifetime.
	ErrLockedOut = errors.New("auth: locked out")

	// ErrInvalidTransition is returned when an operation does not apply to
	// the current state.
	ErrInvalidTransition = errors.New("auth: invalid transition")

	// ErrUnknownFactor is returned for factors the identity record cannot answer.
	ErrUnknownFactor = errors.New("auth: unknown verification factor")
)

// VerificationError reports a wrong answer that left attempts remaining.
type VerificationError struct {
	Factor    Factor
	Remaining int
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("auth: %s verification failed, %d attempt(s) remaining", e.Factor, e.Remaining)
}
