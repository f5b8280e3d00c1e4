package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/billing-support-ai/internal/identity"
)

// Machine drives the in-band authentication flow for one Progress at a time.
// It is safe for concurrent use across sessions; callers serialize access to
// a given Progress.
type Machine struct {
	store  identity.Store
	policy Policy
	now    func() time.Time
}

// MachineOption configures a Machine.
type MachineOption func(*Machine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) MachineOption {
	return func(m *Machine) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMachine builds a state machine over the identity store.
func NewMachine(store identity.Store, policy Policy, opts ...MachineOption) *Machine {
	if store == nil {
		panic("auth: identity store cannot be nil")
	}
	m := &Machine{
		store:  store,
		policy: policy.normalized(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Policy returns the effective policy.
func (m *Machine) Policy() Policy {
	return m.policy
}

// Phase is the current authentication state together with the operations
// valid in it. Use a type switch on *Anonymous, *Verifying, *Authenticated
// and *LockedOut.
type Phase interface {
	State() State
}

// Resume returns the phase for p. A stale Authenticated record is moved to
// Expired first, which behaves like Anonymous.
func (m *Machine) Resume(p *Progress) Phase {
	switch p.State {
	case StateVerifying:
		return &Verifying{m: m, p: p}
	case StateAuthenticated:
		if !p.IsAuthenticated(m.now()) {
			m.expire(p)
			return &Anonymous{m: m, p: p}
		}
		return &Authenticated{p: p}
	case StateLockedOut:
		return &LockedOut{p: p}
	default:
		if p.State == "" {
			p.State = StateAnonymous
		}
		return &Anonymous{m: m, p: p}
	}
}

func (m *Machine) expire(p *Progress) {
	p.clearIdentity()
	p.State = StateExpired
}

// Anonymous accepts exactly one operation: identifying the caller.
type Anonymous struct {
	m *Machine
	p *Progress
}

func (a *Anonymous) State() State { return a.p.State }

// Lookup finds the caller by phone, email or account number and moves the
// flow to Verifying. A miss leaves the state untouched.
func (a *Anonymous) Lookup(ctx context.Context, identifier string) (*Verifying, error) {
	if a.p.State != StateAnonymous && a.p.State != StateExpired {
		return nil, fmt.Errorf("%w: lookup from %s", ErrInvalidTransition, a.p.State)
	}
	identifier = strings.TrimSpace(identifier)
	rec, err := a.m.store.FindByIdentifier(ctx, identifier)
	if errors.Is(err, identity.ErrNotFound) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("auth: lookup customer: %w", err)
	}

	a.p.clearIdentity()
	a.p.IdentifyingInfo = identifier
	a.p.CustomerID = rec.ID
	a.p.CustomerName = rec.Name
	a.p.State = StateVerifying
	return &Verifying{m: a.m, p: a.p}, nil
}

// Verifying checks knowledge factors for the identified customer.
type Verifying struct {
	m *Machine
	p *Progress
}

func (v *Verifying) State() State { return v.p.State }

// CustomerName returns the name of the identified customer.
func (v *Verifying) CustomerName() string { return v.p.CustomerName }

// NextFactor returns the next required factor not yet verified, or "" when
// the policy is satisfied.
func (v *Verifying) NextFactor() Factor {
	for _, f := range v.m.policy.RequiredFactors {
		if !v.p.HasFactor(f) {
			return f
		}
	}
	return ""
}

// Ready reports whether Complete would succeed.
func (v *Verifying) Ready() bool {
	return v.p.State == StateVerifying && len(v.p.VerifiedFactors) > 0 && v.NextFactor() == ""
}

// RemainingAttempts is how many wrong answers are left before lockout.
func (v *Verifying) RemainingAttempts() int {
	left := v.m.policy.MaxAttempts - v.p.FailedAttempts
	if left < 0 {
		return 0
	}
	return left
}

// Verify compares answer with the customer's value for factor. A wrong
// answer consumes an attempt and returns *VerificationError, or ErrLockedOut
// when it was the last one.
func (v *Verifying) Verify(ctx context.Context, factor Factor, answer string) error {
	if v.p.State == StateLockedOut {
		return ErrLockedOut
	}
	if v.p.State != StateVerifying {
		return fmt.Errorf("%w: verify from %s", ErrInvalidTransition, v.p.State)
	}

	rec, err := v.m.store.FindByID(ctx, v.p.CustomerID)
	if err != nil {
		return fmt.Errorf("auth: load customer: %w", err)
	}
	ok, err := matchFactor(rec, factor, answer)
	if err != nil {
		return err
	}
	if ok {
		v.p.addFactor(factor)
		return nil
	}

	v.p.FailedAttempts++
	if v.p.FailedAttempts >= v.m.policy.MaxAttempts {
		v.p.State = StateLockedOut
		return ErrLockedOut
	}
	return &VerificationError{Factor: factor, Remaining: v.RemainingAttempts()}
}

// Complete finishes the flow once the policy's factors are verified.
func (v *Verifying) Complete() (*Authenticated, error) {
	if v.p.State != StateVerifying {
		return nil, fmt.Errorf("%w: complete from %s", ErrInvalidTransition, v.p.State)
	}
	if !v.Ready() {
		return nil, fmt.Errorf("%w: factor %s not verified", ErrInvalidTransition, v.NextFactor())
	}
	now := v.m.now()
	expiry := now.Add(v.m.policy.SessionWindow)
	v.p.State = StateAuthenticated
	v.p.AuthenticatedAt = &now
	v.p.SessionExpiry = &expiry
	return &Authenticated{p: v.p}, nil
}

// Authenticated exposes the verified customer context.
type Authenticated struct {
	p *Progress
}

func (a *Authenticated) State() State         { return a.p.State }
func (a *Authenticated) CustomerID() string   { return a.p.CustomerID }
func (a *Authenticated) CustomerName() string { return a.p.CustomerName }

// ExpiresAt returns when the authenticated window closes.
func (a *Authenticated) ExpiresAt() time.Time {
	if a.p.SessionExpiry == nil {
		return time.Time{}
	}
	return *a.p.SessionExpiry
}

// LockedOut has no operations; the conversation must go to a human.
type LockedOut struct {
	p *Progress
}

func (l *LockedOut) State() State { return l.p.State }

// Attempts returns the number of failed answers recorded.
func (l *LockedOut) Attempts() int { return l.p.FailedAttempts }
