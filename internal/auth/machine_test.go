package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/billing-support-ai/internal/identity"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestMachine(t *testing.T, policy Policy) (*Machine, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, time.October, 18, 9, 0, 0, 0, time.UTC)}
	store := identity.NewMemoryStore(identity.DemoCustomers()...)
	return NewMachine(store, policy, WithClock(clock.Now)), clock
}

func lookedUp(t *testing.T, m *Machine, p *Progress) *Verifying {
	t.Helper()
	anon, ok := m.Resume(p).(*Anonymous)
	require.True(t, ok, "expected anonymous phase")
	v, err := anon.Lookup(context.Background(), "555-1234")
	require.NoError(t, err)
	return v
}

func TestLookupMovesToVerifying(t *testing.T) {
	m, _ := newTestMachine(t, DefaultPolicy())
	p := NewProgress()

	v := lookedUp(t, m, &p)

	assert.Equal(t, StateVerifying, p.State)
	assert.Equal(t, "cust-1001", p.CustomerID)
	assert.Equal(t, "Jane Doe", v.CustomerName())
	assert.Equal(t, "555-1234", p.IdentifyingInfo)
	assert.Equal(t, FactorSSN, v.NextFactor())
}

func TestLookupMissIsFree(t *testing.T) {
	m, _ := newTestMachine(t, DefaultPolicy())
	p := NewProgress()
	anon := m.Resume(&p).(*Anonymous)

	for i := 0; i < 5; i++ {
		_, err := anon.Lookup(context.Background(), "nobody@example.com")
		require.ErrorIs(t, err, ErrCustomerNotFound)
	}
	assert.Equal(t, StateAnonymous, p.State)
	assert.Zero(t, p.FailedAttempts)
}

func TestLockoutAfterThreeFailures(t *testing.T) {
	m, _ := newTestMachine(t, DefaultPolicy())
	p := NewProgress()
	v := lookedUp(t, m, &p)
	ctx := context.Background()

	err := v.Verify(ctx, FactorSSN, "0000")
	var verr *VerificationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, 2, verr.Remaining)

	err = v.Verify(ctx, FactorSSN, "1111")
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, 1, verr.Remaining)
	assert.Equal(t, StateVerifying, p.State)

	err = v.Verify(ctx, FactorSSN, "2222")
	require.ErrorIs(t, err, ErrLockedOut)
	assert.Equal(t, StateLockedOut, p.State)
	assert.Equal(t, 3, p.FailedAttempts)

	// A fourth answer, even a correct one, is rejected without changing anything.
	err = v.Verify(ctx, FactorSSN, "1234")
	require.ErrorIs(t, err, ErrLockedOut)
	assert.Equal(t, 3, p.FailedAttempts)
	assert.Empty(t, p.VerifiedFactors)

	locked, ok := m.Resume(&p).(*LockedOut)
	require.True(t, ok)
	assert.Equal(t, 3, locked.Attempts())
}

func TestVerifyThenComplete(t *testing.T) {
	m, clock := newTestMachine(t, DefaultPolicy())
	p := NewProgress()
	v := lookedUp(t, m, &p)

	require.NoError(t, v.Verify(context.Background(), FactorSSN, "1234"))
	require.True(t, v.Ready())

	authd, err := v.Complete()
	require.NoError(t, err)
	assert.Equal(t, StateAuthenticated, p.State)
	assert.Equal(t, "cust-1001", authd.CustomerID())
	assert.Equal(t, clock.Now().Add(30*time.Minute), authd.ExpiresAt())
	require.NotNil(t, p.AuthenticatedAt)
	assert.Equal(t, clock.Now(), *p.AuthenticatedAt)
}

func TestCompleteRequiresAllPolicyFactors(t *testing.T) {
	policy := DefaultPolicy()
	policy.RequiredFactors = []Factor{FactorSSN, FactorDOB}
	m, _ := newTestMachine(t, policy)
	p := NewProgress()
	v := lookedUp(t, m, &p)
	ctx := context.Background()

	require.NoError(t, v.Verify(ctx, FactorSSN, "1234"))
	assert.Equal(t, FactorDOB, v.NextFactor())
	_, err := v.Complete()
	require.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, v.Verify(ctx, FactorDOB, "March 14, 1985"))
	_, err = v.Complete()
	require.NoError(t, err)
	assert.Equal(t, []Factor{FactorDOB, FactorSSN}, p.VerifiedFactors)
}

func TestCompleteWithoutFactorsRejected(t *testing.T) {
	m, _ := newTestMachine(t, DefaultPolicy())
	p := NewProgress()
	v := lookedUp(t, m, &p)

	_, err := v.Complete()
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StateVerifying, p.State)
}

func TestExpiredSessionReturnsToAnonymous(t *testing.T) {
	m, clock := newTestMachine(t, DefaultPolicy())
	p := NewProgress()
	v := lookedUp(t, m, &p)
	require.NoError(t, v.Verify(context.Background(), FactorSSN, "1234"))
	_, err := v.Complete()
	require.NoError(t, err)

	clock.Advance(31 * time.Minute)

	anon, ok := m.Resume(&p).(*Anonymous)
	require.True(t, ok, "expected stale authentication to resume as anonymous")
	assert.Equal(t, StateExpired, p.State)
	assert.Empty(t, p.CustomerID)

	_, err = anon.Lookup(context.Background(), "jane.doe@example.com")
	require.NoError(t, err)
	assert.Equal(t, StateVerifying, p.State)
}

func TestUnknownFactorDoesNotConsumeAttempt(t *testing.T) {
	m, _ := newTestMachine(t, DefaultPolicy())
	p := NewProgress()
	v := lookedUp(t, m, &p)

	err := v.Verify(context.Background(), Factor("PIN"), "9999")
	require.ErrorIs(t, err, ErrUnknownFactor)
	assert.Zero(t, p.FailedAttempts)
}

func TestParseFactors(t *testing.T) {
	factors, err := ParseFactors([]string{"ssn", " DOB ", ""})
	require.NoError(t, err)
	assert.Equal(t, []Factor{FactorSSN, FactorDOB}, factors)

	_, err = ParseFactors([]string{"voiceprint"})
	require.ErrorIs(t, err, ErrUnknownFactor)
}
