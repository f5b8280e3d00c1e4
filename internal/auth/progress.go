package auth

import (
	"sort"
	"time"
)

// State is the persisted authentication status of a conversation.
type State string

const (
	StateAnonymous     State = "anonymous"
	StateVerifying     State = "verifying"
	StateAuthenticated State = "authenticated"
	StateLockedOut     State = "locked_out"
	StateExpired       State = "expired"
)

// Factor names a piece of knowledge the caller must prove.
type Factor string

const (
	FactorSSN Factor = "SSN" // last four digits of the social security number
	FactorDOB Factor = "DOB" // date of birth
)

// Progress is the serializable authentication record embedded in a session.
// Only Machine and its phases mutate it.
type Progress struct {
	State           State      `json:"state"`
	FailedAttempts  int        `json:"failed_attempts"`
	VerifiedFactors []Factor   `json:"verified_factors,omitempty"`
	IdentifyingInfo string     `json:"identifying_info,omitempty"`
	CustomerID      string     `json:"customer_id,omitempty"`
	CustomerName    string     `json:"customer_name,omitempty"`
	AuthenticatedAt *time.Time `json:"authenticated_at,omitempty"`
	SessionExpiry   *time.Time `json:"session_expiry,omitempty"`
}

// NewProgress returns an anonymous progress record.
func NewProgress() Progress {
	return Progress{State: StateAnonymous}
}

// HasFactor reports whether f was already verified.
func (p *Progress) HasFactor(f Factor) bool {
	for _, v := range p.VerifiedFactors {
		if v == f {
			return true
		}
	}
	return false
}

// IsAuthenticated reports a completed, unexpired authentication at now.
func (p *Progress) IsAuthenticated(now time.Time) bool {
	if p.State != StateAuthenticated {
		return false
	}
	return p.SessionExpiry == nil || now.Before(*p.SessionExpiry)
}

// InFlow reports whether the caller is part-way through proving identity.
func (p *Progress) InFlow() bool {
	switch p.State {
	case StateAnonymous, StateExpired, StateVerifying:
		return true
	}
	return false
}

func (p *Progress) addFactor(f Factor) {
	if p.HasFactor(f) {
		return
	}
	p.VerifiedFactors = append(p.VerifiedFactors, f)
	sort.Slice(p.VerifiedFactors, func(i, j int) bool { return p.VerifiedFactors[i] < p.VerifiedFactors[j] })
}

func (p *Progress) clearIdentity() {
	p.FailedAttempts = 0
	p.VerifiedFactors = nil
	p.IdentifyingInfo = ""
	p.CustomerID = ""
	p.CustomerName = ""
	p.AuthenticatedAt = nil
	p.SessionExpiry = nil
}
