package identity

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no customer matches an identifier.
var ErrNotFound = errors.New("identity: customer not found")

// Store looks up customers by what the caller tells us in conversation.
type Store interface {
	// FindByIdentifier tries phone, then email, then account number.
	FindByIdentifier(ctx context.Context, identifier string) (*CustomerRecord, error)
	FindByID(ctx context.Context, customerID string) (*CustomerRecord, error)
}

// Payment is a single payment posted to an account.
type Payment struct {
	AmountCents int64     `json:"amount_cents"`
	PaidAt      time.Time `json:"paid_at"`
	Method      string    `json:"method"`
}

// Statement is one billing period's invoice.
type Statement struct {
	Period      string    `json:"period"`
	IssuedAt    time.Time `json:"issued_at"`
	DueDate     time.Time `json:"due_date"`
	AmountCents int64     `json:"amount_cents"`
	Paid        bool      `json:"paid"`
}

// UsageReading is a meter read for one billing period.
type UsageReading struct {
	Period   string    `json:"period"`
	KWh      float64   `json:"kwh"`
	ReadType string    `json:"read_type"`
	ReadAt   time.Time `json:"read_at"`
}

// CustomerRecord carries everything the support core may read about a customer.
// Only SSNLast4 and DateOfBirth are used for verification; the rest feeds the
// account-data responder.
type CustomerRecord struct {
	ID             string
	Name           string
	Phone          string
	Email          string
	AccountNumber  string
	ServiceAddress string
	SSNLast4       string
	DateOfBirth    time.Time
	BalanceCents   int64
	DueDate        time.Time
	Autopay        bool
	MeterNumber    string
	ReadType       string // actual or estimated
	LastPayment    *Payment
	Statements     []Statement
	Usage          []UsageReading
}

// Clone returns a deep copy so callers cannot mutate store state.
func (c *CustomerRecord) Clone() *CustomerRecord {
	if c == nil {
		return nil
	}
	out := *c
	if c.LastPayment != nil {
		p := *c.LastPayment
		out.LastPayment = &p
	}
	out.Statements = append([]Statement(nil), c.Statements...)
	out.Usage = append([]UsageReading(nil), c.Usage...)
	return &out
}
