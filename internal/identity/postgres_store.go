package identity

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
)

const customerColumns = `id, name, phone, email, account_number, service_address, ssn_last4,
	date_of_birth, balance_cents, due_date, autopay, meter_number, read_type,
	last_payment, statements, usage_history`

// PostgresStore reads customers from the billing system's customers table.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

// OpenPostgres opens a lib/pq connection pool for the identity store.
func OpenPostgres(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("identity: open postgres: %w", err)
	}
	return db, nil
}

// NewPostgresStore wraps an existing connection pool.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	if db == nil {
		panic("identity: db cannot be nil")
	}
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindByIdentifier(ctx context.Context, identifier string) (*CustomerRecord, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, ErrNotFound
	}

	lookups := []struct {
		where string
		value string
	}{
		{"phone_digits = $1", phoneCandidate(identifier)},
		{"lower(email) = $1", NormalizeEmail(identifier)},
		{"account_key = $1", NormalizeAccount(identifier)},
	}
	for _, l := range lookups {
		if l.value == "" {
			continue
		}
		rec, err := s.queryOne(ctx, l.where, l.value)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		return rec, err
	}
	return nil, ErrNotFound
}

func (s *PostgresStore) FindByID(ctx context.Context, customerID string) (*CustomerRecord, error) {
	return s.queryOne(ctx, "id = $1", customerID)
}

func (s *PostgresStore) queryOne(ctx context.Context, where, arg string) (*CustomerRecord, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE ` + where + ` LIMIT 1`

	var (
		rec                            CustomerRecord
		dueDate                        sql.NullTime
		meter, readType                sql.NullString
		lastPayment, statements, usage []byte
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&rec.ID, &rec.Name, &rec.Phone, &rec.Email, &rec.AccountNumber, &rec.ServiceAddress, &rec.SSNLast4,
		&rec.DateOfBirth, &rec.BalanceCents, &dueDate, &rec.Autopay, &meter, &readType,
		&lastPayment, &statements, &usage,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("identity: query customer: %w", err)
	}

	if dueDate.Valid {
		rec.DueDate = dueDate.Time
	}
	rec.MeterNumber = meter.String
	rec.ReadType = readType.String
	if len(lastPayment) > 0 && string(lastPayment) != "null" {
		var p Payment
		if err := json.Unmarshal(lastPayment, &p); err != nil {
			return nil, fmt.Errorf("identity: decode last payment: %w", err)
		}
		rec.LastPayment = &p
	}
	if len(statements) > 0 {
		if err := json.Unmarshal(statements, &rec.Statements); err != nil {
			return nil, fmt.Errorf("identity: decode statements: %w", err)
		}
	}
	if len(usage) > 0 {
		if err := json.Unmarshal(usage, &rec.Usage); err != nil {
			return nil, fmt.Errorf("identity: decode usage: %w", err)
		}
	}
	return &rec, nil
}

// Ping checks the connection for the readiness endpoint.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Upsert writes a customer with its lookup keys. Used to seed demo accounts.
func (s *PostgresStore) Upsert(ctx context.Context, rec CustomerRecord) error {
	if strings.TrimSpace(rec.ID) == "" {
		return fmt.Errorf("identity: customer id required")
	}
	var lastPayment []byte
	if rec.LastPayment != nil {
		b, err := json.Marshal(rec.LastPayment)
		if err != nil {
			return fmt.Errorf("identity: encode last payment: %w", err)
		}
		lastPayment = b
	}
	statements, err := json.Marshal(nonNil(rec.Statements))
	if err != nil {
		return fmt.Errorf("identity: encode statements: %w", err)
	}
	usage, err := json.Marshal(nonNil(rec.Usage))
	if err != nil {
		return fmt.Errorf("identity: encode usage: %w", err)
	}
	var dueDate sql.NullTime
	if !rec.DueDate.IsZero() {
		dueDate = sql.NullTime{Time: rec.DueDate, Valid: true}
	}

	query := `
		INSERT INTO customers (id, name, phone, phone_digits, email, account_number, account_key,
			service_address, ssn_last4, date_of_birth, balance_cents, due_date, autopay,
			meter_number, read_type, last_payment, statements, usage_history, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, phone = EXCLUDED.phone, phone_digits = EXCLUDED.phone_digits,
			email = EXCLUDED.email, account_number = EXCLUDED.account_number, account_key = EXCLUDED.account_key,
			service_address = EXCLUDED.service_address, ssn_last4 = EXCLUDED.ssn_last4,
			date_of_birth = EXCLUDED.date_of_birth, balance_cents = EXCLUDED.balance_cents,
			due_date = EXCLUDED.due_date, autopay = EXCLUDED.autopay, meter_number = EXCLUDED.meter_number,
			read_type = EXCLUDED.read_type, last_payment = EXCLUDED.last_payment,
			statements = EXCLUDED.statements, usage_history = EXCLUDED.usage_history, updated_at = NOW()
	`
	_, err = s.db.ExecContext(ctx, query,
		rec.ID, rec.Name, rec.Phone, NormalizePhone(rec.Phone), NormalizeEmail(rec.Email),
		rec.AccountNumber, NormalizeAccount(rec.AccountNumber), rec.ServiceAddress, rec.SSNLast4,
		rec.DateOfBirth, rec.BalanceCents, dueDate, rec.Autopay, nullString(rec.MeterNumber),
		nullString(rec.ReadType), lastPayment, statements, usage,
	)
	if err != nil {
		return fmt.Errorf("identity: upsert customer %s: %w", rec.ID, err)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
