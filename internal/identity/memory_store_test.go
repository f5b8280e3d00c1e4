package identity

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStoreLookupPrecedence(t *testing.T) {
	store := NewMemoryStore(DemoCustomers()...)
	ctx := context.Background()

	tests := []struct {
		name       string
		identifier string
		wantID     string
	}{
		{"short phone", "555-1234", "cust-1001"},
		{"formatted ten digit phone", "+1 312 555 0188", "cust-1002"},
		{"email is case-insensitive", "  SAM.RIVERA@example.COM ", "cust-1002"},
		{"account number", "acct 1001", "cust-1001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := store.FindByIdentifier(ctx, tt.identifier)
			if err != nil {
				t.Fatalf("lookup %q: %v", tt.identifier, err)
			}
			if rec.ID != tt.wantID {
				t.Fatalf("expected %s, got %s", tt.wantID, rec.ID)
			}
		})
	}
}

func TestMemoryStoreMisses(t *testing.T) {
	store := NewMemoryStore(DemoCustomers()...)
	for _, identifier := range []string{"", "1234", "nobody@example.com", "555-0000"} {
		if _, err := store.FindByIdentifier(context.Background(), identifier); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound for %q, got %v", identifier, err)
		}
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore(DemoCustomers()...)
	rec, err := store.FindByID(context.Background(), "cust-1001")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	rec.Name = "Mallory"
	rec.Statements[0].AmountCents = 1

	again, _ := store.FindByID(context.Background(), "cust-1001")
	if again.Name != "Jane Doe" || again.Statements[0].AmountCents == 1 {
		t.Fatalf("store state was mutated through a returned record")
	}
}
