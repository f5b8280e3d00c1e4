package identity

import "time"

// DemoCustomers returns the fixture accounts used by local development and
// the end-to-end conversation tests.
func DemoCustomers() []CustomerRecord {
	return []CustomerRecord{
		{
			ID:             "cust-1001",
			Name:           "Jane Doe",
			Phone:          "555-1234",
			Email:          "jane.doe@example.com",
			AccountNumber:  "ACCT-1001",
			ServiceAddress: "12 Elm Street, Springfield",
			SSNLast4:       "1234",
			DateOfBirth:    time.Date(1985, time.March, 14, 0, 0, 0, 0, time.UTC),
			BalanceCents:   14257,
			DueDate:        time.Date(2026, time.November, 5, 0, 0, 0, 0, time.UTC),
			Autopay:        false,
			MeterNumber:    "MTR-88231",
			ReadType:       "actual",
			LastPayment: &Payment{
				AmountCents: 12011,
				PaidAt:      time.Date(2026, time.October, 2, 0, 0, 0, 0, time.UTC),
				Method:      "card",
			},
			Statements: []Statement{
				{Period: "2026-09", IssuedAt: time.Date(2026, time.September, 10, 0, 0, 0, 0, time.UTC), DueDate: time.Date(2026, time.October, 5, 0, 0, 0, 0, time.UTC), AmountCents: 12011, Paid: true},
				{Period: "2026-10", IssuedAt: time.Date(2026, time.October, 10, 0, 0, 0, 0, time.UTC), DueDate: time.Date(2026, time.November, 5, 0, 0, 0, 0, time.UTC), AmountCents: 14257, Paid: false},
			},
			Usage: []UsageReading{
				{Period: "2026-09", KWh: 612.4, ReadType: "actual", ReadAt: time.Date(2026, time.September, 8, 0, 0, 0, 0, time.UTC)},
				{Period: "2026-10", KWh: 731.9, ReadType: "actual", ReadAt: time.Date(2026, time.October, 8, 0, 0, 0, 0, time.UTC)},
			},
		},
		{
			ID:             "cust-1002",
			Name:           "Sam Rivera",
			Phone:          "(312) 555-0188",
			Email:          "Sam.Rivera@Example.com",
			AccountNumber:  "ACCT-1002",
			ServiceAddress: "400 Lake Shore Dr, Unit 9, Chicago",
			SSNLast4:       "9876",
			DateOfBirth:    time.Date(1990, time.July, 4, 0, 0, 0, 0, time.UTC),
			BalanceCents:   0,
			DueDate:        time.Date(2026, time.November, 12, 0, 0, 0, 0, time.UTC),
			Autopay:        true,
			MeterNumber:    "MTR-10442",
			ReadType:       "estimated",
			Usage: []UsageReading{
				{Period: "2026-10", KWh: 410.0, ReadType: "estimated", ReadAt: time.Date(2026, time.October, 15, 0, 0, 0, 0, time.UTC)},
			},
		},
	}
}
