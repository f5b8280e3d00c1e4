package auth

import (
	"testing"
	"time"
)

func TestMatchSSN(t *testing.T) {
	tests := []struct {
		answer string
		want   bool
	}{
		{"1234", true},
		{" 12-34 ", true},
		{"123-45-1234", true},
		{"my last four are 1234", true},
		{"0000", false},
		{"12345", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := matchSSN("1234", tt.answer); got != tt.want {
			t.Fatalf("matchSSN(%q) = %v, want %v", tt.answer, got, tt.want)
		}
	}
}

func TestMatchDOBFormats(t *testing.T) {
	dob := time.Date(1985, time.March, 14, 0, 0, 0, 0, time.UTC)
	for _, answer := range []string{
		"1985-03-14",
		"03/14/1985",
		"3/14/1985",
		"03-14-1985",
		"March 14, 1985",
		"march 14 1985",
		"Mar 14, 1985",
		"14 March 1985",
		"19850314",
	} {
		if !matchDOB(dob, answer) {
			t.Fatalf("expected %q to match", answer)
		}
	}
	for _, answer := range []string{"1985-03-15", "14/03/1985", "yesterday", ""} {
		if matchDOB(dob, answer) {
			t.Fatalf("expected %q not to match", answer)
		}
	}
}
