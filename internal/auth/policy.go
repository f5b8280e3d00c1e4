package auth

import (
	"fmt"
	"strings"
	"time"
)

// Policy controls how many factors prove identity and how long it lasts.
type Policy struct {
	MaxAttempts     int
	RequiredFactors []Factor
	SessionWindow   time.Duration
}

// DefaultPolicy is single-factor SSN verification with three attempts and a
// thirty minute authenticated window.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		RequiredFactors: []Factor{FactorSSN},
		SessionWindow:   30 * time.Minute,
	}
}

// ParseFactors converts configured factor names, rejecting unknown ones.
func ParseFactors(names []string) ([]Factor, error) {
	out := make([]Factor, 0, len(names))
	for _, name := range names {
		f := Factor(strings.ToUpper(strings.TrimSpace(name)))
		switch f {
		case FactorSSN, FactorDOB:
			out = append(out, f)
		case "":
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownFactor, name)
		}
	}
	return out, nil
}

func (p Policy) normalized() Policy {
	def := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if len(p.RequiredFactors) == 0 {
		p.RequiredFactors = def.RequiredFactors
	}
	if p.SessionWindow <= 0 {
		p.SessionWindow = def.SessionWindow
	}
	return p
}
