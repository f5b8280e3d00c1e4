package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wolfman30/billing-support-ai/internal/auth"
)

const codecVersion = 1

// ErrCorrupt marks a stored session that cannot be decoded. The Manager
// discards such records and starts over.
var ErrCorrupt = errors.New("session: corrupt record")

type envelope struct {
	Version int      `json:"v"`
	Session *Session `json:"session"`
}

// Encode serializes a session. The output is deterministic for equal input.
func Encode(s *Session) ([]byte, error) {
	if s == nil {
		return nil, errors.New("session: cannot encode nil session")
	}
	data, err := json.Marshal(envelope{Version: codecVersion, Session: s})
	if err != nil {
		return nil, fmt.Errorf("session: encode: %w", err)
	}
	return data, nil
}

// Decode parses a stored session, returning ErrCorrupt for anything that is
// not a well-formed record of the current version.
func Decode(data []byte) (*Session, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if env.Version != codecVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, env.Version)
	}
	s := env.Session
	if s == nil || s.ID == "" {
		return nil, fmt.Errorf("%w: missing session id", ErrCorrupt)
	}
	if err := validate(s); err != nil {
		return nil, err
	}
	if s.History == nil {
		s.History = []Message{}
	}
	return s, nil
}

func validate(s *Session) error {
	switch s.Auth.State {
	case auth.StateAnonymous, auth.StateVerifying, auth.StateAuthenticated, auth.StateLockedOut, auth.StateExpired:
	default:
		return fmt.Errorf("%w: unknown auth state %q", ErrCorrupt, s.Auth.State)
	}
	switch s.HandoffState {
	case HandoffNone, HandoffWaiting, HandoffActive:
	default:
		return fmt.Errorf("%w: unknown handoff state %q", ErrCorrupt, s.HandoffState)
	}
	if s.Auth.FailedAttempts < 0 {
		return fmt.Errorf("%w: negative attempt count", ErrCorrupt)
	}
	if s.Auth.State == auth.StateVerifying && s.Auth.CustomerID == "" {
		return fmt.Errorf("%w: verifying without customer", ErrCorrupt)
	}
	if s.InHandoff() && s.HandoffTicketID == "" {
		return fmt.Errorf("%w: handoff without ticket", ErrCorrupt)
	}
	return nil
}
