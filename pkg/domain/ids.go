// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "dim/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing a SessionID where a ChallengeID is expected.
type (
	SessionID   uuid.UUID
	ChallengeID uuid.UUID
)

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseSessionID(s string) (SessionID, error) {
	id, err := parseUUID(s, "session ID")
	return SessionID(id), err
}

func ParseChallengeID(s string) (ChallengeID, error) {
	id, err := parseUUID(s, "challenge ID")
	return ChallengeID(id), err
}

func NewSessionID() SessionID     { return SessionID(uuid.New()) }
func NewChallengeID() ChallengeID { return ChallengeID(uuid.New()) }

func (id SessionID) String() string   { return uuid.UUID(id).String() }
func (id ChallengeID) String() string { return uuid.UUID(id).String() }

func (id SessionID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id ChallengeID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	if id == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return id, nil
}

func (id SessionID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id ChallengeID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *SessionID) UnmarshalText(b []byte) error {
	parsed, err := ParseSessionID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *ChallengeID) UnmarshalText(b []byte) error {
	parsed, err := ParseChallengeID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
