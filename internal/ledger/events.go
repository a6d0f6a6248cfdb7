package ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dim/pkg/domain"
)

// EventKind names one of the ledger's event kinds.
type EventKind string

const (
	KindIdentityRegistered EventKind = "identity_registered"
	KindIssuerApproved     EventKind = "issuer_approved"
	KindIssuerRevoked      EventKind = "issuer_revoked"
	KindCredentialIssued   EventKind = "credential_issued"
	KindCredentialRevoked  EventKind = "credential_revoked"
	KindRequestCreated     EventKind = "request_created"
	KindRequestReviewed    EventKind = "request_reviewed"
)

// ErrUnknownEventKind is returned by DecodeEvent for kinds outside the closed set.
var ErrUnknownEventKind = errors.New("unknown ledger event kind")

// ErrMalformedEvent is returned by DecodeEvent when the payload does not match its kind.
var ErrMalformedEvent = errors.New("malformed ledger event")

// Event is the closed set of ledger events. Only types in this package implement it.
type Event interface {
	Kind() EventKind
	validate() error
}

type IdentityRegistered struct {
	Holder          domain.Address `json:"holder"`
	MetadataLocator domain.Locator `json:"metadata_locator"`
}

type IssuerApproved struct {
	Issuer domain.Address `json:"issuer"`
}

type IssuerRevoked struct {
	Issuer domain.Address `json:"issuer"`
}

type CredentialIssued struct {
	Ref         CredentialRef  `json:"ref"`
	Issuer      domain.Address `json:"issuer"`
	DataLocator domain.Locator `json:"data_locator"`
}

type CredentialRevoked struct {
	Ref    CredentialRef  `json:"ref"`
	Issuer domain.Address `json:"issuer"`
}

type RequestCreated struct {
	Ref         RequestRef     `json:"ref"`
	Requester   domain.Address `json:"requester"`
	DataLocator domain.Locator `json:"data_locator"`
}

type RequestReviewed struct {
	Ref       RequestRef     `json:"ref"`
	Requester domain.Address `json:"requester"`
	Approved  bool           `json:"approved"`
}

func (IdentityRegistered) Kind() EventKind { return KindIdentityRegistered }
func (IssuerApproved) Kind() EventKind     { return KindIssuerApproved }
func (IssuerRevoked) Kind() EventKind      { return KindIssuerRevoked }
func (CredentialIssued) Kind() EventKind   { return KindCredentialIssued }
func (CredentialRevoked) Kind() EventKind  { return KindCredentialRevoked }
func (RequestCreated) Kind() EventKind     { return KindRequestCreated }
func (RequestReviewed) Kind() EventKind    { return KindRequestReviewed }

func (e IdentityRegistered) validate() error {
	return requireAddresses(e.Holder)
}

func (e IssuerApproved) validate() error { return requireAddresses(e.Issuer) }
func (e IssuerRevoked) validate() error  { return requireAddresses(e.Issuer) }

func (e CredentialIssued) validate() error {
	if e.DataLocator.IsZero() {
		return fmt.Errorf("%w: missing data_locator", ErrMalformedEvent)
	}
	return requireAddresses(e.Ref.Holder, e.Issuer)
}

func (e CredentialRevoked) validate() error {
	return requireAddresses(e.Ref.Holder, e.Issuer)
}

func (e RequestCreated) validate() error {
	return requireAddresses(e.Ref.Issuer, e.Requester)
}

func (e RequestReviewed) validate() error {
	return requireAddresses(e.Ref.Issuer, e.Requester)
}

func requireAddresses(addrs ...domain.Address) error {
	for _, a := range addrs {
		if a.IsZero() {
			return fmt.Errorf("%w: missing address", ErrMalformedEvent)
		}
	}
	return nil
}

// Envelope carries one event with its position in the ledger's event log.
type Envelope struct {
	Sequence  uint64
	EmittedAt time.Time
	Event     Event
}

type wireEnvelope struct {
	Kind      EventKind       `json:"kind"`
	Sequence  uint64          `json:"sequence"`
	EmittedAt time.Time       `json:"emitted_at"`
	Payload   json.RawMessage `json:"payload"`
}

// EncodeEvent renders an envelope as {kind, sequence, emitted_at, payload}.
func EncodeEvent(env Envelope) ([]byte, error) {
	if env.Event == nil {
		return nil, fmt.Errorf("%w: nil event", ErrMalformedEvent)
	}
	payload, err := json.Marshal(env.Event)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", env.Event.Kind(), err)
	}
	return json.Marshal(wireEnvelope{
		Kind:      env.Event.Kind(),
		Sequence:  env.Sequence,
		EmittedAt: env.EmittedAt,
		Payload:   payload,
	})
}

// DecodeEvent parses an envelope. Unknown kinds, unknown payload fields and
// payloads missing their addresses are rejected.
func DecodeEvent(data []byte) (Envelope, error) {
	var wire wireEnvelope
	if err := json.Unmarshal(data, &wire); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	var ev Event
	var err error
	switch wire.Kind {
	case KindIdentityRegistered:
		ev, err = decodePayload[IdentityRegistered](wire.Payload)
	case KindIssuerApproved:
		ev, err = decodePayload[IssuerApproved](wire.Payload)
	case KindIssuerRevoked:
		ev, err = decodePayload[IssuerRevoked](wire.Payload)
	case KindCredentialIssued:
		ev, err = decodePayload[CredentialIssued](wire.Payload)
	case KindCredentialRevoked:
		ev, err = decodePayload[CredentialRevoked](wire.Payload)
	case KindRequestCreated:
		ev, err = decodePayload[RequestCreated](wire.Payload)
	case KindRequestReviewed:
		ev, err = decodePayload[RequestReviewed](wire.Payload)
	default:
		return Envelope{}, fmt.Errorf("%w: %q", ErrUnknownEventKind, wire.Kind)
	}
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Sequence: wire.Sequence, EmittedAt: wire.EmittedAt, Event: ev}, nil
}

func decodePayload[T Event](raw json.RawMessage) (Event, error) {
	var ev T
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedEvent)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&ev); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedEvent, ev.Kind(), err)
	}
	if err := ev.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", ev.Kind(), err)
	}
	return ev, nil
}
