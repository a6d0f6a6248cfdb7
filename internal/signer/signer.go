// Package signer is the signing capability used by the agent.
//
// Callers only ever see the Signer interface: Address and Sign. Key material
// stays behind KeySigner (or any other implementation backed by an external key
// store). Signatures are 65-byte recoverable secp256k1 signatures (R || S || V)
// over the personal-message digest of the payload, so any party can recover the
// signing address with Recover.
package signer

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/sha3"

	"dim/pkg/domain"
)

// SignatureLength is the size of an R || S || V signature.
const SignatureLength = 65

// personalPrefix is prepended to every signed payload so that signatures
// cannot be replayed as raw transaction signatures.
const personalPrefix = "\x19Ethereum Signed Message:\n"

var (
	// ErrInvalidSignature is returned when a signature is malformed or no key can be recovered.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrSignerMismatch is returned when a signature recovers to an unexpected address.
	ErrSignerMismatch = errors.New("signer mismatch")
)

// Signer signs payloads on behalf of one address.
type Signer interface {
	Address() domain.Address
	Sign(ctx context.Context, payload []byte) ([]byte, error)
}

// Keccak256 hashes the concatenation of data.
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

// Keccak256Hex returns the 0x-prefixed hex keccak-256 digest of data.
func Keccak256Hex(data []byte) string {
	return "0x" + hex.EncodeToString(Keccak256(data))
}

// PersonalDigest returns the digest that is actually signed for payload.
func PersonalDigest(payload []byte) []byte {
	return Keccak256([]byte(personalPrefix+strconv.Itoa(len(payload))), payload)
}

// EncodeSignature renders a signature as 0x-prefixed hex.
func EncodeSignature(sig []byte) string {
	return "0x" + hex.EncodeToString(sig)
}

// DecodeSignature parses a 0x-prefixed hex signature.
func DecodeSignature(s string) ([]byte, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return nil, fmt.Errorf("decode signature: %w", ErrInvalidSignature)
	}
	if len(raw) != SignatureLength {
		return nil, fmt.Errorf("signature must be %d bytes: %w", SignatureLength, ErrInvalidSignature)
	}
	return raw, nil
}

// Verify recovers the signer of payload and compares it with expected.
func Verify(payload, sig []byte, expected domain.Address) error {
	recovered, err := Recover(payload, sig)
	if err != nil {
		return err
	}
	if !recovered.Equal(expected) {
		return ErrSignerMismatch
	}
	return nil
}
