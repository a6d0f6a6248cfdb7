package domain

import (
	"encoding/hex"
	"strings"

	dErrors "dim/pkg/domain-errors"
)

// Address is a 20-byte account address rendered as 0x-prefixed lowercase hex.
// Parse at trust boundaries so that comparisons can use ==.
type Address string

const addressHexLen = 40

// ParseAddress validates and normalizes an account address.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "address cannot be empty")
	}
	body, ok := strings.CutPrefix(strings.ToLower(s), "0x")
	if !ok || len(body) != addressHexLen {
		return "", dErrors.New(dErrors.CodeInvalidInput, "address must be 0x followed by 40 hex characters")
	}
	if _, err := hex.DecodeString(body); err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "address must be hex encoded")
	}
	return Address("0x" + body), nil
}

// MustAddress parses s and panics on failure. Intended for constants and tests.
func MustAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AddressFromBytes renders a raw 20-byte address.
func AddressFromBytes(b []byte) Address {
	return Address("0x" + hex.EncodeToString(b))
}

// UnmarshalText normalizes addresses decoded from JSON. Empty input stays zero.
func (a *Address) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*a = ""
		return nil
	}
	parsed, err := ParseAddress(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func (a Address) String() string { return string(a) }

func (a Address) IsZero() bool { return a == "" }

// Equal compares addresses case-insensitively so unnormalized input still matches.
func (a Address) Equal(other Address) bool {
	return strings.EqualFold(string(a), string(other))
}

// Locator references content in the blob store. Locators are derived from
// content, so equal content always yields an equal locator.
type Locator string

func (l Locator) String() string { return string(l) }

func (l Locator) IsZero() bool { return l == "" }
