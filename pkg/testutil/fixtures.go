package testutil

import (
	"dim/internal/signer"
	"dim/pkg/domain"
)

// TestKeys are fixed secp256k1 keys for deterministic test actors.
// They guard nothing and must never be used outside tests.
var TestKeys = struct {
	Admin    string
	Issuer   string
	Holder   string
	Stranger string
}{
	Admin:    "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318",
	Issuer:   "1111111111111111111111111111111111111111111111111111111111111111",
	Holder:   "2222222222222222222222222222222222222222222222222222222222222222",
	Stranger: "3333333333333333333333333333333333333333333333333333333333333333",
}

// Actors bundles a signer per role.
type Actors struct {
	Admin    *signer.KeySigner
	Issuer   *signer.KeySigner
	Holder   *signer.KeySigner
	Stranger *signer.KeySigner
}

// NewActors builds signers from TestKeys.
func NewActors() Actors {
	return Actors{
		Admin:    MustSigner(TestKeys.Admin),
		Issuer:   MustSigner(TestKeys.Issuer),
		Holder:   MustSigner(TestKeys.Holder),
		Stranger: MustSigner(TestKeys.Stranger),
	}
}

// MustSigner parses a hex key and panics on failure.
func MustSigner(hexKey string) *signer.KeySigner {
	s, err := signer.NewKeySigner(hexKey)
	if err != nil {
		panic(err)
	}
	return s
}

// AddressN returns a syntactically valid address whose last byte is n.
// Use it where no signature is involved.
func AddressN(n byte) domain.Address {
	raw := make([]byte, 20)
	raw[19] = n
	return domain.AddressFromBytes(raw)
}
