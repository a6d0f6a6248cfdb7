package signer

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/btcsuite/btcd/btcec"

	"dim/pkg/domain"
)

// recoveryOffset is the header byte offset used by compact signatures for
// uncompressed keys and by the V byte of R || S || V signatures.
const recoveryOffset = 27

// KeySigner signs with an in-process secp256k1 private key.
type KeySigner struct {
	key     *btcec.PrivateKey
	address domain.Address
}

// NewKeySigner loads a hex encoded 32-byte private key.
func NewKeySigner(hexKey string) (*KeySigner, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("decode signer key: %w", err)
	}
	if len(raw) != btcec.PrivKeyBytesLen {
		return nil, fmt.Errorf("signer key must be %d bytes, got %d", btcec.PrivKeyBytesLen, len(raw))
	}
	priv, pub := btcec.PrivKeyFromBytes(btcec.S256(), raw)
	return &KeySigner{key: priv, address: pubKeyToAddress(pub)}, nil
}

// GenerateKeySigner creates a signer with a fresh random key.
func GenerateKeySigner() (*KeySigner, error) {
	priv, err := btcec.NewPrivateKey(btcec.S256())
	if err != nil {
		return nil, fmt.Errorf("generate signer key: %w", err)
	}
	return &KeySigner{key: priv, address: pubKeyToAddress(priv.PubKey())}, nil
}

func (s *KeySigner) Address() domain.Address {
	return s.address
}

// Sign returns an R || S || V signature over the personal digest of payload.
func (s *KeySigner) Sign(ctx context.Context, payload []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	compact, err := btcec.SignCompact(btcec.S256(), s.key, PersonalDigest(payload), false)
	if err != nil {
		return nil, fmt.Errorf("sign payload: %w", err)
	}
	// compact is V || R || S
	sig := make([]byte, SignatureLength)
	copy(sig, compact[1:])
	sig[64] = compact[0]
	return sig, nil
}

// ExportHex returns the private key as hex. Only used by key tooling.
func (s *KeySigner) ExportHex() string {
	return hex.EncodeToString(s.key.Serialize())
}

// halfOrder bounds S: only the low-S form of a signature is accepted.
var halfOrder = new(big.Int).Rsh(btcec.S256().N, 1)

// Recover returns the address that produced sig over payload. It accepts
// exactly the encoding Sign emits: V of 27 or 28 and a low S value, so each
// signature has a single valid byte form.
func Recover(payload, sig []byte) (domain.Address, error) {
	if len(sig) != SignatureLength {
		return "", ErrInvalidSignature
	}
	v := sig[64]
	if v != recoveryOffset && v != recoveryOffset+1 {
		return "", ErrInvalidSignature
	}
	if sv := new(big.Int).SetBytes(sig[32:64]); sv.Sign() == 0 || sv.Cmp(halfOrder) > 0 {
		return "", ErrInvalidSignature
	}
	compact := make([]byte, SignatureLength)
	compact[0] = v
	copy(compact[1:], sig[:64])
	pub, _, err := btcec.RecoverCompact(btcec.S256(), compact, PersonalDigest(payload))
	if err != nil {
		return "", fmt.Errorf("recover signer: %w", ErrInvalidSignature)
	}
	return pubKeyToAddress(pub), nil
}

func pubKeyToAddress(pub *btcec.PublicKey) domain.Address {
	uncompressed := pub.SerializeUncompressed()
	return domain.AddressFromBytes(Keccak256(uncompressed[1:])[12:])
}

var _ Signer = (*KeySigner)(nil)
