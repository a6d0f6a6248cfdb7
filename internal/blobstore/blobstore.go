// Package blobstore is the content-addressed store for large JSON payloads
// (identity metadata, request and credential data, consent backups).
//
// A locator is a pure function of content, so Put is idempotent and a
// retrieved blob can always be checked against its locator. Availability is
// eventual: a Put may succeed while Get keeps returning ErrNotFound for a while.
package blobstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-multihash"

	"dim/internal/sentinel"
	"dim/pkg/domain"
)

// Store is the blob store port.
//
// Error contract:
//   - Get returns sentinel.ErrNotFound when the content is not (yet) retrievable
//   - transport failures wrap sentinel.ErrUnavailable
type Store interface {
	Put(ctx context.Context, data []byte) (domain.Locator, error)
	Get(ctx context.Context, locator domain.Locator) ([]byte, error)
}

const locatorScheme = "ipfs://"

// LocatorFor derives the locator of data: ipfs:// followed by the base58btc
// multibase encoding of its sha2-256 multihash.
func LocatorFor(data []byte) domain.Locator {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		// sha2-256 is always registered
		panic(fmt.Sprintf("multihash sha2-256: %v", err))
	}
	enc, err := multibase.Encode(multibase.Base58BTC, mh)
	if err != nil {
		panic(fmt.Sprintf("multibase base58btc: %v", err))
	}
	return domain.Locator(locatorScheme + enc)
}

// ParseLocator validates a locator string.
func ParseLocator(s string) (domain.Locator, error) {
	if _, err := decodeLocator(s); err != nil {
		return "", err
	}
	return domain.Locator(s), nil
}

// ContentID returns the locator without its scheme, as used in gateway paths.
func ContentID(locator domain.Locator) string {
	return strings.TrimPrefix(string(locator), locatorScheme)
}

// LocatorFromContentID rebuilds a locator from a gateway path segment.
func LocatorFromContentID(cid string) (domain.Locator, error) {
	return ParseLocator(locatorScheme + cid)
}

// Verify checks that data hashes to locator.
func Verify(locator domain.Locator, data []byte) error {
	if LocatorFor(data) != locator {
		return fmt.Errorf("content does not match locator %s: %w", locator, sentinel.ErrInvalidState)
	}
	return nil
}

func decodeLocator(s string) (*multihash.DecodedMultihash, error) {
	cid, ok := strings.CutPrefix(s, locatorScheme)
	if !ok || cid == "" {
		return nil, fmt.Errorf("locator must start with %s: %w", locatorScheme, sentinel.ErrInvalidInput)
	}
	enc, raw, err := multibase.Decode(cid)
	if err != nil || enc != multibase.Base58BTC {
		return nil, fmt.Errorf("locator is not base58btc multibase: %w", sentinel.ErrInvalidInput)
	}
	decoded, err := multihash.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("locator is not a multihash: %w", sentinel.ErrInvalidInput)
	}
	if decoded.Code != multihash.SHA2_256 {
		return nil, fmt.Errorf("locator uses unsupported hash %s: %w", decoded.Name, sentinel.ErrInvalidInput)
	}
	return decoded, nil
}
