// Package view is a read-through cache of ledger entities. The ledger stays
// authoritative; entries are dropped when the reconciler sees an event for
// them and otherwise expire after a short TTL.
package view

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	gosync "sync"
	"time"

	"golang.org/x/sync/singleflight"

	"dim/internal/ledger"
	"dim/internal/sentinel"
	"dim/pkg/domain"
	"dim/pkg/platform/sync"
)

// DefaultTTL bounds staleness when no event arrives.
const DefaultTTL = 30 * time.Second

const (
	entityIdentity       = "identity"
	entityIssuer         = "issuer"
	entityCredentials    = "credentials"
	entityRequests       = "requests"
	entityHolderRequests = "holder_requests"
)

// View serves ledger reads from a Cache and falls back to the ledger on a miss.
// Cache failures degrade to direct ledger reads.
type View struct {
	ledger ledger.Reader
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger

	flights  singleflight.Group
	locks    *sync.ShardedMutex
	mu       gosync.Mutex
	versions map[string]uint64
}

// Option configures a View.
type Option func(*View)

func WithTTL(ttl time.Duration) Option {
	return func(v *View) {
		if ttl > 0 {
			v.ttl = ttl
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(v *View) {
		v.logger = logger
	}
}

func New(reader ledger.Reader, cache Cache, opts ...Option) *View {
	v := &View{
		ledger:   reader,
		cache:    cache,
		ttl:      DefaultTTL,
		logger:   slog.Default(),
		locks:    sync.NewShardedMutex(),
		versions: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func identityKey(a domain.Address) string       { return entityIdentity + ":" + a.String() }
func issuerKey(a domain.Address) string         { return entityIssuer + ":" + a.String() }
func credentialsKey(a domain.Address) string    { return entityCredentials + ":" + a.String() }
func requestsKey(a domain.Address) string       { return entityRequests + ":" + a.String() }
func holderRequestsKey(a domain.Address) string { return entityHolderRequests + ":" + a.String() }

func (v *View) Identity(ctx context.Context, addr domain.Address) (*ledger.Identity, error) {
	id, err := load(ctx, v, entityIdentity, identityKey(addr), func(ctx context.Context) (ledger.Identity, error) {
		id, err := v.ledger.GetIdentity(ctx, addr)
		if err != nil {
			return ledger.Identity{}, err
		}
		return *id, nil
	})
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (v *View) IsApprovedIssuer(ctx context.Context, addr domain.Address) (bool, error) {
	return load(ctx, v, entityIssuer, issuerKey(addr), func(ctx context.Context) (bool, error) {
		return v.ledger.IsApprovedIssuer(ctx, addr)
	})
}

func (v *View) Credentials(ctx context.Context, holder domain.Address) ([]ledger.Credential, error) {
	return load(ctx, v, entityCredentials, credentialsKey(holder), func(ctx context.Context) ([]ledger.Credential, error) {
		return v.ledger.GetCredentials(ctx, holder)
	})
}

func (v *View) Requests(ctx context.Context, issuer domain.Address) ([]ledger.CredentialRequest, error) {
	return load(ctx, v, entityRequests, requestsKey(issuer), func(ctx context.Context) ([]ledger.CredentialRequest, error) {
		return v.ledger.GetCredentialRequests(ctx, issuer)
	})
}

// MarkRegisteredPending records that addr registered with the ledger before
// the event feed has confirmed it. The next invalidation replaces it.
func (v *View) MarkRegisteredPending(ctx context.Context, addr domain.Address, metadata domain.Locator) {
	key := identityKey(addr)
	v.bump(key)
	id := ledger.Identity{
		Address:         addr,
		Registered:      true,
		MetadataLocator: metadata,
		Owner:           addr,
		Pending:         true,
	}
	v.store(ctx, key, id, v.ttl)
}

func (v *View) InvalidateIdentity(ctx context.Context, addr domain.Address) {
	v.invalidate(ctx, entityIdentity, identityKey(addr))
}

func (v *View) InvalidateIssuer(ctx context.Context, addr domain.Address) {
	v.invalidate(ctx, entityIssuer, issuerKey(addr))
}

func (v *View) InvalidateCredentials(ctx context.Context, holder domain.Address) {
	v.invalidate(ctx, entityCredentials, credentialsKey(holder))
}

func (v *View) InvalidateRequests(ctx context.Context, issuer domain.Address) {
	v.invalidate(ctx, entityRequests, requestsKey(issuer))
}

func (v *View) invalidate(ctx context.Context, entity, key string) {
	v.bump(key)
	v.flights.Forget(key)
	invalidations.WithLabelValues(entity).Inc()
	if err := v.cache.Delete(ctx, key); err != nil {
		v.logger.WarnContext(ctx, "ledger view invalidation failed", "key", key, "error", err)
	}
}

func (v *View) bump(key string) {
	v.mu.Lock()
	v.versions[key]++
	v.mu.Unlock()
}

func (v *View) version(key string) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.versions[key]
}

func (v *View) store(ctx context.Context, key string, val any, ttl time.Duration) {
	raw, err := json.Marshal(val)
	if err != nil {
		v.logger.ErrorContext(ctx, "ledger view encode failed", "key", key, "error", err)
		return
	}
	if err := v.cache.Set(ctx, key, raw, ttl); err != nil {
		v.logger.WarnContext(ctx, "ledger view write failed", "key", key, "error", err)
	}
}

// load reads key from the cache or fetches it once for all concurrent callers.
// A fetch that raced with an invalidation is returned but not cached.
func load[T any](ctx context.Context, v *View, entity, key string, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	raw, err := v.cache.Get(ctx, key)
	switch {
	case err == nil:
		var out T
		if jsonErr := json.Unmarshal(raw, &out); jsonErr == nil {
			lookups.WithLabelValues(entity, "hit").Inc()
			return out, nil
		}
		v.logger.WarnContext(ctx, "ledger view entry unreadable", "key", key)
	case !errors.Is(err, sentinel.ErrNotFound):
		v.logger.WarnContext(ctx, "ledger view read failed", "key", key, "error", err)
	}

	res, err, _ := v.flights.Do(key, func() (any, error) {
		before := v.version(key)
		val, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if v.version(key) == before {
			v.store(ctx, key, val, v.ttl)
		}
		return val, nil
	})
	if err != nil {
		lookups.WithLabelValues(entity, "error").Inc()
		return zero, err
	}
	lookups.WithLabelValues(entity, "miss").Inc()
	out, _ := res.(T)
	return cloneValue(out), nil
}

// cloneValue copies slices handed out by singleflight so callers cannot
// alias each other's results.
func cloneValue[T any](v T) T {
	switch s := any(v).(type) {
	case []ledger.Credential:
		return any(slices.Clone(s)).(T)
	case []ledger.CredentialRequest:
		return any(slices.Clone(s)).(T)
	default:
		return v
	}
}
