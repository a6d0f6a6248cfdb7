// Package cache keeps the last disclosure proof per (holder, relying party)
// so repeated requests within the proof lifetime reuse one signature. Entries
// are dropped when the consent for the pair changes or the holder's
// credentials change.
package cache

import (
	"context"
	"sync"
	"time"

	"dim/internal/disclosure/models"
	"dim/internal/sentinel"
	"dim/pkg/domain"
)

type entry struct {
	proof   *models.Proof
	expires time.Time
}

type scope struct {
	holder domain.Address
	domain string
}

// MemoryCache is a process-local proof cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[scope]entry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[scope]entry), now: time.Now}
}

// Get returns sentinel.ErrNotFound on a miss or an expired entry.
func (c *MemoryCache) Get(_ context.Context, holder domain.Address, relyingParty string) (*models.Proof, error) {
	c.mu.RLock()
	e, ok := c.entries[scope{holder, relyingParty}]
	c.mu.RUnlock()
	if !ok || !c.now().Before(e.expires) {
		return nil, sentinel.ErrNotFound
	}
	return clone(e.proof), nil
}

func (c *MemoryCache) Set(_ context.Context, holder domain.Address, relyingParty string, proof *models.Proof, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	c.entries[scope{holder, relyingParty}] = entry{proof: clone(proof), expires: c.now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

// Invalidate drops the proof for one relying party.
func (c *MemoryCache) Invalidate(_ context.Context, holder domain.Address, relyingParty string) {
	c.mu.Lock()
	delete(c.entries, scope{holder, relyingParty})
	c.mu.Unlock()
}

// InvalidateHolder drops every proof of holder.
func (c *MemoryCache) InvalidateHolder(_ context.Context, holder domain.Address) {
	c.mu.Lock()
	for k := range c.entries {
		if k.holder.Equal(holder) {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}

// Len returns the number of entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func clone(p *models.Proof) *models.Proof {
	if p == nil {
		return nil
	}
	c := *p
	if p.Data != nil {
		c.Data = make(map[string]any, len(p.Data))
		for k, v := range p.Data {
			c.Data[k] = v
		}
	}
	return &c
}
