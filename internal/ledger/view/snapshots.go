package view

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"dim/internal/ledger"
	"dim/internal/sentinel"
	"dim/pkg/domain"
)

// The ledger indexes requests by issuer only. The snapshot table keeps the
// requests a holder made, keyed by (holder, request ref), so a holder can
// follow them. It is a cache: RebuildHolderRequests restores it from the ledger.

// HolderRequests returns the request snapshots recorded for holder, oldest first.
func (v *View) HolderRequests(ctx context.Context, holder domain.Address) ([]ledger.CredentialRequest, error) {
	raw, err := v.cache.Get(ctx, holderRequestsKey(holder))
	if errors.Is(err, sentinel.ErrNotFound) {
		lookups.WithLabelValues(entityHolderRequests, "miss").Inc()
		return nil, nil
	}
	if err != nil {
		lookups.WithLabelValues(entityHolderRequests, "error").Inc()
		return nil, err
	}
	var out []ledger.CredentialRequest
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode request snapshots: %w", err)
	}
	lookups.WithLabelValues(entityHolderRequests, "hit").Inc()
	return out, nil
}

// RecordRequest upserts a snapshot under its requester.
func (v *View) RecordRequest(ctx context.Context, req ledger.CredentialRequest) error {
	key := holderRequestsKey(req.Requester)
	v.locks.Lock(key)
	defer v.locks.Unlock(key)

	current, err := v.HolderRequests(ctx, req.Requester)
	if err != nil {
		return err
	}
	idx := slices.IndexFunc(current, func(r ledger.CredentialRequest) bool { return r.Ref == req.Ref })
	if idx >= 0 {
		current[idx] = req
	} else {
		current = append(current, req)
	}
	return v.writeSnapshots(ctx, key, current)
}

// RefreshRequest re-reads one request from the ledger, updates its snapshot
// and drops the issuer's cached request list.
func (v *View) RefreshRequest(ctx context.Context, ref ledger.RequestRef) (*ledger.CredentialRequest, error) {
	v.InvalidateRequests(ctx, ref.Issuer)
	req, err := v.ledger.GetRequest(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := v.RecordRequest(ctx, *req); err != nil {
		v.logger.WarnContext(ctx, "failed to record request snapshot", "request", ref.String(), "error", err)
	}
	return req, nil
}

// RebuildHolderRequests replaces holder's snapshots with the requests it made
// to the given issuers, as the ledger reports them now.
func (v *View) RebuildHolderRequests(ctx context.Context, holder domain.Address, issuers []domain.Address) error {
	var rebuilt []ledger.CredentialRequest
	for _, issuer := range issuers {
		reqs, err := v.ledger.GetCredentialRequests(ctx, issuer)
		if err != nil {
			return fmt.Errorf("read requests of %s: %w", issuer, err)
		}
		for _, r := range reqs {
			if r.Requester == holder {
				rebuilt = append(rebuilt, r)
			}
		}
	}
	slices.SortFunc(rebuilt, func(a, b ledger.CredentialRequest) int {
		return a.RequestedAt.Compare(b.RequestedAt)
	})
	key := holderRequestsKey(holder)
	v.locks.Lock(key)
	defer v.locks.Unlock(key)
	return v.writeSnapshots(ctx, key, rebuilt)
}

func (v *View) writeSnapshots(ctx context.Context, key string, reqs []ledger.CredentialRequest) error {
	raw, err := json.Marshal(reqs)
	if err != nil {
		return err
	}
	return v.cache.Set(ctx, key, raw, 0)
}
