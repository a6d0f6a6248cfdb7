package service

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v4"

	"dim/internal/consent/models"
	"dim/internal/platform/remote"
	"dim/internal/sentinel"
	"dim/pkg/domain"
	dErrors "dim/pkg/domain-errors"
)

// mirror writes doc to the blob store and marks the record mirrored. While
// the breaker is open the blob store is not called at all; the record stays
// pending for the mirror worker.
func (s *Service) mirror(ctx context.Context, rec *models.Record, doc []byte) error {
	if err := s.breaker.Allow(); err != nil {
		s.countMirror("skipped")
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "consent saved locally; blob mirror paused")
	}

	var loc domain.Locator
	put := func() error {
		ctx, cancel := s.blobContext(ctx)
		defer cancel()
		var err error
		loc, err = s.blobs.Put(ctx, doc)
		if err != nil && !retryableBlobError(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	err := backoff.Retry(put, s.retry.Backoff(ctx))
	if err == nil && loc != rec.Locator {
		err = dErrors.New(dErrors.CodeInternal, "blob store returned locator "+loc.String()+", expected "+rec.Locator.String())
	}
	if err != nil {
		s.recordMirror(ctx, false)
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "consent saved locally; blob mirror pending")
	}
	s.recordMirror(ctx, true)

	at := s.now().UTC()
	if err := s.store.MarkMirrored(ctx, rec.Scope(), rec.Locator, at); err != nil {
		// A newer grant replaced the record while the mirror was in flight.
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		s.logger.WarnContext(ctx, "failed to mark consent mirrored", "locator", rec.Locator, "error", err)
		return nil
	}
	rec.MirroredAt = &at
	return nil
}

// MirrorPending retries the mirror of every record of holder that has not
// reached the blob store yet. It returns how many were mirrored.
func (s *Service) MirrorPending(ctx context.Context, holder domain.Address) (int, error) {
	recs, err := s.store.ListByHolder(ctx, holder)
	if err != nil {
		return 0, storeError("failed to list consents", err)
	}
	var (
		done int
		errs []error
	)
	for _, rec := range recs {
		if rec.MirroredAt != nil {
			continue
		}
		doc, err := rec.Encode()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := s.mirror(ctx, rec, doc); err != nil {
			errs = append(errs, err)
			continue
		}
		done++
	}
	return done, errors.Join(errs...)
}

func (s *Service) fetch(ctx context.Context, locator domain.Locator) ([]byte, error) {
	var raw []byte
	err := backoff.Retry(func() error {
		ctx, cancel := s.blobContext(ctx)
		defer cancel()
		var err error
		raw, err = s.blobs.Get(ctx, locator)
		if err != nil && !retryableBlobError(err) {
			return backoff.Permanent(err)
		}
		return err
	}, s.retry.Backoff(ctx))
	switch {
	case err == nil:
		return raw, nil
	case errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "consent document not found in blob store")
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "failed to fetch consent document")
	}
}

func (s *Service) blobContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.blobTimeout)
}

func (s *Service) recordMirror(ctx context.Context, ok bool) {
	if ok {
		s.breaker.Success()
		s.countMirror("success")
		return
	}
	s.breaker.Failure()
	if s.breaker.IsOpen() {
		s.logger.WarnContext(ctx, "consent mirror paused", "breaker", s.breaker.Name())
	}
	s.countMirror("failure")
}

func (s *Service) countMirror(result string) {
	if s.metrics != nil {
		s.metrics.IncrementMirrorAttempt(result)
	}
}

func retryableBlobError(err error) bool {
	return errors.Is(err, sentinel.ErrUnavailable) ||
		errors.Is(err, context.DeadlineExceeded) ||
		remote.IsRetryable(err)
}

