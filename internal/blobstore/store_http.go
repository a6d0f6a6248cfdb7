package blobstore

import (
	"context"
	"fmt"
	"net/http"

	"dim/internal/platform/remote"
	"dim/internal/sentinel"
	"dim/pkg/domain"
)

const pinningService = "blob-gateway"

// HTTPStore talks to a pinning gateway that exposes POST /blobs and GET /blobs/{cid}.
type HTTPStore struct {
	client *remote.Client
	retry  remote.RetryPolicy
}

// HTTPConfig configures an HTTPStore.
type HTTPConfig struct {
	BaseURL    string
	HTTPClient remote.HTTPDoer
	Retry      *remote.RetryPolicy
}

func NewHTTPStore(cfg HTTPConfig) *HTTPStore {
	policy := remote.DefaultRetryPolicy()
	if cfg.Retry != nil {
		policy = *cfg.Retry
	}
	return &HTTPStore{
		client: remote.NewClient(remote.Config{Service: pinningService, BaseURL: cfg.BaseURL, HTTPClient: cfg.HTTPClient}),
		retry:  policy,
	}
}

type putResponse struct {
	Locator domain.Locator `json:"locator"`
}

// Put pins data. Content addressing makes the call idempotent, so it is retried.
func (s *HTTPStore) Put(ctx context.Context, data []byte) (domain.Locator, error) {
	want := LocatorFor(data)
	var resp putResponse
	err := remote.Retry(ctx, s.retry, func() error {
		body, err := s.client.Do(ctx, http.MethodPost, "/blobs", "application/octet-stream", data)
		if err != nil {
			return err
		}
		return decodeJSON(body, &resp)
	})
	if err != nil {
		return "", mapRemoteError("put blob", err)
	}
	if resp.Locator != want {
		return "", fmt.Errorf("gateway returned locator %s, want %s: %w", resp.Locator, want, sentinel.ErrInvalidState)
	}
	return want, nil
}

// Get fetches and verifies a blob.
func (s *HTTPStore) Get(ctx context.Context, locator domain.Locator) ([]byte, error) {
	if _, err := ParseLocator(string(locator)); err != nil {
		return nil, err
	}
	var data []byte
	err := remote.Retry(ctx, s.retry, func() error {
		body, err := s.client.Do(ctx, http.MethodGet, "/blobs/"+ContentID(locator), "", nil)
		if err != nil {
			return err
		}
		data = body
		return nil
	})
	if err != nil {
		return nil, mapRemoteError("get blob", err)
	}
	if err := Verify(locator, data); err != nil {
		return nil, err
	}
	return data, nil
}

func mapRemoteError(op string, err error) error {
	switch remote.CategoryOf(err) {
	case remote.ErrorNotFound:
		return fmt.Errorf("%s: %w", op, sentinel.ErrNotFound)
	case remote.ErrorRejected, remote.ErrorBadData:
		return fmt.Errorf("%s: %w: %w", op, sentinel.ErrInvalidInput, err)
	case "":
		return err
	default:
		return fmt.Errorf("%s: %w: %w", op, sentinel.ErrUnavailable, err)
	}
}
