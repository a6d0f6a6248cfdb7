// Package httpledger reaches a ledger node over HTTP. Mutations are signed
// by the agent's signer; reads are retried with backoff.
package httpledger

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"dim/internal/ledger"
	"dim/internal/ledger/ledgerapi"
	"dim/internal/platform/remote"
	"dim/internal/sentinel"
	"dim/internal/signer"
	"dim/pkg/domain"
)

const service = "ledger"

// Config configures a Client.
type Config struct {
	BaseURL    string
	HTTPClient remote.HTTPDoer
	Timeout    time.Duration
	Retry      *remote.RetryPolicy
	Now        func() time.Time
}

// Client implements ledger.Ledger against a ledger node. It can only submit
// mutations on behalf of its signer's address.
type Client struct {
	http   *remote.Client
	signer signer.Signer
	retry  remote.RetryPolicy
	now    func() time.Time
}

var _ ledger.Ledger = (*Client)(nil)

func New(cfg Config, s signer.Signer) *Client {
	policy := remote.DefaultRetryPolicy()
	if cfg.Retry != nil {
		policy = *cfg.Retry
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Client{
		http: remote.NewClient(remote.Config{
			Service:    service,
			BaseURL:    cfg.BaseURL,
			Timeout:    cfg.Timeout,
			HTTPClient: cfg.HTTPClient,
		}),
		signer: s,
		retry:  policy,
		now:    now,
	}
}

func (c *Client) Admin(ctx context.Context) (domain.Address, error) {
	var resp ledgerapi.AdminResponse
	if err := c.read(ctx, ledgerapi.PathAdmin, &resp); err != nil {
		return "", err
	}
	return resp.Address, nil
}

func (c *Client) GetIdentity(ctx context.Context, addr domain.Address) (*ledger.Identity, error) {
	var id ledger.Identity
	if err := c.read(ctx, ledgerapi.IdentityPath(addr), &id); err != nil {
		return nil, err
	}
	return &id, nil
}

func (c *Client) IsApprovedIssuer(ctx context.Context, addr domain.Address) (bool, error) {
	var resp ledgerapi.IssuerResponse
	if err := c.read(ctx, ledgerapi.IssuerPath(addr), &resp); err != nil {
		return false, err
	}
	return resp.Approved, nil
}

func (c *Client) GetCredentials(ctx context.Context, holder domain.Address) ([]ledger.Credential, error) {
	var resp ledgerapi.CredentialsResponse
	if err := c.read(ctx, ledgerapi.CredentialsPath(holder), &resp); err != nil {
		return nil, err
	}
	return resp.Credentials, nil
}

func (c *Client) GetCredential(ctx context.Context, ref ledger.CredentialRef) (*ledger.Credential, error) {
	var cred ledger.Credential
	if err := c.read(ctx, ledgerapi.CredentialPath(ref), &cred); err != nil {
		return nil, err
	}
	return &cred, nil
}

func (c *Client) GetCredentialRequests(ctx context.Context, issuer domain.Address) ([]ledger.CredentialRequest, error) {
	var resp ledgerapi.RequestsResponse
	if err := c.read(ctx, ledgerapi.RequestsPath(issuer), &resp); err != nil {
		return nil, err
	}
	return resp.Requests, nil
}

func (c *Client) GetRequest(ctx context.Context, ref ledger.RequestRef) (*ledger.CredentialRequest, error) {
	var req ledger.CredentialRequest
	if err := c.read(ctx, ledgerapi.RequestPath(ref), &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (c *Client) RegisterIdentity(ctx context.Context, caller domain.Address, metadata domain.Locator) error {
	return c.write(ctx, caller, ledgerapi.PathIdentities,
		ledgerapi.RegisterIdentityRequest{MetadataLocator: metadata}, nil)
}

func (c *Client) ApproveIssuer(ctx context.Context, caller, issuer domain.Address) error {
	return c.write(ctx, caller, ledgerapi.IssuerPath(issuer)+"/approve", nil, nil)
}

func (c *Client) RevokeIssuer(ctx context.Context, caller, issuer domain.Address) error {
	return c.write(ctx, caller, ledgerapi.IssuerPath(issuer)+"/revoke", nil, nil)
}

func (c *Client) RequestCredential(ctx context.Context, caller, issuer domain.Address, data domain.Locator) (ledger.RequestRef, error) {
	var ref ledger.RequestRef
	err := c.write(ctx, caller, ledgerapi.PathRequests,
		ledgerapi.RequestCredentialRequest{Issuer: issuer, DataLocator: data}, &ref)
	return ref, err
}

func (c *Client) ApproveRequest(ctx context.Context, caller domain.Address, ref ledger.RequestRef, credentialData domain.Locator) (ledger.CredentialRef, error) {
	var cred ledger.CredentialRef
	err := c.write(ctx, caller, ledgerapi.RequestPath(ref)+"/approve",
		ledgerapi.ApproveRequestRequest{CredentialLocator: credentialData}, &cred)
	return cred, err
}

func (c *Client) RejectRequest(ctx context.Context, caller domain.Address, ref ledger.RequestRef) error {
	return c.write(ctx, caller, ledgerapi.RequestPath(ref)+"/reject", nil, nil)
}

func (c *Client) IssueCredential(ctx context.Context, caller, holder domain.Address, data domain.Locator) (ledger.CredentialRef, error) {
	var cred ledger.CredentialRef
	err := c.write(ctx, caller, ledgerapi.PathCredentials,
		ledgerapi.IssueCredentialRequest{Holder: holder, DataLocator: data}, &cred)
	return cred, err
}

func (c *Client) RevokeCredential(ctx context.Context, caller domain.Address, ref ledger.CredentialRef) error {
	return c.write(ctx, caller, ledgerapi.CredentialPath(ref)+"/revoke", nil, nil)
}

// read issues an idempotent GET with retries.
func (c *Client) read(ctx context.Context, path string, out any) error {
	err := remote.Retry(ctx, c.retry, func() error {
		return c.http.DoJSON(ctx, http.MethodGet, path, nil, out)
	})
	return mapError(err)
}

// write submits a signed mutation exactly once. A timeout is reported as
// context.DeadlineExceeded because the call may still have been applied.
func (c *Client) write(ctx context.Context, caller domain.Address, path string, in, out any) error {
	if caller != c.signer.Address() {
		return fmt.Errorf("cannot submit for %s with signer %s: %w", caller, c.signer.Address(), sentinel.ErrForbidden)
	}
	if in == nil {
		in = struct{}{}
	}
	err := c.http.DoJSON(ctx, http.MethodPost, path, in, out, c.sign(caller))
	return mapError(err)
}

func (c *Client) sign(caller domain.Address) remote.RequestDecorator {
	return func(req *http.Request, body []byte) error {
		ts := c.now().UnixMilli()
		payload := ledgerapi.CallPayload(req.Method, req.URL.Path, body, ts, caller)
		sig, err := c.signer.Sign(req.Context(), payload)
		if err != nil {
			return err
		}
		req.Header.Set(ledgerapi.HeaderCaller, caller.String())
		req.Header.Set(ledgerapi.HeaderTimestamp, strconv.FormatInt(ts, 10))
		req.Header.Set(ledgerapi.HeaderSignature, signer.EncodeSignature(sig))
		return nil
	}
}

// mapError turns remote failures into ledger faults or sentinel errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var re *remote.Error
	if !errors.As(err, &re) {
		return err
	}
	if fault := ledger.FromWireCode(re.Code); fault != nil {
		return fmt.Errorf("%s: %w", re.Message, fault)
	}
	switch re.Category {
	case remote.ErrorTimeout:
		return fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	case remote.ErrorAuthentication:
		return fmt.Errorf("%w: %w", sentinel.ErrForbidden, err)
	case remote.ErrorNotFound:
		return fmt.Errorf("%w: %w", sentinel.ErrNotFound, err)
	case remote.ErrorRejected, remote.ErrorBadData:
		return fmt.Errorf("%w: %w", sentinel.ErrInvalidInput, err)
	default:
		return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
	}
}
