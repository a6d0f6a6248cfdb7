package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"dim/internal/agent"
	"dim/internal/blobstore"
	"dim/internal/ledger/memledger"
	"dim/internal/platform/config"
	"dim/internal/signer"
	"dim/pkg/domain"
)

// node is one running agent.
type node struct {
	agent  *agent.Agent
	server *httptest.Server
}

// TestContext holds state between test steps. All agents of a scenario share
// one in-memory ledger and one blob store.
type TestContext struct {
	HTTPClient       *http.Client
	LastResponse     *http.Response
	LastResponseBody []byte
	LastProof        json.RawMessage

	ledger *memledger.Ledger
	blobs  blobstore.Store
	nodes  map[string]*node
	cancel context.CancelFunc
	ctx    context.Context
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewTestContext creates a new test context
func NewTestContext() *TestContext {
	ctx, cancel := context.WithCancel(context.Background())
	return &TestContext{
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		blobs:      blobstore.NewInMemoryStore(),
		nodes:      make(map[string]*node),
		ctx:        ctx,
		cancel:     cancel,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Close stops every agent and its workers.
func (tc *TestContext) Close() {
	tc.cancel()
	tc.wg.Wait()
	for _, n := range tc.nodes {
		n.server.Close()
		n.agent.Close()
	}
}

// startAdmin creates the shared ledger administered by a fresh agent.
func (tc *TestContext) startAdmin(name string) error {
	admin, err := signer.GenerateKeySigner()
	if err != nil {
		return err
	}
	tc.ledger = memledger.New(admin.Address())
	return tc.start(name, admin.ExportHex())
}

func (tc *TestContext) start(name, keyHex string) error {
	if tc.ledger == nil {
		return errors.New("no ledger: start the admin agent first")
	}
	if _, exists := tc.nodes[name]; exists {
		return fmt.Errorf("agent %q already running", name)
	}
	if keyHex == "" {
		sg, err := signer.GenerateKeySigner()
		if err != nil {
			return err
		}
		keyHex = sg.ExportHex()
	}

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	cfg.Signer.KeyHex = keyHex
	cfg.Events.Mode = config.ModeMemory
	cfg.RateLimit.Store = config.ModeNone

	a, err := agent.Build(tc.ctx, cfg, tc.logger, agent.WithLedger(tc.ledger, tc.ledger), agent.WithBlobStore(tc.blobs))
	if err != nil {
		return fmt.Errorf("build agent %q: %w", name, err)
	}
	for _, w := range a.Workers() {
		tc.wg.Add(1)
		go func() {
			defer tc.wg.Done()
			_ = w.Run(tc.ctx) //nolint:errcheck // workers stop with the scenario
		}()
	}
	tc.nodes[name] = &node{agent: a, server: httptest.NewServer(a.Handler())}
	return nil
}

func (tc *TestContext) node(name string) (*node, error) {
	n, ok := tc.nodes[name]
	if !ok {
		return nil, fmt.Errorf("unknown agent %q", name)
	}
	return n, nil
}

func (tc *TestContext) address(name string) (domain.Address, error) {
	n, err := tc.node(name)
	if err != nil {
		return "", err
	}
	return n.agent.Address(), nil
}

// Do sends a request to the named agent and stores the response.
func (tc *TestContext) Do(name, method, path string, body any) error {
	n, err := tc.node(name)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(tc.ctx, method, n.server.URL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	return nil
}

// GetResponseField returns a top-level field of the last JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var data map[string]any
	if err := json.Unmarshal(tc.LastResponseBody, &data); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w", err)
	}
	value, ok := data[field]
	if !ok {
		return nil, fmt.Errorf("field %s not found in response: %s", field, tc.LastResponseBody)
	}
	return value, nil
}
