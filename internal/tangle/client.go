package tangle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"
)

// Sentinel errors for ledger client failures.
var (
	ErrLedgerUnavailable = errors.New("ledger unavailable")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Client is the interface to the tangle ledger. Address derivation,
// proof-of-work, and transaction broadcast all live behind the node; this
// process only asks for addresses, balances, and transfers.
type Client interface {
	// AllocateAddress derives the address at the given index of the seed.
	AllocateAddress(ctx context.Context, index uint64) (string, error)
	// Balance returns the confirmed balance of a single address.
	Balance(ctx context.Context, address string) (uint64, error)
	// AccountBalance returns the total confirmed balance across the seed.
	AccountBalance(ctx context.Context) (uint64, error)
	// Send transfers amount to address with an optional memo.
	Send(ctx context.Context, amount uint64, address, memo string) error
}

// HTTPClient implements Client against a tangle node's HTTP API.
type HTTPClient struct {
	baseURL string
	seed    string
	client  *http.Client
}

// NewHTTPClient creates a new tangle node client bound to one seed.
func NewHTTPClient(baseURL, seed string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		seed:    seed,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) AllocateAddress(ctx context.Context, index uint64) (string, error) {
	body := map[string]any{"seed": c.seed, "index": index}
	var out struct {
		Address string `json:"address"`
	}
	if err := c.post(ctx, "/api/v1/addresses", body, &out); err != nil {
		return "", err
	}
	return out.Address, nil
}

func (c *HTTPClient) Balance(ctx context.Context, address string) (uint64, error) {
	u := fmt.Sprintf("%s/api/v1/balances/%s", c.baseURL, url.PathEscape(address))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: status %d", ErrLedgerUnavailable, resp.StatusCode)
	}

	var out struct {
		Balance uint64 `json:"balance"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decoding balance response: %w", err)
	}
	return out.Balance, nil
}

func (c *HTTPClient) AccountBalance(ctx context.Context) (uint64, error) {
	body := map[string]any{"seed": c.seed}
	var out struct {
		Balance uint64 `json:"balance"`
	}
	if err := c.post(ctx, "/api/v1/account/balance", body, &out); err != nil {
		return 0, err
	}
	return out.Balance, nil
}

func (c *HTTPClient) Send(ctx context.Context, amount uint64, address, memo string) error {
	body := map[string]any{
		"seed":    c.seed,
		"address": address,
		"amount":  amount,
	}
	if memo != "" {
		body["memo"] = memo
	}
	return c.post(ctx, "/api/v1/transfers", body, nil)
}

func (c *HTTPClient) post(ctx context.Context, path string, body, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusPaymentRequired:
		return ErrInsufficientFunds
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: status %d", ErrLedgerUnavailable, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%w: %v", ErrLedgerUnavailable, urlErr.Err)
	}

	return err
}
