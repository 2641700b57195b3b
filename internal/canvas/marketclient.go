package canvas

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

// Sentinel errors for marketplace client failures.
var (
	ErrUnreachable = errors.New("marketplace unreachable")
	ErrPending     = errors.New("job still in progress")
	ErrForbidden   = errors.New("access key rejected")
	ErrNotFound    = errors.New("not found")
)

// maxArtifactSize bounds a single retrieved artifact.
const maxArtifactSize = 64 << 20

// Listing is one priced artist from the marketplace.
type Listing struct {
	ID    string `json:"id"`
	Cost  uint64 `json:"cost"`
	Genre string `json:"genre_name"`
}

// Commission is the marketplace's answer to a request-art call. The paths
// are relative; the client resolves them against its base URL.
type Commission struct {
	Address      string `json:"iota_addr"`
	JobID        string `json:"job_id"`
	Key          string `json:"key"`
	StatusPath   string `json:"status_addr"`
	RetrievePath string `json:"retrieve_addr"`
}

// MarketClient talks to one marketplace server.
type MarketClient struct {
	baseURL string
	client  *http.Client
}

func NewMarketClient(baseURL string, timeout time.Duration) *MarketClient {
	return &MarketClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// ArtistList fetches the priced artist listing.
func (c *MarketClient) ArtistList(ctx context.Context) ([]Listing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/artist-list", nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode)
	}

	var listings []Listing
	if err := json.NewDecoder(resp.Body).Decode(&listings); err != nil {
		return nil, fmt.Errorf("decoding artist list: %w", err)
	}
	return listings, nil
}

// RequestArt commissions the given artist. The marketplace answers 202 with
// the payment address, job id, and the one-time access key.
func (c *MarketClient) RequestArt(ctx context.Context, artistID string) (*Commission, error) {
	u := fmt.Sprintf("%s/%s/request-art", c.baseURL, url.PathEscape(artistID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted:
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode)
	}

	var commission Commission
	if err := json.NewDecoder(resp.Body).Decode(&commission); err != nil {
		return nil, fmt.Errorf("decoding commission: %w", err)
	}
	return &commission, nil
}

// JobStatus queries the given status path with the access key. A nil error
// means the artwork is completed; ErrPending means keep polling.
func (c *MarketClient) JobStatus(ctx context.Context, statusPath, key string) error {
	resp, err := c.postKey(ctx, statusPath, key)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusConflict:
		return ErrPending
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode)
	}
}

// RetrieveArt downloads the finished artifact bytes from the retrieve path.
func (c *MarketClient) RetrieveArt(ctx context.Context, retrievePath, key string) ([]byte, error) {
	resp, err := c.postKey(ctx, retrievePath, key)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusConflict:
		return nil, ErrPending
	case http.StatusForbidden:
		return nil, ErrForbidden
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArtifactSize))
	if err != nil {
		return nil, classifyTransportError(err)
	}
	return data, nil
}

func (c *MarketClient) postKey(ctx context.Context, path, key string) (*http.Response, error) {
	body, err := json.Marshal(map[string]string{"key": key})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	return resp, nil
}

// classifyTransportError maps transport-level errors to ErrUnreachable.
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%w: %v", ErrUnreachable, urlErr.Err)
	}

	return err
}
