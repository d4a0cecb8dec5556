package checkoutapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"acmsync/internal/config"
)

var (
	// ErrUnreachable indicates the server could not be reached or failed
	// internally. Callers treat it as "no network".
	ErrUnreachable = errors.New("checkout server unreachable")
	// ErrUnauthorized indicates the server rejected the API token.
	ErrUnauthorized = errors.New("checkout server rejected credentials")
)

// Client calls the checkout server.
type Client struct {
	base    *url.URL
	token   string
	http    *http.Client
	version int
}

// NewClient returns a Client for the server at baseURL. timeout bounds each
// request; zero means no client-side timeout.
func NewClient(baseURL, token string, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("checkout server url is required")
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	base.Path = strings.TrimSuffix(base.Path, "/")
	base.RawQuery = ""
	base.Fragment = ""
	return &Client{
		base:    base,
		token:   strings.TrimSpace(token),
		http:    &http.Client{Timeout: timeout},
		version: ProtocolVersion,
	}, nil
}

// NewClientFromConfig builds a Client from the [server] section.
func NewClientFromConfig(cfg *config.Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	return NewClient(cfg.Server.URL, cfg.Server.APIToken, cfg.ServerTimeout())
}

// IdentityFromConfig returns the identity configured for this workstation.
func IdentityFromConfig(cfg *config.Config) Identity {
	return Identity{
		Name:         cfg.Identity.UserName,
		Contact:      cfg.Identity.Contact,
		ComputerName: cfg.Identity.ComputerName,
	}
}

// Do performs one protocol action.
func (c *Client) Do(ctx context.Context, req Request) (Response, error) {
	if !req.Action.Valid() {
		return Response{}, fmt.Errorf("unknown action %q", req.Action)
	}
	values := identityValues(req.Identity)
	version := req.Version
	if version == 0 {
		version = c.version
	}
	values.Set("version", strconv.Itoa(version))
	if req.Filename != "" {
		values.Set("filename", req.Filename)
	}
	if req.Key != "" {
		values.Set("key", req.Key)
	}

	var resp Response
	if err := c.get(ctx, "/"+string(req.Action)+"/"+url.PathEscape(req.ACM), values, &resp); err != nil {
		return Response{}, fmt.Errorf("%s %s: %w", req.Action, req.ACM, err)
	}
	if resp.Status == StatusError {
		return resp, fmt.Errorf("%s %s: server error: %s", req.Action, req.ACM, resp.Message)
	}
	return resp, nil
}

// StatusCheck asks for the state of acm without changing it.
func (c *Client) StatusCheck(ctx context.Context, acm string, id Identity) (Response, error) {
	return c.Do(ctx, Request{Action: ActionStatusCheck, ACM: acm, Identity: id})
}

// CheckOut requests the write lease on acm.
func (c *Client) CheckOut(ctx context.Context, acm string, id Identity) (Response, error) {
	return c.Do(ctx, Request{Action: ActionCheckOut, ACM: acm, Identity: id})
}

// Create registers a new ACM and checks it out to id.
func (c *Client) Create(ctx context.Context, acm string, id Identity) (Response, error) {
	return c.Do(ctx, Request{Action: ActionCreate, ACM: acm, Identity: id})
}

// CheckIn records filename as the new revision and releases the lease.
func (c *Client) CheckIn(ctx context.Context, acm string, id Identity, key, filename string) (Response, error) {
	return c.Do(ctx, Request{Action: ActionCheckIn, ACM: acm, Identity: id, Key: key, Filename: filename})
}

// Discard releases the lease without recording a new revision.
func (c *Client) Discard(ctx context.Context, acm string, id Identity, key, filename string) (Response, error) {
	return c.Do(ctx, Request{Action: ActionDiscard, ACM: acm, Identity: id, Key: key, Filename: filename})
}

// Revoke forcibly clears whatever checkout exists on acm.
func (c *Client) Revoke(ctx context.Context, acm string, id Identity) (Response, error) {
	return c.Do(ctx, Request{Action: ActionRevoke, ACM: acm, Identity: id})
}

// List returns the state of every ACM the server knows.
func (c *Client) List(ctx context.Context) ([]State, error) {
	var resp ListResponse
	if err := c.get(ctx, "/acms", nil, &resp); err != nil {
		return nil, fmt.Errorf("list acms: %w", err)
	}
	if resp.Status != StatusOK {
		return nil, fmt.Errorf("list acms: %s", resp.Message)
	}
	return resp.ACMs, nil
}

// ReserveSRN asks for a block of n serial numbers for id's device. A denied
// reservation is returned with a nil error.
func (c *Client) ReserveSRN(ctx context.Context, id Identity, n int) (SRNResponse, error) {
	values := identityValues(id)
	values.Set("n", strconv.Itoa(n))
	values.Set("version", strconv.Itoa(c.version))
	var resp SRNResponse
	if err := c.get(ctx, "/srn/reserve", values, &resp); err != nil {
		return SRNResponse{}, fmt.Errorf("reserve srn block: %w", err)
	}
	if resp.Status == StatusError {
		return resp, fmt.Errorf("reserve srn block: server error: %s", resp.Message)
	}
	return resp, nil
}

// Ping checks that the server answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	var payload map[string]any
	if err := c.get(ctx, "/healthz", nil, &payload); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

func identityValues(id Identity) url.Values {
	values := url.Values{}
	values.Set("name", id.Name)
	values.Set("contact", id.Contact)
	values.Set("computername", id.ComputerName)
	return values
}

func (c *Client) get(ctx context.Context, path string, values url.Values, out any) error {
	endpoint := *c.base
	endpoint.Path = c.base.Path + path
	if values != nil {
		endpoint.RawQuery = values.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w (status %d)", ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d%s", ErrUnreachable, resp.StatusCode, bodyHint(resp.Body))
	case resp.StatusCode >= 400:
		return fmt.Errorf("request rejected: status %d%s", resp.StatusCode, bodyHint(resp.Body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func bodyHint(r io.Reader) string {
	var payload Response
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}
	if json.Unmarshal(data, &payload) == nil && payload.Message != "" {
		return ": " + payload.Message
	}
	return ": " + strings.TrimSpace(string(data))
}

// IsUnreachable reports whether err means the server could not be used.
func IsUnreachable(err error) bool {
	return errors.Is(err, ErrUnreachable)
}
