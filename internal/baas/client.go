package baas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"mesaflow/internal/config"
)

// Client talks to the hosted data service: a PostgREST-style REST surface for
// table reads/writes plus callable procedures under /rest/v1/rpc. All booking
// invariants live on the remote side; this client only moves JSON.
type Client struct {
	baseURL    string
	serviceKey string
	hc         *http.Client
}

func New(cfg config.BaasConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    cfg.URL,
		serviceKey: cfg.ServiceKey,
		hc:         &http.Client{Timeout: timeout},
	}
}

// Rpc invokes a remote procedure and returns its raw JSON result.
func (c *Client) Rpc(ctx context.Context, name string, args map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPost, "/rest/v1/rpc/"+name, nil, body, "")
}

// From starts a table query.
func (c *Client) From(table string) *Query {
	return &Query{client: c, table: table}
}

// Insert writes one row and decodes the representation returned by the remote
// into dest when dest is non-nil.
func (c *Client) Insert(ctx context.Context, table string, row any, dest any) error {
	body, err := json.Marshal(row)
	if err != nil {
		return err
	}
	raw, err := c.do(ctx, http.MethodPost, "/rest/v1/"+table, nil, body, "return=representation")
	if err != nil {
		return err
	}
	if dest == nil {
		return nil
	}
	return decodeRepresentation(raw, dest)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte, prefer string) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	if len(query) > 0 {
		req.URL.RawQuery = query.Encode()
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 8<<20))
	if err != nil {
		return nil, err
	}

	if res.StatusCode >= 400 {
		return nil, remoteError(res.StatusCode, raw)
	}
	return raw, nil
}

func remoteError(status int, raw []byte) error {
	var e struct {
		Message string `json:"message"`
		Details string `json:"details"`
		Code    string `json:"code"`
	}
	if err := json.Unmarshal(raw, &e); err == nil && e.Message != "" {
		return fmt.Errorf("%s", e.Message)
	}
	return fmt.Errorf("remote request failed (status=%d)", status)
}

// decodeRepresentation unwraps single-row write responses: the remote returns
// a one-element array under return=representation.
func decodeRepresentation(raw json.RawMessage, dest any) error {
	var rows []json.RawMessage
	if err := json.Unmarshal(raw, &rows); err == nil {
		if len(rows) == 0 {
			return fmt.Errorf("remote returned no rows")
		}
		return json.Unmarshal(rows[0], dest)
	}
	return json.Unmarshal(raw, dest)
}
