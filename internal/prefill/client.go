// Package prefill talks to the comptroller's registry to pre-populate the
// signup form from a DPI. The upstream contract is loose: several login
// response shapes, several lookup envelope shapes and occasionally a token
// delivered inside an HTTP 409. Everything loose is normalized here, at the
// boundary.
package prefill

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

const (
	requestTimeout = 15 * time.Second
	tokenTTL       = time.Hour
)

// StatusError is a non-2xx reply from the upstream.
type StatusError struct {
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream status %d", e.Status)
}

var errNoToken = errors.New("no token in login response")

// Client authenticates against the registry and looks up people by DPI. The
// token cache is guarded by a mutex so concurrent lookups trigger at most one
// login.
type Client struct {
	baseURL  string
	user     string
	password string
	httpc    *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time

	now func() time.Time
}

// New builds a client. The registry serves an unverifiable certificate, so
// verification is disabled for this client only.
func New(baseURL, user, password string) *Client {
	return &Client{
		baseURL:  baseURL,
		user:     user,
		password: password,
		httpc: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
		now: time.Now,
	}
}

// authToken returns the cached token or performs a login.
func (c *Client) authToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}
	c.token = ""

	token, err := c.login(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	c.tokenExpiry = c.now().Add(tokenTTL)
	return token, nil
}

func (c *Client) login(ctx context.Context) (string, error) {
	payload, err := json.Marshal(map[string]string{"usuario": c.user, "clave": c.password})
	if err != nil {
		return "", fmt.Errorf("marshal login payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read login response: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		token, ok := extractToken(body)
		if !ok {
			return "", errNoToken
		}
		return token, nil
	case resp.StatusCode == http.StatusConflict:
		// The registry sometimes answers 409 with a perfectly usable token
		// in the error body.
		if token, ok := extractToken(body); ok {
			return token, nil
		}
		return "", &StatusError{Status: resp.StatusCode, Body: body}
	default:
		return "", &StatusError{Status: resp.StatusCode, Body: body}
	}
}

// extractToken pulls a bearer token out of any of the known login response
// shapes: {token}, {token:{value}}, {data:{token}}, {data:{token:{value}}},
// {accessToken}, {access_token} or a bare JSON string.
func extractToken(body []byte) (string, bool) {
	var bare string
	if err := json.Unmarshal(body, &bare); err == nil && bare != "" {
		return bare, true
	}

	var envelope struct {
		Token       json.RawMessage `json:"token"`
		AccessToken string          `json:"accessToken"`
		AccessSnake string          `json:"access_token"`
		Data        *struct {
			Token json.RawMessage `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", false
	}

	if token, ok := tokenValue(envelope.Token); ok {
		return token, true
	}
	if envelope.Data != nil {
		if token, ok := tokenValue(envelope.Data.Token); ok {
			return token, true
		}
	}
	if envelope.AccessToken != "" {
		return envelope.AccessToken, true
	}
	if envelope.AccessSnake != "" {
		return envelope.AccessSnake, true
	}
	return "", false
}

// tokenValue resolves a token field that is either a string or {value}.
func tokenValue(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return s, true
	}
	var obj struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Value != "" {
		return obj.Value, true
	}
	return "", false
}

// LookupByDPI fetches the raw registry reply for one DPI.
func (c *Client) LookupByDPI(ctx context.Context, dpi string) ([]byte, error) {
	token, err := c.authToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/usuarios/"+dpi, nil)
	if err != nil {
		return nil, fmt.Errorf("build lookup request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lookup dpi: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read lookup response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Status: resp.StatusCode, Body: body}
	}
	return body, nil
}
