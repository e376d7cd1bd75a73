// Package remote is a thin client for the remote store's resource
// interface: equality-filtered selects with ordering, inserts, updates,
// deletes, an rpc escape hatch, and the session endpoints. All
// persistence and row-level authorization live on the store side.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/good-yellow-bee/taskboard/internal/metrics"
	"github.com/good-yellow-bee/taskboard/internal/models"
)

// Config holds remote store connection settings.
type Config struct {
	BaseURL           string        // store base URL (required)
	APIKey            string        // anon/service key sent with every request
	Timeout           time.Duration // per-request timeout (default: 15s)
	RequestsPerSecond float64       // client-side pacing (default: 20)
}

// Client talks to the remote store. It is safe for concurrent use.
// The held session token is process-wide: all managers read it, only
// the session provider writes it.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter

	mu       sync.Mutex
	token    string
	identity *models.Identity
}

// New creates a remote store client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("store base URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 20
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), int(cfg.RequestsPerSecond)),
	}, nil
}

// accessClaims are the identity claims carried in the store's access token.
// The store is the verifier; the client only reads them.
type accessClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

func identityFromToken(token string) (*models.Identity, error) {
	var claims accessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("access token has no subject")
	}
	return &models.Identity{ID: claims.Subject, Email: claims.Email}, nil
}

// SetToken installs a previously issued access token, restoring the
// identity encoded in its claims. Used to resume a cached session.
func (c *Client) SetToken(token string) error {
	ident, err := identityFromToken(token)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.token = token
	c.identity = ident
	c.mu.Unlock()

	metrics.SessionsActive.Set(1)
	return nil
}

// Session returns the current identity, or nil when signed out.
func (c *Client) Session() *models.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.identity == nil {
		return nil
	}
	ident := *c.identity
	return &ident
}

// Token returns the current access token, empty when signed out.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Client) clearSession() {
	c.mu.Lock()
	c.token = ""
	c.identity = nil
	c.mu.Unlock()
	metrics.SessionsActive.Set(0)
}

// SignIn exchanges credentials for a session via the password grant.
func (c *Client) SignIn(ctx context.Context, email, password string) (*models.Identity, error) {
	body := map[string]string{"email": email, "password": password}

	data, rerr := c.do(ctx, "auth", http.MethodPost, "/auth/v1/token", url.Values{"grant_type": {"password"}}, body)
	if rerr != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("failure").Inc()
		if rerr.Code == CodeRemoteUnavailable {
			return nil, rerr
		}
		return nil, &Error{Code: CodeAuthenticationRequired, Message: "invalid credentials", Store: rerr.Store}
	}

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("failure").Inc()
		return nil, &Error{Code: CodeRemoteUnavailable, Message: "malformed token response"}
	}
	if err := c.SetToken(resp.AccessToken); err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("failure").Inc()
		return nil, &Error{Code: CodeRemoteUnavailable, Message: err.Error()}
	}

	metrics.AuthAttemptsTotal.WithLabelValues("success").Inc()
	return c.Session(), nil
}

// SignOut revokes the session on the store. Local session state is
// cleared even when the remote call fails; the error is returned so the
// caller can surface it as a non-fatal notice.
func (c *Client) SignOut(ctx context.Context) error {
	_, rerr := c.do(ctx, "auth", http.MethodPost, "/auth/v1/logout", nil, nil)
	c.clearSession()
	if rerr != nil {
		return rerr
	}
	return nil
}

// Select fetches rows from table into dest. dest is a pointer to a
// slice, or to a struct when Single/MaybeSingle is set.
func (c *Client) Select(ctx context.Context, table string, dest any, opts ...Option) error {
	q := buildOptions(opts)

	data, rerr := c.doTable(ctx, table, "select", http.MethodGet, q.encode(), nil)
	if rerr != nil {
		return rerr
	}
	return decodeRows(data, dest, q)
}

// Insert creates a row in table. When dest is non-nil the stored
// representation is decoded into it.
func (c *Client) Insert(ctx context.Context, table string, row any, dest any) error {
	data, rerr := c.doTable(ctx, table, "insert", http.MethodPost, nil, row)
	if rerr != nil {
		return rerr
	}
	if dest == nil {
		return nil
	}
	return decodeRows(data, dest, queryOptions{single: true, maybe: true})
}

// Update patches rows matching the filter options. When dest is non-nil
// the first updated row is decoded into it; Single() makes zero updated
// rows an ErrNotFound.
func (c *Client) Update(ctx context.Context, table string, patch any, dest any, opts ...Option) error {
	q := buildOptions(opts)

	data, rerr := c.doTable(ctx, table, "update", http.MethodPatch, q.encode(), patch)
	if rerr != nil {
		return rerr
	}
	if dest == nil && !q.single {
		return nil
	}
	if dest == nil {
		// Caller only wants the zero-rows check.
		var rows []json.RawMessage
		if err := json.Unmarshal(data, &rows); err != nil {
			return &Error{Code: CodeRemoteUnavailable, Message: "malformed store response"}
		}
		if len(rows) == 0 && !q.maybe {
			return ErrNotFound
		}
		return nil
	}
	return decodeRows(data, dest, queryOptions{single: true, maybe: q.maybe || !q.single})
}

// Delete removes rows matching the filter options.
func (c *Client) Delete(ctx context.Context, table string, opts ...Option) error {
	q := buildOptions(opts)
	_, rerr := c.doTable(ctx, table, "delete", http.MethodDelete, q.encode(), nil)
	if rerr != nil {
		return rerr
	}
	return nil
}

// RPC invokes a named remote procedure. It exists as a fallback for
// writes rejected by the store's row-level policy engine and must only
// be attempted after a direct operation has failed.
func (c *Client) RPC(ctx context.Context, name string, args any, dest any) error {
	data, rerr := c.do(ctx, "rpc", http.MethodPost, "/rest/v1/rpc/"+name, nil, args)
	if rerr != nil {
		return rerr
	}
	if dest == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return &Error{Code: CodeRemoteUnavailable, Message: "malformed rpc response"}
	}
	return nil
}

func (c *Client) doTable(ctx context.Context, table, op, method string, query url.Values, body any) ([]byte, *Error) {
	data, rerr := c.do(ctx, op, method, "/rest/v1/"+table, query, body)

	outcome := "ok"
	if rerr != nil {
		outcome = rerr.Code
	}
	metrics.RemoteRequestsTotal.WithLabelValues(table, op, outcome).Inc()

	return data, rerr
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body any) ([]byte, *Error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &Error{Code: CodeRemoteUnavailable, Message: err.Error()}
	}

	timer := prometheus.NewTimer(metrics.RemoteRequestDuration.WithLabelValues(op))
	defer timer.ObserveDuration()

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, &Error{Code: CodeValidationFailed, Message: fmt.Sprintf("encode request: %v", err)}
		}
		reqBody = bytes.NewReader(encoded)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, &Error{Code: CodeRemoteUnavailable, Message: err.Error()}
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if method == http.MethodPost || method == http.MethodPatch {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Code: CodeRemoteUnavailable, Message: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Code: CodeRemoteUnavailable, Message: err.Error()}
	}

	if resp.StatusCode >= 400 {
		var storeErr struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(data, &storeErr)
		if storeErr.Message == "" {
			storeErr.Message = fmt.Sprintf("store returned status %d", resp.StatusCode)
		}
		return nil, mapStoreError(resp.StatusCode, storeErr.Code, storeErr.Message)
	}

	return data, nil
}

// decodeRows interprets a store row-set response. Row sets arrive as
// JSON arrays; single-row expectations take the first element.
func decodeRows(data []byte, dest any, q queryOptions) error {
	if dest == nil {
		return nil
	}
	if !q.single {
		if err := json.Unmarshal(data, dest); err != nil {
			return &Error{Code: CodeRemoteUnavailable, Message: "malformed store response"}
		}
		return nil
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return &Error{Code: CodeRemoteUnavailable, Message: "malformed store response"}
	}
	if len(rows) == 0 {
		if q.maybe {
			return nil
		}
		return ErrNotFound
	}
	if err := json.Unmarshal(rows[0], dest); err != nil {
		return &Error{Code: CodeRemoteUnavailable, Message: "malformed store row"}
	}
	return nil
}
