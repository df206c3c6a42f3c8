// internal/supplier/client.go
package supplier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Config struct {
	BaseURL    string
	Email      string
	Password   string
	PageSize   int
	MaxRetries int
	Timeout    time.Duration
}

// RawRecord is one product as the supplier sends it. Inventory is a float
// on purpose: the transformer rejects fractional quantities instead of the
// decoder silently failing the whole page.
type RawRecord struct {
	SKU         string  `json:"gtin"`
	Name        string  `json:"name"`
	Brand       string  `json:"brand"`
	Category    string  `json:"category"`
	Cost        float64 `json:"price"`
	Inventory   float64 `json:"inventory"`
	Supplier    string  `json:"supplier"`
	Description string  `json:"description"`
	ImageURL    string  `json:"image_url"`
}

// Page is one batch of the supplier catalog. An empty Next means end of data.
type Page struct {
	Records []RawRecord `json:"results"`
	Next    string      `json:"next"`
}

// session is the short-lived supplier credential. Owned by Client, never
// persisted, never handed to callers.
type session struct {
	access  string
	refresh string
}

type loginResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type Client struct {
	log  zerolog.Logger
	cfg  Config
	http *http.Client

	mu   sync.Mutex
	sess *session
}

func New(log zerolog.Logger, cfg Config) *Client {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		log:  log,
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// Authenticate exchanges email/password for a bearer token. Network errors
// and 5xx answers are retried with backoff up to MaxRetries attempts; a 4xx
// means the credentials are bad and fails immediately.
func (c *Client) Authenticate(ctx context.Context) error {
	if c.cfg.Email == "" || c.cfg.Password == "" {
		return &AuthError{Reason: "email and password not configured"}
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		sess, retryable, err := c.login(ctx)
		if err == nil {
			c.mu.Lock()
			c.sess = sess
			c.mu.Unlock()
			c.log.Info().Msg("supplier authenticated")
			return nil
		}
		if !retryable {
			return &AuthError{Reason: "login rejected", Err: err}
		}
		lastErr = err
		c.log.Warn().Err(err).Int("attempt", attempt).Msg("supplier auth failed, will retry")
		if attempt < c.cfg.MaxRetries {
			if err := sleep(ctx, backoff(attempt)); err != nil {
				return &AuthError{Reason: "canceled", Err: err}
			}
		}
	}
	return &AuthError{Reason: "auth endpoint unreachable", Err: lastErr}
}

func (c *Client) login(ctx context.Context) (*session, bool, error) {
	body, _ := json.Marshal(map[string]string{
		"email":    c.cfg.Email,
		"password": c.cfg.Password,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/auth/login/", bytes.NewReader(body))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "EasyCareMarket-B2B/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("login: http %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, false, fmt.Errorf("login: http %d", resp.StatusCode)
	}

	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return nil, false, fmt.Errorf("decode login response: %w", err)
	}
	if lr.Access == "" {
		return nil, false, fmt.Errorf("login response missing access token")
	}
	return &session{access: lr.Access, refresh: lr.Refresh}, false, nil
}

// FetchPage returns one batch of product records. A 401 triggers one
// transparent re-auth and one replay before the error propagates.
func (c *Client) FetchPage(ctx context.Context, cursor string) (*Page, error) {
	token := c.token()
	if token == "" {
		if err := c.Authenticate(ctx); err != nil {
			return nil, err
		}
		token = c.token()
	}

	page, status, err := c.getPage(ctx, cursor, token)
	if status == http.StatusUnauthorized {
		c.log.Info().Msg("supplier session rejected, re-authenticating")
		if err := c.Authenticate(ctx); err != nil {
			return nil, err
		}
		page, _, err = c.getPage(ctx, cursor, c.token())
	}
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (c *Client) getPage(ctx context.Context, cursor, token string) (*Page, int, error) {
	u, err := url.Parse(c.cfg.BaseURL + "/variants/search/")
	if err != nil {
		return nil, 0, &FatalError{Op: "fetch", Err: err}
	}
	q := u.Query()
	q.Set("size", strconv.Itoa(c.cfg.PageSize))
	q.Set("in_stock_only", "true")
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, 0, &FatalError{Op: "fetch", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "EasyCareMarket-B2B/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		// timeouts and connection resets land here
		return nil, 0, &TransientError{Op: "fetch", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, resp.StatusCode, &FatalError{Op: "fetch", Status: resp.StatusCode}
	case resp.StatusCode >= 500:
		return nil, resp.StatusCode, &TransientError{Op: "fetch", Err: fmt.Errorf("http %d", resp.StatusCode)}
	default:
		return nil, resp.StatusCode, &FatalError{Op: "fetch", Status: resp.StatusCode}
	}

	var page Page
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, resp.StatusCode, &FatalError{Op: "fetch", Err: fmt.Errorf("decode page: %w", err)}
	}
	return &page, resp.StatusCode, nil
}

// TestConnection authenticates and pulls a single page without touching the
// catalog. Used by the status endpoint.
func (c *Client) TestConnection(ctx context.Context) error {
	if err := c.Authenticate(ctx); err != nil {
		return err
	}
	if _, err := c.FetchPage(ctx, ""); err != nil {
		return err
	}
	return nil
}

func (c *Client) token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return ""
	}
	return c.sess.access
}

// backoff doubles per attempt: 500ms, 1s, 2s, ... capped at 8s.
func backoff(attempt int) time.Duration {
	d := 500 * time.Millisecond << (attempt - 1)
	if d > 8*time.Second {
		d = 8 * time.Second
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
