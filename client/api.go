// Package client is the dashboard front end without a screen: a REST
// wrapper that owns the bearer token, one service per backend area, the
// session, refresh propagation and the page workflows. The CLI in
// cmd/carga drives it, and so do the tests.
package client

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

	"go.uber.org/zap"
)

// DefaultBaseURL is used when Options.BaseURL is empty.
const DefaultBaseURL = "http://localhost:5000/api"

const defaultTimeout = 30 * time.Second

// Options configures an API. Zero values pick the defaults.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client

	// Language is sent as Accept-Language so server messages come back
	// localized.
	Language string
	Logger   *zap.Logger
}

// API issues authenticated requests against the backend.
type API struct {
	http     *http.Client
	baseURL  string
	language string
	store    CredentialStore
	nav      Navigator
	logger   *zap.Logger

	mu             sync.Mutex
	onUnauthorized []func()
}

// Error is a failed call. Status is 0 when the request never got an answer.
type Error struct {
	Status  int
	Message string
	Code    string
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data,omitempty"`
	Message   string          `json:"message,omitempty"`
	ErrorCode string          `json:"error_code,omitempty"`
}

func NewAPI(store CredentialStore, nav Navigator, opts Options) *API {
	a := &API{
		http:     opts.HTTPClient,
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		language: opts.Language,
		store:    store,
		nav:      nav,
		logger:   opts.Logger,
	}
	if a.http == nil {
		a.http = &http.Client{Timeout: defaultTimeout}
	}
	if a.baseURL == "" {
		a.baseURL = DefaultBaseURL
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	return a
}

// BaseURL returns the API root without a trailing slash.
func (a *API) BaseURL() string { return a.baseURL }

// OnUnauthorized registers fn to run after a 401 has cleared the store.
func (a *API) OnUnauthorized(fn func()) {
	a.mu.Lock()
	a.onUnauthorized = append(a.onUnauthorized, fn)
	a.mu.Unlock()
}

// Token returns the stored bearer token.
func (a *API) Token() (string, bool) {
	return storedToken(a.store)
}

func (a *API) Get(ctx context.Context, path string, query url.Values, out any) error {
	return a.Do(ctx, http.MethodGet, path, query, nil, out)
}

func (a *API) Post(ctx context.Context, path string, body, out any) error {
	return a.Do(ctx, http.MethodPost, path, nil, body, out)
}

func (a *API) Put(ctx context.Context, path string, body, out any) error {
	return a.Do(ctx, http.MethodPut, path, nil, body, out)
}

func (a *API) Delete(ctx context.Context, path string, out any) error {
	return a.Do(ctx, http.MethodDelete, path, nil, nil, out)
}

// Do sends one request. path is relative to the base URL and must already
// be escaped. The envelope's data member is decoded into out when out is
// non-nil.
func (a *API) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := a.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.language != "" {
		req.Header.Set("Accept-Language", a.language)
	}
	if token, ok := storedToken(a.store); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return &Error{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		a.handleUnauthorized()
	}

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Status: resp.StatusCode, Message: err.Error()}
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			// Proxies answer with HTML or plain text.
			return &Error{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Success {
		return &Error{Status: resp.StatusCode, Message: env.Message, Code: env.ErrorCode}
	}

	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return nil
}

// handleUnauthorized clears the credentials and leaves the current screen
// unless it already is the login screen.
func (a *API) handleUnauthorized() {
	if err := clearCredentials(a.store); err != nil {
		a.logger.Warn("failed to clear credentials", zap.Error(err))
	}

	a.mu.Lock()
	hooks := append([]func(){}, a.onUnauthorized...)
	a.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}

	if a.nav != nil && !strings.Contains(a.nav.CurrentRoute(), LoginRoute) {
		a.nav.GoToLogin()
	}
}
