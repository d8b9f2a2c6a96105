package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yerzatm002/biometric-auth-system/pkg/audit"
	"github.com/yerzatm002/biometric-auth-system/pkg/session"
)

// ErrRefreshFailed is returned when a refresh cycle fails and the
// session has been invalidated. The caller's original request was not
// retried and will not succeed until the user authenticates again.
var ErrRefreshFailed = errors.New("pipeline: credential refresh failed")

// DefaultRefreshTimeout bounds a single refresh round-trip. Without it a
// hung refresh call would stall every queued waiter indefinitely.
const DefaultRefreshTimeout = 15 * time.Second

// Config configures a Client.
type Config struct {
	// RefreshURL is the absolute URL of the refresh endpoint. The call
	// is authenticated by the ambient session cookie held in the
	// client's cookie jar, not by the bearer credential.
	RefreshURL string

	// RefreshTimeout bounds the refresh round-trip. Zero means
	// DefaultRefreshTimeout.
	RefreshTimeout time.Duration

	// HTTPClient is the underlying transport. If nil, a client with a
	// fresh cookie jar is created (the jar carries the refresh cookie
	// set by the login endpoint).
	HTTPClient *http.Client

	// Logger for refresh-cycle events. If nil, slog.Default() is used.
	Logger *slog.Logger

	// Recorder, when set, receives a session.refreshed audit event for
	// every successful refresh cycle.
	Recorder *audit.Recorder
}

// refreshResult is what each queued waiter receives when the in-flight
// refresh cycle completes.
type refreshResult struct {
	header string
	err    error
}

// Client sends requests with the current credential attached and
// recovers from expired credentials transparently. Safe for concurrent
// use.
type Client struct {
	http           *http.Client
	session        *session.Store
	refreshURL     string
	refreshTimeout time.Duration
	logger         *slog.Logger
	recorder       *audit.Recorder

	mu         sync.Mutex
	refreshing bool
	waiters    []chan refreshResult
}

// New creates a pipeline client bound to the given session store.
func New(sess *session.Store, cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		jar, _ := cookiejar.New(nil)
		httpClient = &http.Client{Jar: jar}
	}
	timeout := cfg.RefreshTimeout
	if timeout <= 0 {
		timeout = DefaultRefreshTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		http:           httpClient,
		session:        sess,
		refreshURL:     cfg.RefreshURL,
		refreshTimeout: timeout,
		logger:         logger,
		recorder:       cfg.Recorder,
	}
}

// HTTPClient exposes the underlying transport so collaborators (login,
// which needs the refresh cookie recorded in the same jar) share it.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// Do sends the request with the current credential attached. On a 401
// it refreshes the credential (joining an in-flight cycle if one is
// already running) and retries the request exactly once. Every other
// response passes through unchanged.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("X-Request-ID") == "" {
		req.Header.Set("X-Request-ID", uuid.NewString())
	}
	if auth, ok := c.session.AuthorizationHeader(); ok {
		req.Header.Set("Authorization", auth)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	// A request whose body cannot be rebuilt cannot be retried; the 401
	// surfaces as-is and the caller decides what to do.
	if req.Body != nil && req.GetBody == nil {
		return resp, nil
	}

	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	auth, err := c.refreshOrWait(req.Context())
	if err != nil {
		return nil, err
	}

	retry := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("rebuild request body for retry: %w", err)
		}
		retry.Body = body
	}
	retry.Header.Set("Authorization", auth)

	resp, err = c.http.Do(retry)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		// Retried once with a fresh credential and still rejected; the
		// session is not worth keeping. Never loop.
		c.logger.Warn("request unauthorized after refresh, invalidating session",
			"path", req.URL.Path)
		if clearErr := c.session.ClearCredential(); clearErr != nil {
			c.logger.Error("failed to clear session", "error", clearErr)
		}
	}
	return resp, nil
}

// refreshOrWait returns the Authorization header produced by a refresh
// cycle. The first caller to arrive starts the cycle; everyone else is
// queued and released in enqueue order when it completes, all observing
// the same credential.
func (c *Client) refreshOrWait(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.refreshing {
		ch := make(chan refreshResult, 1)
		c.waiters = append(c.waiters, ch)
		c.mu.Unlock()

		select {
		case res := <-ch:
			return res.header, res.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	c.refreshing = true
	c.mu.Unlock()

	header, err := c.refresh()

	// Drain the queue and clear the flag no matter how the refresh
	// ended, or queued callers would hang forever.
	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.refreshing = false
	c.mu.Unlock()

	res := refreshResult{header: header, err: err}
	for _, ch := range waiters {
		ch <- res
	}
	return header, err
}

// refresh performs the refresh round-trip. On any failure the session
// is invalidated: an unauthorized refresh is terminal, never retried.
func (c *Client) refresh() (string, error) {
	// Deliberately not tied to any single caller's context: the cycle
	// serves every queued waiter, so one caller hanging up must not
	// cancel it for the rest.
	ctx, cancel := context.WithTimeout(context.Background(), c.refreshTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.refreshURL, nil)
	if err != nil {
		return "", c.invalidate(fmt.Errorf("build refresh request: %w", err))
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", c.invalidate(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", c.invalidate(fmt.Errorf("refresh endpoint returned %d", resp.StatusCode))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", c.invalidate(fmt.Errorf("decode refresh response: %w", err))
	}
	if payload.AccessToken == "" {
		return "", c.invalidate(errors.New("refresh response missing access_token"))
	}

	if err := c.session.SetCredential(payload.AccessToken, 0); err != nil {
		return "", c.invalidate(fmt.Errorf("store refreshed credential: %w", err))
	}

	auth, ok := c.session.AuthorizationHeader()
	if !ok {
		return "", c.invalidate(errors.New("session empty after refresh"))
	}
	if c.recorder != nil {
		c.recorder.Record(audit.EventSessionRefreshed,
			strconv.FormatInt(c.session.Snapshot().SubjectID, 10), "")
	}
	c.logger.Debug("credential refreshed")
	return auth, nil
}

// invalidate clears the session and wraps the cause in ErrRefreshFailed.
func (c *Client) invalidate(cause error) error {
	c.logger.Warn("refresh cycle failed, invalidating session", "error", cause)
	if err := c.session.ClearCredential(); err != nil {
		c.logger.Error("failed to clear session", "error", err)
	}
	return fmt.Errorf("%w: %s", ErrRefreshFailed, cause)
}
