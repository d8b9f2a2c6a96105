package verifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Doer sends an HTTP request. Satisfied by pipeline.Client, which adds
// the credential and the transparent refresh cycle.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// User is a registered principal, as returned by the register endpoint.
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// VerifyResult is the outcome of a multi-frame liveness verification.
type VerifyResult struct {
	Verified         bool    `json:"verified"`
	Similarity       float64 `json:"similarity"`
	RotationDetected bool    `json:"rotation_detected"`
}

// AuditEvent is one entry of the server-side audit trail.
type AuditEvent struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Action    string    `json:"action"`
	Success   bool      `json:"success"`
	Timestamp time.Time `json:"timestamp"`
}

// Client talks to the remote verifier through a Doer.
type Client struct {
	baseURL string
	doer    Doer
}

// NewClient creates a verifier client. Requests are sent through doer,
// which owns credential attachment and refresh.
func NewClient(baseURL string, doer Doer) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		doer:    doer,
	}
}

// Register creates a new account. The PIN is optional at registration;
// it can be set later with SetPin.
func (c *Client) Register(ctx context.Context, email, password, pin string) (*User, error) {
	body := map[string]string{"email": email, "password": password}
	if pin != "" {
		body["pin"] = pin
	}
	var user User
	if err := c.postJSON(ctx, "/auth/register", body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login exchanges email and password for an access credential. The
// verifier also sets the ambient refresh cookie on the shared transport.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var out struct {
		AccessToken string `json:"access_token"`
	}
	err := c.postJSON(ctx, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("verifier: login response missing access_token")
	}
	return out.AccessToken, nil
}

// SetPin registers the fallback PIN for a subject.
func (c *Client) SetPin(ctx context.Context, subjectID int64, pin string) error {
	return c.postJSON(ctx, "/auth/set_pin", map[string]any{
		"user_id": subjectID,
		"pin":     pin,
	}, nil)
}

// LoginPin exchanges subject id and PIN for an access credential.
// A 401 means wrong PIN; a 403 means the PIN is temporarily locked and
// the error detail carries the cooldown hint.
func (c *Client) LoginPin(ctx context.Context, subjectID int64, pin string) (string, error) {
	var out struct {
		AccessToken string `json:"access_token"`
	}
	err := c.postJSON(ctx, "/auth/login/pin", map[string]any{
		"user_id": subjectID,
		"pin":     pin,
	}, &out)
	if err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("verifier: pin login response missing access_token")
	}
	return out.AccessToken, nil
}

// Logout tells the verifier to drop the ambient refresh session.
// Best-effort: callers clear local state regardless of the outcome.
func (c *Client) Logout(ctx context.Context) error {
	return c.postJSON(ctx, "/auth/logout", nil, nil)
}

// FaceEnroll submits a single frontal frame as the subject's face
// template.
func (c *Client) FaceEnroll(ctx context.Context, subjectID int64, frame []byte) error {
	path := "/biometrics/face/enroll?user_id=" + strconv.FormatInt(subjectID, 10)
	return c.postFrames(ctx, path, "file", [][]byte{frame}, nil)
}

// FaceVerifyMultiFrame submits the ordered liveness frame set. Frame
// order is part of the protocol: frame 0 frontal, frame 1 turned,
// further frames stabilization. Fewer than 2 frames is rejected before
// any network call.
func (c *Client) FaceVerifyMultiFrame(ctx context.Context, subjectID int64, frames [][]byte) (*VerifyResult, error) {
	if len(frames) < 2 {
		return nil, ErrInsufficientFrames
	}
	path := "/biometrics/face/verify-multiframe?user_id=" + strconv.FormatInt(subjectID, 10)
	var result VerifyResult
	if err := c.postFrames(ctx, path, "files", frames, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// AuditLog fetches the server-side audit trail for the current subject.
func (c *Client) AuditLog(ctx context.Context) ([]AuditEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/audit", nil)
	if err != nil {
		return nil, err
	}
	var events []AuditEvent
	if err := c.send(req, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// postJSON sends a JSON body and decodes a JSON response into out
// (out may be nil when the response body doesn't matter).
func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

// postFrames sends frames as a multipart form, one part per frame under
// the given field name, preserving order.
func (c *Client) postFrames(ctx context.Context, path, field string, frames [][]byte, out any) error {
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for i, frame := range frames {
		part, err := mw.CreateFormFile(field, fmt.Sprintf("frame-%d.jpg", i))
		if err != nil {
			return fmt.Errorf("build multipart form: %w", err)
		}
		if _, err := part.Write(frame); err != nil {
			return fmt.Errorf("write frame %d: %w", i, err)
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("finalize multipart form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.send(req, out)
}

// send dispatches the request through the pipeline and normalizes the
// response: 2xx decodes into out, anything else becomes an *APIError.
func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.doer.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseAPIError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
