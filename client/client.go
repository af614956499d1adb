// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package client

import (
	"bytes"
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

	"github.com/danielhkuo/votertag/apperr"
	"github.com/danielhkuo/votertag/middleware"
	"github.com/danielhkuo/votertag/models"
	"github.com/danielhkuo/votertag/session"
)

const (
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize caps every decoded body
	MaxResponseSize = 10 * 1024 * 1024
)

// Error is a non-2xx response from the API. It unwraps to the apperr kind
// named by its code so callers can use errors.Is.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d (%s)", e.Status, e.Code)
}

func (e *Error) Unwrap() error {
	switch e.Code {
	case middleware.CodeUnauthenticated:
		return apperr.ErrAuthentication
	case middleware.CodeSessionExpired:
		return apperr.ErrSessionExpired
	case middleware.CodeForbidden:
		return apperr.ErrAuthorization
	case middleware.CodeInvalid:
		return apperr.ErrValidation
	case middleware.CodeNotFound:
		return apperr.ErrNotFound
	case middleware.CodeConflict:
		return apperr.ErrConflict
	}
	return nil
}

// Client talks to a votertag server on behalf of one principal. The
// session it holds is checked locally before every authenticated call.
type Client struct {
	baseURL string
	http    *http.Client
	sess    *session.ClientSession
	now     func() time.Time
}

// New creates a client for baseURL. A nil hc gets a client with
// DefaultTimeout.
func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		sess:    session.NewClientSession(),
		now:     time.Now,
	}
}

// WithClock overrides the time source used for the local expiry check
func (c *Client) WithClock(now func() time.Time) *Client {
	c.now = now
	return c
}

// Session exposes the held session
func (c *Client) Session() *session.ClientSession {
	return c.sess
}

// WatchExpiry starts a watcher that clears the session when its TTL
// elapses. The caller owns the watcher and must Stop it.
func (c *Client) WatchExpiry(ctx context.Context, interval time.Duration, onExpire func()) *session.ExpiryWatcher {
	w := session.NewExpiryWatcher(c.sess, interval, onExpire).WithClock(c.now)
	w.Start(ctx)
	return w
}

// Login authenticates and starts a new local session
func (c *Client) Login(ctx context.Context, username, password string) (models.LoginResponse, error) {
	var resp models.LoginResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login", models.LoginRequest{
		Username: username,
		Password: password,
	}, &resp, false)
	if err != nil {
		return models.LoginResponse{}, err
	}
	c.sess.Start(resp)
	return resp, nil
}

// Logout ends the session on the server and forgets it locally. The local
// session is cleared even when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	token := c.sess.Token()
	c.sess.Clear()
	if token == "" {
		return nil
	}
	return c.send(ctx, http.MethodPost, "/api/auth/logout", token, nil, nil)
}

func (c *Client) Me(ctx context.Context) (models.Principal, error) {
	var p models.Principal
	err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &p, true)
	return p, err
}

// ChangePassword changes the caller's password. The held session stays
// valid and every other session of the principal is revoked.
func (c *Client) ChangePassword(ctx context.Context, req models.ChangePasswordRequest) error {
	return c.do(ctx, http.MethodPost, "/api/auth/change-password", req, nil, true)
}

// ListVoters fetches one page. q takes the same parameters as the
// voters endpoint (name, gender, area, tag, sort, page, ...).
func (c *Client) ListVoters(ctx context.Context, q url.Values) (models.VoterPage, error) {
	var page models.VoterPage
	err := c.do(ctx, http.MethodGet, withQuery("/api/voters", q), nil, &page, true)
	return page, err
}

func (c *Client) GetVoter(ctx context.Context, id int64) (models.Voter, error) {
	var v models.Voter
	err := c.do(ctx, http.MethodGet, voterPath(id), nil, &v, true)
	return v, err
}

// UpdateTag sets or, with a nil tag, clears a voter's tag
func (c *Client) UpdateTag(ctx context.Context, id int64, tag *models.Tag) (models.Voter, error) {
	var v models.Voter
	err := c.do(ctx, http.MethodPatch, voterPath(id), models.UpdateTagRequest{Tag: tag}, &v, true)
	return v, err
}

// BatchUpdateTag applies several tag changes. Per-item failures are
// reported in the response, not as an error.
func (c *Client) BatchUpdateTag(ctx context.Context, items []models.BatchTagItem) (models.BatchUpdateTagResponse, error) {
	var resp models.BatchUpdateTagResponse
	err := c.do(ctx, http.MethodPost, "/api/voters/tags", models.BatchUpdateTagRequest{Items: items}, &resp, true)
	return resp, err
}

// Values lists the distinct values of column (area, district or
// constituency), narrowed to areas when given.
func (c *Client) Values(ctx context.Context, column string, areas ...string) ([]string, error) {
	q := url.Values{}
	for _, a := range areas {
		q.Add("area", a)
	}
	var values []string
	err := c.do(ctx, http.MethodGet, withQuery("/api/values/"+url.PathEscape(column), q), nil, &values, true)
	return values, err
}

func (c *Client) Stats(ctx context.Context, q url.Values) (models.Stats, error) {
	var stats models.Stats
	err := c.do(ctx, http.MethodGet, withQuery("/api/stats", q), nil, &stats, true)
	return stats, err
}

// Export streams the filtered voter CSV into w
func (c *Client) Export(ctx context.Context, q url.Values, w io.Writer) error {
	token, err := c.token()
	if err != nil {
		return err
	}
	resp, err := c.request(ctx, http.MethodGet, withQuery("/api/voters/export", q), token, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.rejectFrom(resp, token)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("failed to read export: %w", err)
	}
	return nil
}

// token applies the local session check. An expired session is cleared
// and refused without contacting the server.
func (c *Client) token() (string, error) {
	if c.sess.Expired(c.now()) {
		c.sess.Clear()
		return "", fmt.Errorf("local check: %w", apperr.ErrSessionExpired)
	}
	token := c.sess.Token()
	if token == "" {
		return "", fmt.Errorf("not logged in: %w", apperr.ErrAuthentication)
	}
	return token, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, authenticated bool) error {
	var token string
	if authenticated {
		var err error
		if token, err = c.token(); err != nil {
			return err
		}
	}
	return c.send(ctx, method, path, token, body, out)
}

func (c *Client) send(ctx context.Context, method, path, token string, body, out any) error {
	resp, err := c.request(ctx, method, path, token, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.rejectFrom(resp, token)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, MaxResponseSize)).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) request(ctx context.Context, method, path, token string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

// rejectFrom decodes an error response. A session the server refuses is
// dropped so the caller logs in again.
func (c *Client) rejectFrom(resp *http.Response, token string) error {
	apiErr := c.errorFrom(resp)
	rejected := errors.Is(apiErr, apperr.ErrSessionExpired) || errors.Is(apiErr, apperr.ErrAuthentication)
	if rejected && token != "" && c.sess.Token() == token {
		c.sess.Clear()
	}
	return apiErr
}

func (c *Client) errorFrom(resp *http.Response) error {
	apiErr := &Error{Status: resp.StatusCode}
	var er models.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, MaxResponseSize)).Decode(&er); err == nil {
		apiErr.Code = er.Code
		apiErr.Message = er.Message
		if apiErr.Message == "" {
			apiErr.Message = er.Error
		}
	}
	return apiErr
}

func voterPath(id int64) string {
	return "/api/voters/" + strconv.FormatInt(id, 10)
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}
