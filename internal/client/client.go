// Package client is the Go client for the Humon API. It holds no global state:
// every authorized call takes the caller's Session explicitly.
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
)

// Session is the identity a device keeps after registering.
type Session struct {
	UserID      int64  `json:"user_id"`
	AuthToken   string `json:"auth_token"`
	DeviceToken string `json:"device_token"`
}

// Valid reports whether the session can authorize requests.
func (s Session) Valid() bool {
	return s.UserID != 0 && s.AuthToken != ""
}

// ErrNoSession is returned by authorized calls made without a session.
var ErrNoSession = errors.New("client: no session; register first")

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
	Errors     []string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("humon api: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if len(e.Errors) > 0 {
		msg += " (" + strings.Join(e.Errors, "; ") + ")"
	}
	return msg
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

type Client struct {
	baseURL    string
	appSecret  string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default client, which has a 15s timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func New(baseURL, appSecret string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		appSecret:  appSecret,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type credentialsResponse struct {
	ID          int64  `json:"id"`
	AuthToken   string `json:"auth_token"`
	DeviceToken string `json:"device_token"`
}

func (r credentialsResponse) session() Session {
	return Session{UserID: r.ID, AuthToken: r.AuthToken, DeviceToken: r.DeviceToken}
}

// Register exchanges the app secret and device token for a session. An empty
// deviceToken lets the server generate one. Registering again with the same
// device token returns the same session.
func (c *Client) Register(ctx context.Context, deviceToken string) (Session, error) {
	header := http.Header{}
	header.Set("app-secret", c.appSecret)
	if deviceToken != "" {
		header.Set("device-token", deviceToken)
	}

	var out credentialsResponse
	if err := c.do(ctx, http.MethodPost, "/v1/users", header, nil, &out); err != nil {
		return Session{}, err
	}
	return out.session(), nil
}

// RotateToken asks the server for a new auth token. The returned session
// replaces s; s stops working.
func (c *Client) RotateToken(ctx context.Context, s Session) (Session, error) {
	var out credentialsResponse
	if err := c.authorized(ctx, s, http.MethodPost, "/v1/users/me/token", nil, &out); err != nil {
		return Session{}, err
	}
	return out.session(), nil
}

func (c *Client) authorized(ctx context.Context, s Session, method, path string, body, out any) error {
	if !s.Valid() {
		return ErrNoSession
	}
	header := http.Header{}
	header.Set("auth-token", s.AuthToken)
	return c.do(ctx, method, path, header, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, header http.Header, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("client: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}

func decodeAPIError(status int, raw []byte) error {
	var body struct {
		Error   string   `json:"error"`
		Message string   `json:"message"`
		Errors  []string `json:"errors"`
	}
	apiErr := &APIError{StatusCode: status}
	if err := json.Unmarshal(raw, &body); err != nil {
		apiErr.Message = strings.TrimSpace(string(raw))
		return apiErr
	}
	apiErr.Message = body.Message
	if apiErr.Message == "" {
		apiErr.Message = body.Error
	}
	apiErr.Errors = body.Errors
	return apiErr
}

func eventPath(id int64) string {
	return "/v1/events/" + strconv.FormatInt(id, 10)
}

func nearestPath(lat, lon, radiusKm float64) string {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("radius", strconv.FormatFloat(radiusKm, 'f', -1, 64))
	return "/v1/events/nearests?" + q.Encode()
}
