package devclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/muurk/wifiprov/internal/urls"
	"github.com/muurk/wifiprov/internal/version"
)

const (
	// DefaultTimeout is the per-request timeout. Scans can take several seconds.
	DefaultTimeout = 20 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for failed requests
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the initial delay between retry attempts
	DefaultRetryDelay = 500 * time.Millisecond

	// DefaultMaxRetryDelay caps exponential backoff
	DefaultMaxRetryDelay = 5 * time.Second
)

// Client talks to one device.
type Client struct {
	// BaseURL is the device root, e.g. "http://192.168.4.1:80"
	BaseURL string

	HTTPClient *http.Client

	MaxRetries    int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// NewClient creates a client for host:port.
func NewClient(host string, port int) *Client {
	return NewClientWithURL("http://" + net.JoinHostPort(host, strconv.Itoa(port)))
}

// NewClientWithURL creates a client for a full base URL. A bare host or
// host:port is accepted and gets an http scheme.
func NewClientWithURL(baseURL string) *Client {
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		// Redirects are answers too: the portal sends unknown paths home.
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		MaxRetries:    DefaultMaxRetries,
		RetryDelay:    DefaultRetryDelay,
		MaxRetryDelay: DefaultMaxRetryDelay,
	}
}

// SetRetry configures retry behavior
func (c *Client) SetRetry(maxRetries int, retryDelay time.Duration) {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
}

func (c *Client) host() string {
	if u, err := url.Parse(c.BaseURL); err == nil {
		return u.Hostname()
	}
	return c.BaseURL
}

// Status fetches /status from the connected surface.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var status Status
	err := c.withRetry(ctx, func() error {
		body, err := c.do(ctx, http.MethodGet, urls.Status, nil)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(body, &status); err != nil {
			return NewParseError("failed to parse status", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// Scan asks the portal for nearby networks, strongest first.
func (c *Client) Scan(ctx context.Context) ([]Network, error) {
	var networks []Network
	err := c.withRetry(ctx, func() error {
		body, err := c.do(ctx, http.MethodGet, urls.Scan, nil)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(body, &networks); err != nil {
			return NewParseError("failed to parse scan results", err)
		}
		return nil
	})
	return networks, err
}

// Save submits credentials to the portal. resetPassword is stored as the
// reset secret when the device requires authenticated resets. The device
// restarts shortly after answering, so Save is never retried.
func (c *Client) Save(ctx context.Context, ssid, password, resetPassword string) (string, error) {
	if ssid == "" {
		return "", NewValidationError("SSID is required")
	}
	form := url.Values{"ssid": {ssid}, "password": {password}}
	if resetPassword != "" {
		form.Set("reset_password", resetPassword)
	}
	body, err := c.do(ctx, http.MethodPost, urls.Save, form)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Reset requests a factory reset. password is the reset secret, if any.
// Resets are never retried.
func (c *Client) Reset(ctx context.Context, password string) (string, error) {
	var form url.Values
	if password != "" {
		form = url.Values{"password": {password}}
	}
	body, err := c.do(ctx, http.MethodPost, urls.Reset, form)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Ping checks that something answers at the base URL.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, urls.Root, nil)
	if devErr, ok := err.(*DeviceError); ok && devErr.Type == ErrTypeHTTP && devErr.StatusCode < 500 {
		return nil
	}
	return err
}

func (c *Client) withRetry(ctx context.Context, attempt func() error) error {
	var lastErr error
	delay := c.RetryDelay

	for i := 0; i <= c.MaxRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return NewNetworkError("request cancelled", ctx.Err())
			case <-time.After(delay):
			}
			delay *= 2
			if delay > c.MaxRetryDelay {
				delay = c.MaxRetryDelay
			}
		}

		err := attempt()
		if err == nil {
			return nil
		}
		lastErr = err
		if !IsRetryable(err) {
			return err
		}
	}
	return lastErr
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values) ([]byte, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, NewNetworkError("failed to create request", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, ClassifyNetworkError(err, c.host())
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewNetworkError("failed to read response body", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return data, nil
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, NewAuthError(strings.TrimSpace(string(data)))
	case resp.StatusCode == http.StatusForbidden:
		return nil, NewDisabledError(strings.TrimSpace(string(data)))
	case (resp.StatusCode == http.StatusFound || resp.StatusCode == http.StatusNotFound) && path != urls.Root:
		return nil, NewWrongSurfaceError(path)
	default:
		msg := strings.TrimSpace(string(data))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, NewHTTPError(resp.StatusCode, fmt.Sprintf("%s %s: %s", method, path, msg))
	}
}
