// Package jasper is a thin JSON client for the JasperReports Server rest_v2
// API. It owns transport concerns only: request shaping, authentication,
// rate limiting, and surfacing non-2xx responses as *StatusError. Error
// classification happens upstream in the mcperr package.
package jasper

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/teranos/jasper-mcp/errors"
)

const (
	apiPrefix = "/rest_v2"

	// maxErrorBodyBytes caps how much of an error response body is retained
	maxErrorBodyBytes = 64 * 1024
)

// AuthMethod selects how the client authenticates against the server.
const (
	AuthBasic = "basic" // credentials on every request
	AuthLogin = "login" // POST rest_v2/login once, session cookie afterwards
)

// Config holds the connection settings for one JasperReports Server.
type Config struct {
	BaseURL           string // e.g. http://reports.internal:8080/jasperserver
	Username          string
	Password          string
	Organization      string // multi-tenant qualifier, empty for single-tenant
	AuthMethod        string // AuthBasic or AuthLogin
	Timeout           time.Duration
	RequestsPerMinute int // 0 = unlimited
}

// Client is a JasperReports Server rest_v2 client. Safe for concurrent use.
type Client struct {
	cfg     Config
	base    *url.URL
	httpc   *http.Client
	limiter *rate.Limiter
	log     *zap.SugaredLogger

	mu       sync.Mutex
	loggedIn bool
}

// NewClient validates the configuration and builds a client. The underlying
// http.Client carries a cookie jar so login-session auth can hold JSESSIONID.
func NewClient(cfg Config, log *zap.SugaredLogger) (*Client, error) {
	base, err := validateBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	if cfg.Username == "" {
		return nil, errors.New("jasper username cannot be empty")
	}
	switch cfg.AuthMethod {
	case AuthBasic, AuthLogin:
	case "":
		cfg.AuthMethod = AuthBasic
	default:
		return nil, errors.Newf("unknown auth method %q (want %q or %q)", cfg.AuthMethod, AuthBasic, AuthLogin)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cookie jar")
	}

	return &Client{
		cfg:     cfg,
		base:    base,
		httpc:   &http.Client{Timeout: cfg.Timeout, Jar: jar},
		limiter: newLimiter(cfg.RequestsPerMinute),
		log:     log,
	}, nil
}

// validateBaseURL rejects anything that is not a plain http(s) URL with a host.
func validateBaseURL(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, errors.New("jasper base URL cannot be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrap(err, "invalid jasper base URL")
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, errors.Newf("jasper base URL scheme %q not allowed (want http or https)", u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, errors.New("jasper base URL missing hostname")
	}
	if strings.Contains(raw, "@") {
		// Credentials belong in config, not the URL: http://user@host confuses proxies
		return nil, errors.New("jasper base URL must not embed credentials")
	}
	u.Path = strings.TrimRight(u.Path, "/")
	return u, nil
}

func newLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := perMinute / 6
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst)
}

// SetRequestRate reconfigures the request rate limit at runtime.
// Used by config hot reload; zero or negative removes the limit.
func (c *Client) SetRequestRate(perMinute int) {
	fresh := newLimiter(perMinute)
	c.limiter.SetLimit(fresh.Limit())
	c.limiter.SetBurst(fresh.Burst())
	c.log.Debugw("jasper request rate updated", "requests_per_minute", perMinute)
}

// qualifiedUsername applies the multi-tenant organization qualifier.
func (c *Client) qualifiedUsername() string {
	if c.cfg.Organization == "" {
		return c.cfg.Username
	}
	return c.cfg.Username + "|" + c.cfg.Organization
}

// apiURL joins the base URL, the rest_v2 prefix, and a repository path.
// apiPath segments may contain repository URIs ("/reports/shop/sales.pdf").
func (c *Client) apiURL(apiPath string, query url.Values) string {
	u := *c.base
	u.Path = c.base.Path + apiPrefix + apiPath
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do performs one API request. The caller owns the response body on success;
// non-2xx responses are drained and returned as *StatusError.
func (c *Client) do(ctx context.Context, method, apiPath string, query url.Values, body any, accept string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "rate limiter wait aborted")
	}

	if c.cfg.AuthMethod == AuthLogin && apiPath != "/login" {
		if err := c.ensureSession(ctx); err != nil {
			return nil, err
		}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiURL(apiPath, query), reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	if accept == "" {
		accept = "application/json"
	}
	req.Header.Set("Accept", accept)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.AuthMethod == AuthBasic {
		req.SetBasicAuth(c.qualifiedUsername(), c.cfg.Password)
	}

	started := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "request to jasperserver failed (%s %s)", method, apiPath)
	}

	c.log.Debugw("jasperserver call",
		"method", method,
		"path", apiPath,
		"status", resp.StatusCode,
		"duration_ms", time.Since(started).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, newStatusError(resp)
	}
	return resp, nil
}

// newStatusError reads the error body and attaches the parsed errorDescriptor
// when the server sent one. The descriptor is kept verbatim for diagnostics.
func newStatusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	se := &StatusError{
		StatusCode: resp.StatusCode,
		Body:       string(raw),
	}
	se.Descriptor = parseErrorDescriptor(raw)
	return se
}

// parseErrorDescriptor handles the two shapes the server uses: a single
// descriptor object, or a list of descriptors (first one wins).
func parseErrorDescriptor(raw []byte) *ErrorDescriptor {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}
	if trimmed[0] == '[' {
		var many []ErrorDescriptor
		if err := json.Unmarshal(trimmed, &many); err == nil && len(many) > 0 && many[0].ErrorCode != "" {
			return &many[0]
		}
		return nil
	}
	var one ErrorDescriptor
	if err := json.Unmarshal(trimmed, &one); err == nil && one.ErrorCode != "" {
		return &one
	}
	return nil
}

// getJSON performs a GET and decodes the JSON body into out. Empty bodies
// (204, or 200 with no content) leave out untouched. The response is
// returned so callers can read headers (content type).
func (c *Client) getJSON(ctx context.Context, apiPath string, query url.Values, out any) (*http.Response, error) {
	resp, err := c.do(ctx, http.MethodGet, apiPath, query, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read response body from %s", apiPath)
	}
	if out != nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, errors.Wrapf(err, "failed to decode response from %s", apiPath)
		}
	}
	return resp, nil
}

// postJSON performs a POST with a JSON body and decodes the JSON response.
func (c *Client) postJSON(ctx context.Context, apiPath string, body, out any) error {
	resp, err := c.do(ctx, http.MethodPost, apiPath, nil, body, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.Wrapf(err, "failed to decode response from %s", apiPath)
		}
	}
	return nil
}

// putJSON performs a PUT and returns the response status code. A 204 carries
// no body; out is only decoded on 200.
func (c *Client) putJSON(ctx context.Context, apiPath string, body, out any) (int, error) {
	resp, err := c.do(ctx, http.MethodPut, apiPath, nil, body, "")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, errors.Wrapf(err, "failed to decode response from %s", apiPath)
		}
	}
	return resp.StatusCode, nil
}

// getRaw performs a GET and returns the raw body with its content type.
// Used for rendered report content, which is binary for most formats.
func (c *Client) getRaw(ctx context.Context, apiPath string, query url.Values, accept string) (*ReportOutput, error) {
	resp, err := c.do(ctx, http.MethodGet, apiPath, query, nil, accept)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read response body from %s", apiPath)
	}
	contentType := resp.Header.Get("Content-Type")
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	return &ReportOutput{Content: content, ContentType: contentType}, nil
}
