package jasper

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/teranos/jasper-mcp/errors"
)

// ensureSession lazily establishes a login session. The session cookie
// (JSESSIONID) lives in the client's cookie jar; the server invalidates it
// on its own schedule, at which point calls come back 401 and the caller
// can InvalidateSession and retry.
func (c *Client) ensureSession(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loggedIn {
		return nil
	}
	if err := c.login(ctx); err != nil {
		return err
	}
	c.loggedIn = true
	return nil
}

// login posts the credentials as a form, the only non-JSON call in the API.
func (c *Client) login(ctx context.Context) error {
	form := url.Values{}
	form.Set("j_username", c.qualifiedUsername())
	form.Set("j_password", c.cfg.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL("/login", nil),
		strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(err, "failed to build login request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errors.Wrap(err, "login request to jasperserver failed")
	}
	defer resp.Body.Close()

	// The login endpoint answers 200 on success; some deployments redirect,
	// which http.Client follows before we see the response.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := newStatusError(resp)
		return errors.Wrap(err, "jasperserver login rejected")
	}

	c.log.Infow("jasperserver session established", "user", c.cfg.Username, "organization", c.cfg.Organization)
	return nil
}

// InvalidateSession drops the cached session state so the next call logs in
// again. Call this after a 401 on a previously working session.
func (c *Client) InvalidateSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loggedIn = false
}
