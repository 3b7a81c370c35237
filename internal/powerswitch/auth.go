package powerswitch

import (
	"context"
	"crypto/md5" // #nosec G501 - the switch's login scheme is fixed to MD5
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/muurk/dlipower/internal/logging"
)

const (
	loginPath      = "/login.tgi"
	challengeField = "Challenge"
)

// ChallengeDigest computes the login response: the hex MD5 of
// challenge+username+password+challenge, in exactly that order.
func ChallengeDigest(challenge, username, password string) string {
	sum := md5.Sum([]byte(challenge + username + password + challenge)) // #nosec G401
	return hex.EncodeToString(sum[:])
}

// Login performs the challenge-response login and selects the session mode.
//
//  1. GET / without following redirects. A redirect is followed exactly once
//     and becomes the new base URL.
//  2. Read the login form's inputs; Challenge is required.
//  3. POST Username and the challenge digest to /login.tgi.
//  4. On 200 the switch is detected. A Set-Cookie in the reply selects
//     CookieAuthMode, otherwise requests use HTTP Basic credentials.
//
// Any failure leaves the client Unauthenticated and not reachable; the error
// is returned and also kept for LastError.
func (c *Client) Login(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.session = Unauthenticated
	c.detected = false
	c.lastErr = nil
	c.http = c.newHTTPClient(nil)
	c.baseURL = c.endpoint.BaseURL()

	err := c.login(ctx)
	if err != nil {
		c.lastErr = err
		logging.Warn("Login failed",
			zap.String("switch", c.name),
			zap.String("url", c.baseURL),
			zap.Error(err),
		)
		return err
	}

	logging.Debug("Logged in",
		zap.String("switch", c.name),
		zap.String("url", c.baseURL),
		zap.Stringer("session", c.session),
	)
	return nil
}

// login runs the handshake. Callers hold c.mu.
func (c *Client) login(ctx context.Context) error {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return fmt.Errorf("failed to create cookie jar: %w", err)
	}
	session := c.newHTTPClient(jar)

	page, err := c.probe(ctx, session)
	if err != nil {
		return err
	}

	fields, err := ParseLoginForm(strings.NewReader(page))
	if err != nil {
		return NewAuthError("unreadable login page", err)
	}
	challenge, ok := fields[challengeField]
	if !ok {
		return NewAuthError("login form has no Challenge field", nil)
	}

	form := url.Values{}
	form.Set("Username", c.endpoint.Username)
	form.Set("Password", ChallengeDigest(challenge, c.endpoint.Username, c.endpoint.Password))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginPath, strings.NewReader(form.Encode()))
	if err != nil {
		return NewNetworkError("failed to create login request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	logging.LogRequest(req.Method, req.URL.String(), 1)
	resp, err := session.Do(req)
	if err != nil {
		return NewNetworkError("login request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	logging.LogResponse(req.URL.String(), resp.StatusCode, 0)

	if resp.StatusCode != http.StatusOK {
		return NewAuthError(fmt.Sprintf("login rejected with status %d", resp.StatusCode), nil)
	}

	c.detected = true
	if len(resp.Header.Values("Set-Cookie")) > 0 {
		c.session = CookieAuthMode
		c.http = session
	} else {
		c.session = BasicAuthMode
	}
	return nil
}

// probe fetches the login page, following at most one redirect and adopting
// its target as the new base URL.
func (c *Client) probe(ctx context.Context, session *http.Client) (string, error) {
	noRedirect := *session
	noRedirect.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	resp, err := c.get(ctx, &noRedirect, c.baseURL+"/")
	if err != nil {
		return "", err
	}

	if isRedirect(resp.StatusCode) {
		location, locErr := resp.Location()
		_ = resp.Body.Close()
		if locErr != nil {
			return "", NewAuthError("redirect without a usable Location", locErr)
		}
		c.baseURL = strings.TrimRight(location.String(), "/")
		logging.Debug("Redirecting",
			zap.String("switch", c.name),
			zap.String("url", c.baseURL),
		)

		resp, err = c.get(ctx, session, c.baseURL+"/")
		if err != nil {
			return "", err
		}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", NewNetworkError("failed to read login page", err)
	}
	logging.LogRawBody("Login page", body)
	return string(body), nil
}

func (c *Client) get(ctx context.Context, hc *http.Client, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, NewNetworkError("failed to create GET request", err)
	}
	logging.LogRequest(req.Method, rawURL, 1)
	resp, err := hc.Do(req)
	if err != nil {
		return nil, NewNetworkError("switch unreachable", err)
	}
	logging.LogResponse(rawURL, resp.StatusCode, int(resp.ContentLength))
	return resp, nil
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}
