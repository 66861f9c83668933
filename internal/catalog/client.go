// Package catalog talks to the mod server: session login and the mod list.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"acsync/internal/domain"
	"acsync/internal/logging"

	"github.com/rs/zerolog"
	"golang.org/x/net/publicsuffix"
)

const (
	// DefaultServer is the mod server used when none is configured
	DefaultServer = "https://acsync.team8.pl"

	loginPath    = "/login"
	modsPath     = "/mods.json"
	downloadPath = "/mod_management/download?hash="

	// sessionCookie is set by the server only when the credentials were accepted
	sessionCookie = "user_name"
)

// Client holds an authenticated session with the mod server
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     zerolog.Logger
}

// NewClient creates a client for server (DefaultServer when empty). The client
// keeps cookies and does not follow redirects.
func NewClient(server string) (*Client, error) {
	if server == "" {
		server = DefaultServer
	}
	server = strings.TrimRight(server, "/")
	if _, err := url.ParseRequestURI(server); err != nil {
		return nil, fmt.Errorf("%w: server url %q: %v", domain.ErrInvalidConfig, server, err)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}

	return &Client{
		httpClient: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		baseURL: server,
		logger:  logging.L("catalog"),
	}, nil
}

// BaseURL returns the server address
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HTTPClient returns the session-carrying client, for downloads
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// DownloadBase returns the prefix a checksum is appended to for downloading
func (c *Client) DownloadBase() string {
	return c.baseURL + downloadPath
}

// Login opens a session. The server answers a successful login with a
// user_name cookie; anything else means the credentials were refused.
func (c *Client) Login(ctx context.Context, login, password string) (err error) {
	if login == "" {
		return domain.ErrAuthRequired
	}

	form := url.Values{"login": {login}, "password": {password}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginPath, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	c.logger.Debug().Str("login", login).Str("server", c.baseURL).Msg("Logging in")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WithKind(domain.ErrTransport, fmt.Errorf("executing request: %w", err))
	}
	defer func() {
		if cerr := resp.Body.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing response body: %w", cerr)
		}
	}()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	for _, cookie := range resp.Cookies() {
		if cookie.Name == sessionCookie {
			c.logger.Info().Str("login", login).Msg("Logged in")
			return nil
		}
	}

	c.logger.Warn().Str("login", login).Int("status", resp.StatusCode).Msg("Login refused")
	return domain.ErrAuthFailed
}

// Mods fetches the catalog
func (c *Client) Mods(ctx context.Context) (mods []domain.ModDescriptor, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+modsPath, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.WithKind(domain.ErrTransport, fmt.Errorf("executing request: %w", err))
	}
	defer func() {
		if cerr := resp.Body.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing response body: %w", cerr)
		}
	}()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, domain.ErrAuthRequired
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		// Unauthenticated requests are sent to the login page
		return nil, domain.ErrAuthRequired
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, domain.WithKind(domain.ErrTransport, fmt.Errorf("catalog error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	if err := json.NewDecoder(resp.Body).Decode(&mods); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}

	c.logger.Debug().Int("mods", len(mods)).Msg("Catalog fetched")
	return mods, nil
}
