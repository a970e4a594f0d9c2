// internal/idp/client.go
package idp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"better-together-service/internal/domain/auth"
	xerrors "better-together-service/internal/pkg/errors"
)

// Providers the application knows how to initiate OAuth against.
var supportedOAuthProviders = map[string]bool{
	"google":   true,
	"facebook": true,
	"apple":    true,
}

// Client is a thin HTTP adapter to a GoTrue-compatible identity provider.
// It performs no credential checking or token cryptography of its own; it
// calls the provider and interprets results.
//
// A Client is safe for concurrent use. WithSession returns a request-scoped
// copy carrying a user's access token; the original is never mutated.
type Client struct {
	cfg       Config
	http      *http.Client
	userToken string
}

// NewClient creates a provider client authenticated with the anon key.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.timeout()},
	}
}

// WithSession returns a copy of the client that acts as the given user for
// the duration of one request. The access token is only ever sent to the
// provider, never decoded or trusted locally.
func (c *Client) WithSession(accessToken string) *Client {
	scoped := *c
	scoped.userToken = accessToken
	return &scoped
}

// SignUpParams are the signup fields forwarded to the provider. Credentials
// are ephemeral: handed over and discarded.
type SignUpParams struct {
	Email    string
	Password string
	Name     string
	Phone    string
	Metadata map[string]interface{}
}

// SignUp registers a new user. The returned token pair is nil when the
// provider's email-confirmation policy left the signup pending.
func (c *Client) SignUp(ctx context.Context, p SignUpParams) (*auth.User, *auth.TokenPair, error) {
	data := map[string]interface{}{
		"name":      p.Name,
		"full_name": p.Name,
	}
	for k, v := range p.Metadata {
		data[k] = v
	}
	body := map[string]interface{}{
		"email":    p.Email,
		"password": p.Password,
		"data":     data,
	}
	if p.Phone != "" {
		body["phone"] = p.Phone
	}
	if c.cfg.SiteURL != "" {
		body["email_redirect_to"] = c.cfg.SiteURL + "/auth/callback"
	}

	raw, err := c.do(ctx, http.MethodPost, "/auth/v1/signup", body)
	if err != nil {
		return nil, nil, err
	}
	return decodeSessionOrUser(raw)
}

// SignIn exchanges email/password credentials for a token pair. Every
// rejection maps to ErrInvalidCredentials; unknown user and wrong password
// are never distinguished.
func (c *Client) SignIn(ctx context.Context, email, password string) (*auth.User, *auth.TokenPair, error) {
	raw, err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		if xerrors.Is(err, xerrors.ErrUpstreamUnavailable) {
			return nil, nil, err
		}
		return nil, nil, xerrors.Wrap(xerrors.ErrInvalidCredentials, "sign in rejected")
	}
	return decodeSession(raw)
}

// SignOut invalidates the attached session's refresh token at the provider.
// Callers treat failure as success because they also drop cookies locally.
func (c *Client) SignOut(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/auth/v1/logout", nil)
	return err
}

// Refresh rotates a refresh token into a new token pair. The old refresh
// token is single-use: the provider invalidates it on success.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*auth.User, *auth.TokenPair, error) {
	raw, err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=refresh_token", map[string]string{
		"refresh_token": refreshToken,
	})
	if err != nil {
		if xerrors.Is(err, xerrors.ErrUpstreamUnavailable) {
			return nil, nil, err
		}
		return nil, nil, xerrors.Wrap(xerrors.ErrInvalidRefreshToken, "refresh rejected")
	}
	return decodeSession(raw)
}

// RequestPasswordReset asks the provider to send a reset email. Handlers
// report success regardless of the outcome to prevent account enumeration.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	if c.cfg.SiteURL != "" {
		body["redirect_to"] = c.cfg.SiteURL + "/auth/reset-password"
	}
	_, err := c.do(ctx, http.MethodPost, "/auth/v1/recover", body)
	return err
}

// UpdateUserParams are the mutable fields of the authenticated user.
type UpdateUserParams struct {
	Password string
	Phone    string
	Data     map[string]interface{}
}

// UpdateUser changes the attached user's password, phone or metadata.
// Requires a session context (use WithSession first).
func (c *Client) UpdateUser(ctx context.Context, p UpdateUserParams) (*auth.User, error) {
	if c.userToken == "" {
		return nil, xerrors.ErrNotAuthenticated
	}
	body := map[string]interface{}{}
	if p.Password != "" {
		body["password"] = p.Password
	}
	if p.Phone != "" {
		body["phone"] = p.Phone
	}
	if p.Data != nil {
		body["data"] = p.Data
	}

	raw, err := c.do(ctx, http.MethodPut, "/auth/v1/user", body)
	if err != nil {
		return nil, err
	}
	var user auth.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &user, nil
}

// GetUser resolves the identity behind the attached access token. Returns
// ErrNotAuthenticated when the provider rejects the token and
// ErrUpstreamUnavailable when the provider cannot be reached; the two are
// never conflated.
func (c *Client) GetUser(ctx context.Context) (*auth.User, error) {
	if c.userToken == "" {
		return nil, xerrors.ErrNotAuthenticated
	}
	raw, err := c.do(ctx, http.MethodGet, "/auth/v1/user", nil)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrUpstreamUnavailable) {
			return nil, err
		}
		return nil, xerrors.Wrap(xerrors.ErrNotAuthenticated, "token rejected")
	}
	var user auth.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	if user.ID == "" {
		return nil, xerrors.ErrNotAuthenticated
	}
	return &user, nil
}

// AuthorizeURL builds the provider authorization URL for an OAuth flow.
// Pure construction, no network call: the completion of the flow is a
// browser redirect this service does not own.
func (c *Client) AuthorizeURL(provider string) (string, error) {
	if !supportedOAuthProviders[provider] {
		return "", fmt.Errorf("unsupported oauth provider %q", provider)
	}
	q := url.Values{}
	q.Set("provider", provider)
	if c.cfg.SiteURL != "" {
		q.Set("redirect_to", c.cfg.SiteURL+"/auth/callback")
	}
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/auth/v1/authorize?" + q.Encode(), nil
}

// ----- wire plumbing -----

// sessionEnvelope is the provider's session shape: token pair plus user.
type sessionEnvelope struct {
	AccessToken  string     `json:"access_token"`
	TokenType    string     `json:"token_type"`
	ExpiresIn    int        `json:"expires_in"`
	RefreshToken string     `json:"refresh_token"`
	User         *auth.User `json:"user"`
}

func decodeSession(raw []byte) (*auth.User, *auth.TokenPair, error) {
	var env sessionEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, nil, fmt.Errorf("decode session: %w", err)
	}
	if env.AccessToken == "" || env.RefreshToken == "" {
		return nil, nil, fmt.Errorf("provider returned no session")
	}
	pair := &auth.TokenPair{
		AccessToken:  env.AccessToken,
		RefreshToken: env.RefreshToken,
		ExpiresIn:    env.ExpiresIn,
	}
	return env.User, pair, nil
}

// decodeSessionOrUser handles the signup response, which is a session when
// email confirmation is disabled and a bare user record when it is pending.
func decodeSessionOrUser(raw []byte) (*auth.User, *auth.TokenPair, error) {
	var env sessionEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, nil, fmt.Errorf("decode signup response: %w", err)
	}
	if env.AccessToken != "" && env.RefreshToken != "" {
		pair := &auth.TokenPair{
			AccessToken:  env.AccessToken,
			RefreshToken: env.RefreshToken,
			ExpiresIn:    env.ExpiresIn,
		}
		return env.User, pair, nil
	}

	var user auth.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, nil, fmt.Errorf("decode signup user: %w", err)
	}
	if user.ID == "" {
		return nil, nil, fmt.Errorf("provider returned no user")
	}
	return &user, nil, nil
}

// apiError is the provider's error body. Different endpoints use different
// field names; message() picks whichever is populated.
type apiError struct {
	Code             int    `json:"code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorField       string `json:"error"`
	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description"`
}

func (e apiError) message() string {
	for _, m := range []string{e.Msg, e.Message, e.ErrorDescription, e.ErrorField} {
		if m != "" {
			return m
		}
	}
	return "unknown provider error"
}

// do performs one provider round trip. It is the sole suspension point of
// the whole subsystem: handlers perform no other I/O against the provider.
func (c *Client) do(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.cfg.BaseURL, "/")+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", c.cfg.AnonKey)
	if c.userToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.userToken)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.cfg.AnonKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Transport failure or timeout: the outage is on the provider side,
		// never an authentication verdict.
		return nil, xerrors.Wrap(xerrors.ErrUpstreamUnavailable, err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, xerrors.Wrap(xerrors.ErrUpstreamUnavailable, "read response")
	}

	if resp.StatusCode >= 500 {
		return nil, xerrors.Wrap(xerrors.ErrUpstreamUnavailable, fmt.Sprintf("provider returned %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		var apiErr apiError
		_ = json.Unmarshal(raw, &apiErr)
		return nil, classifyAPIError(resp.StatusCode, apiErr)
	}
	return raw, nil
}

// classifyAPIError maps a provider 4xx onto the local error taxonomy.
func classifyAPIError(status int, e apiError) error {
	msg := e.message()
	switch {
	case e.ErrorCode == "weak_password" || strings.Contains(msg, "Password should be at least"):
		return xerrors.Wrap(xerrors.ErrWeakPassword, msg)
	case e.ErrorCode == "user_already_exists" || strings.Contains(msg, "already registered"):
		return xerrors.Wrap(xerrors.ErrEmailTaken, msg)
	case e.ErrorCode == "over_request_rate_limit" || status == http.StatusTooManyRequests:
		return xerrors.Wrap(xerrors.ErrRateLimited, msg)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return xerrors.Wrap(xerrors.ErrNotAuthenticated, msg)
	default:
		return xerrors.Wrap(xerrors.ErrValidation, msg)
	}
}
