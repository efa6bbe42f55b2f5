package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dd0wney/portfolio-core/pkg/executor"
	"github.com/dd0wney/portfolio-core/pkg/logging"
)

// authResponse is the provider's token endpoint payload
type authResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         struct {
		ID string `json:"id"`
	} `json:"user"`
}

// Authenticate exchanges credentials for a session and caches it for
// subsequent requests.
func (c *HTTPClient) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	payload := map[string]string{"email": email, "password": password}
	body, err := c.do(ctx, http.MethodPost, c.baseURL+"/auth/v1/token?grant_type=password", payload)
	if err != nil {
		return nil, err
	}

	var resp authResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, executor.TransientError("authenticate", fmt.Errorf("malformed auth response: %w", err))
	}
	if resp.AccessToken == "" {
		return nil, executor.AuthorizationError("authenticate", fmt.Errorf("empty access token"))
	}

	session := &Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		UserID:       resp.User.ID,
		ExpiresAt:    tokenExpiry(resp.AccessToken, resp.ExpiresIn),
	}

	c.mu.Lock()
	c.session = session
	c.mu.Unlock()

	c.logger.Info("session established",
		logging.String("user_id", session.UserID),
		logging.String("expires_at", session.ExpiresAt.Format(time.RFC3339)),
	)
	return session, nil
}

// RefreshSession exchanges the cached refresh token for a new session.
func (c *HTTPClient) RefreshSession(ctx context.Context) (*Session, error) {
	c.mu.RLock()
	current := c.session
	c.mu.RUnlock()

	if current == nil || current.RefreshToken == "" {
		return nil, executor.AuthorizationError("refresh", fmt.Errorf("no session to refresh"))
	}

	payload := map[string]string{"refresh_token": current.RefreshToken}
	body, err := c.do(ctx, http.MethodPost, c.baseURL+"/auth/v1/token?grant_type=refresh_token", payload)
	if err != nil {
		return nil, err
	}

	var resp authResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, executor.TransientError("refresh", fmt.Errorf("malformed auth response: %w", err))
	}

	session := &Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		UserID:       current.UserID,
		ExpiresAt:    tokenExpiry(resp.AccessToken, resp.ExpiresIn),
	}

	c.mu.Lock()
	c.session = session
	c.mu.Unlock()

	return session, nil
}

// Session returns the cached session, or nil if unauthenticated.
func (c *HTTPClient) Session() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// SessionNeedsRefresh reports whether the cached session expires within
// the refresh window.
func (c *HTTPClient) SessionNeedsRefresh() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session != nil && c.session.ExpiresWithin(refreshWindow)
}

// ClearSession drops the cached session.
func (c *HTTPClient) ClearSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = nil
}

func (c *HTTPClient) accessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return ""
	}
	return c.session.AccessToken
}

// tokenExpiry reads the exp claim from the access token. The provider
// signed the token; the client only schedules refreshes from it, so the
// claims are parsed without signature verification. Falls back to the
// expires_in hint when the token is not a parseable JWT.
func tokenExpiry(accessToken string, expiresIn int) time.Time {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(accessToken, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	if expiresIn > 0 {
		return time.Now().Add(time.Duration(expiresIn) * time.Second)
	}
	return time.Time{}
}
