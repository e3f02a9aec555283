package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"bizchat.dev/console/internal/auth"
	"bizchat.dev/console/internal/gateway"
)

// AuthClient handles admin login, verification and sign-out. It owns no
// state beyond the credentials it was given; authorization itself is
// enforced server-side on every call.
type AuthClient struct {
	gw    *gateway.Gateway
	creds *auth.Credentials
}

func NewAuthClient(gw *gateway.Gateway, creds *auth.Credentials) *AuthClient {
	return &AuthClient{gw: gw, creds: creds}
}

// Login posts the credentials and, on success, persists the returned bearer
// token. Failures carry the backend-supplied reason when one was present.
func (c *AuthClient) Login(ctx context.Context, username, password string) error {
	data, err := c.gw.Do(ctx, http.MethodPost, "/api/admin/login", loginRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		if detail := gateway.Detail(err); detail != "" {
			return errors.New(detail)
		}
		if gateway.IsUnauthorized(err) {
			return errors.New("invalid credentials, please check username and password")
		}
		return fmt.Errorf("login failed: %w", err)
	}

	var res loginResponse
	if err := json.Unmarshal(data, &res); err != nil {
		return fmt.Errorf("malformed login response: %w", err)
	}
	if res.AccessToken == "" {
		return errors.New("login response carried no access token")
	}
	if err := c.creds.Set(res.AccessToken); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}
	return nil
}

// Verify asks the backend whether the stored token is still accepted. A
// rejected token reads as (false, nil); the gateway has already dropped the
// credential by then.
func (c *AuthClient) Verify(ctx context.Context) (bool, error) {
	data, err := c.gw.Do(ctx, http.MethodGet, "/api/admin/verify", nil)
	if err != nil {
		if gateway.IsUnauthorized(err) {
			return false, nil
		}
		return false, err
	}
	var res verifyResponse
	if err := json.Unmarshal(data, &res); err != nil {
		return false, fmt.Errorf("malformed verify response: %w", err)
	}
	return res.Valid, nil
}

// Stats fetches the backend's usage summary.
func (c *AuthClient) Stats(ctx context.Context) (*AdminStats, error) {
	data, err := c.gw.Do(ctx, http.MethodGet, "/api/admin/stats", nil)
	if err != nil {
		return nil, err
	}
	var stats AdminStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("malformed stats response: %w", err)
	}
	return &stats, nil
}

// Logout clears the stored token. Purely local; the backend has no revoke
// endpoint.
func (c *AuthClient) Logout() error {
	return c.creds.Clear()
}

// LoggedIn reports whether a token is currently held.
func (c *AuthClient) LoggedIn() bool {
	_, ok := c.creds.Token()
	return ok
}
