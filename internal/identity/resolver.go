// Package identity resolves bearer tokens to a placement actor through the
// campus identity provider's introspection endpoint.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "internship-placement/internal/common/errors"
	"internship-placement/internal/common/config"
	"internship-placement/internal/common/httpx"
	"internship-placement/internal/common/logger"
	"internship-placement/internal/placement"
)

// tokenInfo is the introspection response. The provider maps each principal
// to exactly one placement role.
type tokenInfo struct {
	Active   bool   `json:"active"`
	Sub      string `json:"sub,omitempty"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
	Exp      int64  `json:"exp,omitempty"`
}

type Resolver struct {
	cfg        config.IdentityConfig
	httpClient *httpx.Client
	logger     logger.Logger
}

func NewResolver(cfg config.IdentityConfig, log logger.Logger) *Resolver {
	timeout := time.Duration(cfg.Timeout) * time.Millisecond
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Resolver{
		cfg:        cfg,
		httpClient: httpx.NewClient(timeout),
		logger:     log.WithFields(map[string]interface{}{"component": "identity-resolver"}),
	}
}

// Resolve introspects the token and returns the acting principal. Inactive
// or role-less tokens resolve to UNAUTHORIZED.
func (r *Resolver) Resolve(ctx context.Context, token string) (*placement.Actor, error) {
	data := url.Values{}
	data.Set("token", token)
	data.Set("token_type_hint", "access_token")
	data.Set("client_id", r.cfg.ClientID)
	data.Set("client_secret", r.cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, "POST", r.cfg.IntrospectionURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, apperrors.NewIdentityResolutionError(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewIdentityResolutionError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.logger.Warn("introspection endpoint returned non-OK status", map[string]interface{}{
			"status": resp.StatusCode,
		})
		return nil, apperrors.NewIdentityResolutionError(
			fmt.Errorf("introspection endpoint returned status %d", resp.StatusCode))
	}

	var info tokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, apperrors.NewIdentityResolutionError(err)
	}

	if !info.Active {
		return nil, apperrors.NewUnauthorizedError(apperrors.GuardRole, "token is not active")
	}

	role, err := placement.ParseRole(info.Role)
	if err != nil {
		r.logger.Warn("token carries unknown role", map[string]interface{}{
			"sub":  info.Sub,
			"role": info.Role,
		})
		return nil, apperrors.NewUnauthorizedError(apperrors.GuardRole, "token carries no placement role")
	}

	return &placement.Actor{ID: info.Sub, Role: role}, nil
}
