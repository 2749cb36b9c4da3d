// Package auth obtains and renews the XBRL US API token pair.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/xbrlus/xbrlapi/internal/constants"
	xbrlhttp "github.com/xbrlus/xbrlapi/internal/http"
	"github.com/xbrlus/xbrlapi/pkg/xbrl"
)

// Transport posts a form-encoded grant request.
type Transport interface {
	PostForm(ctx context.Context, path, form string) (*xbrlhttp.Response, error)
}

// tokenResponse is the body of a grant response. The API reports rejected
// grants in the body, not with a status code.
type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Manager owns the credential pair of one client. Every change is mirrored to
// the token store.
type Manager struct {
	config    *xbrl.Config
	transport Transport
	store     xbrl.TokenStore
	logger    xbrl.Logger

	mutex sync.RWMutex
	creds xbrl.Credentials
}

// NewManager creates a manager. A nil store defaults to memory.
func NewManager(config *xbrl.Config, transport Transport, store xbrl.TokenStore, logger xbrl.Logger) *Manager {
	if store == nil {
		store = NewMemoryTokenStore(xbrl.Credentials{})
	}

	return &Manager{
		config:    config,
		transport: transport,
		store:     store,
		logger:    xbrl.LoggerOrNop(logger),
	}
}

// Initialize adopts a complete stored pair without any I/O, or performs a
// password grant. Without a complete pair, username and password are
// required.
func (m *Manager) Initialize(ctx context.Context) error {
	stored, err := m.store.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to load stored tokens: %w", err)
	}

	if stored.Complete() {
		m.mutex.Lock()
		m.creds = stored
		m.mutex.Unlock()

		m.logger.Debug("Using stored tokens", nil)

		return nil
	}

	if !m.config.HasPasswordCredentials() {
		return &xbrl.ConfigurationError{Err: constants.ErrMissingCredentials}
	}

	return m.Login(ctx)
}

// Login performs the password grant.
func (m *Manager) Login(ctx context.Context) error {
	if !m.config.HasPasswordCredentials() {
		return &xbrl.ConfigurationError{Err: constants.ErrMissingCredentials}
	}

	params := xbrl.NewParams(
		constants.ParamGrantType, constants.GrantTypePassword,
		"client_id", m.config.ClientID,
		"client_secret", m.config.ClientSecret,
		"username", m.config.Username,
		"password", m.config.Password,
		"platform", m.config.Platform,
	)

	return m.grant(ctx, constants.GrantTypePassword, params)
}

// Refresh performs the refresh grant. It does nothing when no refresh token
// is held.
func (m *Manager) Refresh(ctx context.Context) error {
	refreshToken := m.Credentials().RefreshToken
	if refreshToken == "" {
		m.logger.Debug("No refresh token held, skipping refresh", nil)

		return nil
	}

	params := xbrl.NewParams(
		constants.ParamGrantType, constants.GrantTypeRefreshToken,
		"client_id", m.config.ClientID,
		"client_secret", m.config.ClientSecret,
		"refresh_token", refreshToken,
		"platform", m.config.Platform,
	)

	return m.grant(ctx, constants.GrantTypeRefreshToken, params)
}

// InvalidateAndRelogin clears both tokens, in memory and in the store, and
// performs a fresh password grant.
func (m *Manager) InvalidateAndRelogin(ctx context.Context) error {
	m.logger.Info("Refresh token rejected, logging in again", nil)

	err := m.setCredentials(ctx, xbrl.Credentials{})
	if err != nil {
		return err
	}

	return m.Login(ctx)
}

// Logout clears both tokens without contacting the server.
func (m *Manager) Logout(ctx context.Context) error {
	return m.setCredentials(ctx, xbrl.Credentials{})
}

// Credentials returns a snapshot of the held pair.
func (m *Manager) Credentials() xbrl.Credentials {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.creds
}

// AccessToken returns the held access token, or "".
func (m *Manager) AccessToken() string {
	return m.Credentials().AccessToken
}

func (m *Manager) grant(ctx context.Context, grantType string, params xbrl.Params) error {
	form, err := params.Encode()
	if err != nil {
		return &xbrl.AuthenticationError{Grant: grantType, Err: err}
	}

	m.logger.Debug("Requesting token", map[string]interface{}{
		"grant_type": grantType,
		"client_id":  m.config.ClientID,
		"platform":   m.config.Platform,
	})

	resp, err := m.transport.PostForm(ctx, constants.TokenRoute, form)
	if err != nil {
		return &xbrl.AuthenticationError{Grant: grantType, Err: err}
	}

	var token tokenResponse

	err = json.Unmarshal(resp.Body, &token)
	if err != nil {
		return &xbrl.AuthenticationError{
			Grant: grantType,
			Err:   fmt.Errorf("%w: status %d: %w", constants.ErrMalformedResponse, resp.StatusCode, err),
		}
	}

	if token.Error != "" {
		m.logger.Warn("Token request rejected", map[string]interface{}{
			"grant_type":  grantType,
			"error":       token.Error,
			"description": token.ErrorDescription,
		})

		return &xbrl.AuthenticationError{
			Grant:       grantType,
			Code:        token.Error,
			Description: token.ErrorDescription,
		}
	}

	if token.AccessToken == "" || token.RefreshToken == "" {
		return &xbrl.AuthenticationError{Grant: grantType, Err: constants.ErrIncompleteTokenResponse}
	}

	err = m.setCredentials(ctx, xbrl.Credentials{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	})
	if err != nil {
		return err
	}

	m.logger.Info("Token obtained", map[string]interface{}{"grant_type": grantType})

	return nil
}

func (m *Manager) setCredentials(ctx context.Context, creds xbrl.Credentials) error {
	m.mutex.Lock()
	m.creds = creds
	m.mutex.Unlock()

	err := m.store.Set(ctx, creds)
	if err != nil {
		return fmt.Errorf("failed to persist tokens: %w", err)
	}

	return nil
}
