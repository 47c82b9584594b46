// Package auth holds the hh.ru OAuth credential pair and renews the
// access token reactively when an authorized call fails.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// Manager owns the access/refresh token pair. The access token is swapped
// wholesale on renewal; the refresh token may rotate too.
type Manager struct {
	mu           sync.Mutex
	accessToken  string
	refreshToken string

	clientID     string
	clientSecret string
	tokenURL     string
	userAgent    string

	client *http.Client
	logger *slog.Logger
}

// New creates a Manager seeded with the configured credential pair.
func New(accessToken, refreshToken, clientID, clientSecret, tokenURL, userAgent string, client *http.Client, logger *slog.Logger) *Manager {
	return &Manager{
		accessToken:  accessToken,
		refreshToken: refreshToken,
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     tokenURL,
		userAgent:    userAgent,
		client:       client,
		logger:       logger,
	}
}

// Token returns the current access token, empty when unauthenticated.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accessToken
}

// Authorize attaches the bearer token and the required User-Agent to req.
func (m *Manager) Authorize(req *http.Request) {
	m.mu.Lock()
	token := m.accessToken
	m.mu.Unlock()

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", m.userAgent)
}

// tokenResponse mirrors the hh.ru OAuth token endpoint response.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// Renew exchanges the refresh token for a fresh access token. It fails
// closed: a missing refresh token or missing client credentials returns
// an error without a network call. On success the token pair is replaced
// atomically for subsequent requests.
func (m *Manager) Renew(ctx context.Context) error {
	m.mu.Lock()
	refresh := m.refreshToken
	m.mu.Unlock()

	if refresh == "" {
		return fmt.Errorf("token renewal: no refresh token configured")
	}
	if m.clientID == "" || m.clientSecret == "" {
		return fmt.Errorf("token renewal: client credentials not configured")
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refresh)
	form.Set("client_id", m.clientID)
	form.Set("client_secret", m.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("token renewal: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", m.userAgent)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("token renewal: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("token renewal: reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("token renewal: endpoint returned %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return fmt.Errorf("token renewal: decoding response: %w", err)
	}
	if tr.AccessToken == "" {
		return fmt.Errorf("token renewal: endpoint returned no access token")
	}

	m.mu.Lock()
	m.accessToken = tr.AccessToken
	if tr.RefreshToken != "" {
		m.refreshToken = tr.RefreshToken
	}
	m.mu.Unlock()

	m.logger.Info("access token renewed", "expires_in", tr.ExpiresIn)
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
