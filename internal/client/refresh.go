package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"erp-conference-api/internal/model"
	"erp-conference-api/internal/repository"

	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// TokenManager owns the access/refresh token lifecycle for ERP accounts.
// Refreshes are deduplicated per account with singleflight: every caller
// concurrent with an in-flight refresh blocks on it and receives the
// token that refresh produced.
type TokenManager struct {
	httpClient   *http.Client
	tokenURL     string
	clientID     string
	clientSecret string
	tokens       repository.TokenRepository
	group        singleflight.Group
}

func NewTokenManager(tokenURL, clientID, clientSecret string, tokens repository.TokenRepository) *TokenManager {
	return &TokenManager{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		tokens:       tokens,
	}
}

// Access returns the stored access token for the account.
func (m *TokenManager) Access(ctx context.Context, account string) (string, error) {
	row, err := m.tokens.Get(ctx, account)
	if err != nil {
		return "", err
	}
	return row.AccessToken, nil
}

// Refresh exchanges the stored refresh token and persists the new pair.
// Concurrent calls for the same account share a single exchange. The
// exchange itself runs detached from the first caller's context: its
// cancellation must not fail every waiter sharing the flight.
func (m *TokenManager) Refresh(ctx context.Context, account string) (string, error) {
	flightCtx := context.WithoutCancel(ctx)
	v, err, _ := m.group.Do(account, func() (interface{}, error) {
		return m.refresh(flightCtx, account)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (m *TokenManager) refresh(ctx context.Context, account string) (string, error) {
	row, err := m.tokens.Get(ctx, account)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, repository.ErrTokenNotConfigured) {
			return "", fmt.Errorf("%w: %s", ErrUnknownAccount, account)
		}
		return "", fmt.Errorf("load token row: %w", err)
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", row.RefreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	auth := base64.StdEncoding.EncodeToString(
		[]byte(m.clientID + ":" + m.clientSecret),
	)
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", &RemoteTransientError{Err: fmt.Errorf("token endpoint: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: status %d: %s", ErrRefreshFailed, resp.StatusCode, string(b))
	}

	var res struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if res.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrRefreshFailed)
	}

	if err := m.tokens.Save(ctx, &model.AccountToken{
		Account:      account,
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
	}); err != nil {
		return "", fmt.Errorf("persist refreshed token: %w", err)
	}

	return res.AccessToken, nil
}
