// Pipewatch - CI/CD Pipeline Monitoring and Deployment Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pipewatch

package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"
)

// ExchangeCode trades an OAuth authorization code for an access
// token. The returned token is then used with GetAuthenticatedUser to
// identify the user logging in to the dashboard.
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	if c.oauthClientID == "" {
		return "", fmt.Errorf("OAuth is not configured")
	}

	form := url.Values{}
	form.Set("client_id", c.oauthClientID)
	form.Set("client_secret", c.oauthSecret)
	form.Set("code", code)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body := readBodyForError(resp.Body)
		return "", fmt.Errorf("token endpoint returned HTTP %d: %s", resp.StatusCode, string(body))
	}

	var token struct {
		AccessToken      string `json:"access_token"`
		TokenType        string `json:"token_type"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if token.Error != "" {
		return "", fmt.Errorf("token exchange rejected: %s (%s)", token.Error, token.ErrorDescription)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("token exchange returned no access token")
	}

	return token.AccessToken, nil
}
