// Pipewatch - CI/CD Pipeline Monitoring and Deployment Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pipewatch

package auth

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// VerifyAdminCredentials checks a login attempt against the configured
// admin username and password. The configured password may be a bcrypt
// hash (recommended) or, for development setups, plaintext; plaintext
// comparison is constant-time.
func VerifyAdminCredentials(configUser, configPass, username, password string) bool {
	if configUser == "" || configPass == "" {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(configUser), []byte(username)) != 1 {
		// Burn a comparison anyway so the username check does not
		// change response timing.
		_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$000000000000000000000uGZLKdSrD3Jbo3UG3v0Zz0bS0e2fSm6q"), []byte(password))
		return false
	}

	if strings.HasPrefix(configPass, "$2a$") || strings.HasPrefix(configPass, "$2b$") || strings.HasPrefix(configPass, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(configPass), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(configPass), []byte(password)) == 1
}

// HashPassword produces a bcrypt hash suitable for ADMIN_PASSWORD.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
