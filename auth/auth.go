// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidAdminKey = errors.New("invalid admin key")
	ErrInvalidToken    = errors.New("invalid voter token")
)

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateAdminKey creates an HMAC-based admin key for an admin email.
// This is deterministic and verifiable
func GenerateAdminKey(email, salt string) string {
	return signURLSafe(strings.ToLower(strings.TrimSpace(email)), salt)
}

// ValidateAdminKey checks that email is the configured admin and that the
// key was issued for it
func ValidateAdminKey(email, adminEmail, adminKey, salt string) error {
	if adminEmail == "" || !strings.EqualFold(strings.TrimSpace(email), adminEmail) {
		return ErrInvalidAdminKey
	}
	expected := GenerateAdminKey(adminEmail, salt)
	if !hmac.Equal([]byte(adminKey), []byte(expected)) {
		return ErrInvalidAdminKey
	}
	return nil
}

// VoterToken derives the voter token for a student ID.
// The same student always gets the same token, so per-role uniqueness holds
// across logins without storing raw student IDs. The token is the student
// digest followed by a short MAC over it, so the server can tell an issued
// token from a made-up one.
func VoterToken(studentID, salt string) string {
	digest := signURLSafe("student:"+studentID, salt)
	return digest + "." + tokenCheck(digest, salt)
}

// ValidateVoterToken checks token was issued by VoterToken with salt
func ValidateVoterToken(token, salt string) error {
	digest, check, ok := strings.Cut(token, ".")
	// 32 bytes of HMAC-SHA256 in unpadded base64
	if !ok || len(digest) != 43 {
		return ErrInvalidToken
	}
	if _, err := base64.RawURLEncoding.DecodeString(digest); err != nil {
		return ErrInvalidToken
	}
	if !hmac.Equal([]byte(check), []byte(tokenCheck(digest, salt))) {
		return ErrInvalidToken
	}
	return nil
}

func tokenCheck(digest, salt string) string {
	return signURLSafe("token:"+digest, salt)[:16]
}

// HashIP creates a one-way hash of an IP address for privacy
// Includes salt to prevent rainbow table attacks
func HashIP(ip, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(ip))
	sum := h.Sum(nil)
	// Return first 16 hex chars (64 bits) - enough for rate limiting keys
	return hex.EncodeToString(sum[:8])
}

func signURLSafe(msg, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(msg))
	// Use URL-safe base64 and trim padding for cleaner keys
	return strings.TrimRight(base64.URLEncoding.EncodeToString(h.Sum(nil)), "=")
}
