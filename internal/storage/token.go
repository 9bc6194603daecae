package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// localToken is the claims set embedded in a filesystem-variant capability
// URL: one object, one method, one expiry instant.
type localToken struct {
	Bucket    string `json:"bucket"`
	Object    string `json:"object"`
	Method    string `json:"method"`
	ExpiresAt int64  `json:"exp"`
}

var errTokenInvalid = errors.New("invalid signed url token")

// signLocalToken serializes the claims and appends an HMAC-SHA256 over the
// raw claim bytes: base64url(claims) + "." + base64url(mac).
func signLocalToken(secret []byte, t localToken) (string, error) {
	claims, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("marshal token claims: %w", err)
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(claims)
	return base64.RawURLEncoding.EncodeToString(claims) + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil)), nil
}

// verifyLocalToken checks the MAC in constant time and the expiry, returning
// the embedded claims. Callers still have to match method and object against
// the actual request.
func verifyLocalToken(secret []byte, token string, now time.Time) (localToken, error) {
	payload, sig, ok := strings.Cut(token, ".")
	if !ok {
		return localToken{}, errTokenInvalid
	}
	claims, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return localToken{}, errTokenInvalid
	}
	got, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return localToken{}, errTokenInvalid
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(claims)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return localToken{}, errTokenInvalid
	}

	var t localToken
	if err := json.Unmarshal(claims, &t); err != nil {
		return localToken{}, errTokenInvalid
	}
	if now.Unix() > t.ExpiresAt {
		return localToken{}, fmt.Errorf("signed url token expired")
	}
	return t, nil
}
