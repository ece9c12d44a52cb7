package keygate

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token validation errors.
var (
	ErrTokenInvalid  = errors.New("license token is invalid")
	ErrTokenExpired  = errors.New("license token has expired")
	ErrTokenMismatch = errors.New("license token was issued for a different machine")
)

// LicenseClaims is the payload of a server-issued offline license token.
// The short claim names keep tokens small enough to ship inside config
// files.
type LicenseClaims struct {
	LicenseKey   string `json:"lk"`
	Plan         string `json:"pl"`
	MachineLimit int    `json:"ml,omitempty"`
	Fingerprint  string `json:"fp,omitempty"`
	jwt.RegisteredClaims
}

// ParseLicenseToken verifies an offline license token signed with the
// account's signing secret and returns its claims. Tokens signed with a
// non-HMAC method are rejected outright.
func ParseLicenseToken(tokenString, secret string) (*LicenseClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &LicenseClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*LicenseClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.LicenseKey == "" {
		return nil, fmt.Errorf("%w: missing license key claim", ErrTokenInvalid)
	}
	return claims, nil
}

// VerifyLicenseToken parses the token and additionally checks that it was
// issued for this machine when the token carries a fingerprint claim.
func (c *Client) VerifyLicenseToken(tokenString, secret string) (*LicenseClaims, error) {
	claims, err := ParseLicenseToken(tokenString, secret)
	if err != nil {
		return nil, err
	}

	if claims.Fingerprint != "" {
		ok, err := c.hwid.Matches(claims.Fingerprint)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrTokenMismatch
		}
	}
	return claims, nil
}

// NewLicenseToken signs an offline license token. This is what the
// license server calls when a customer requests an offline activation
// file; it lives here so self-hosted deployments can mint tokens too.
func NewLicenseToken(claims LicenseClaims, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign license token: %w", err)
	}
	return signed, nil
}
