package validator

import (
	"errors"
	"regexp"
	"strings"
)

// License keys look like KG-XXXX-XXXX-XXXX: three dash-separated groups of
// four uppercase alphanumerics after the product prefix.
var keyPattern = regexp.MustCompile(`^KG(-[A-Z0-9]{4}){3}$`)

var ErrInvalidKeyFormat = errors.New("invalid license key format")

// ValidateKey checks the format of a license key before it is sent to the
// API, so obviously broken keys fail fast without a network round trip.
func ValidateKey(key string) error {
	if keyPattern.MatchString(key) {
		return nil
	}
	return ErrInvalidKeyFormat
}

// NormalizeKey uppercases a key and strips surrounding whitespace, the two
// mangles that show up when keys are pasted from emails.
func NormalizeKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}
