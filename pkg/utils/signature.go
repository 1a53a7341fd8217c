package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// GetMessageDigestOrSignature returns the hex HMAC-SHA256 of body under secret.
func GetMessageDigestOrSignature(body, secret []byte) (string, error) {
	mac := hmac.New(sha256.New, secret)
	if _, err := mac.Write(body); err != nil {
		return "", err
	}
	return hex.EncodeToString(mac.Sum(nil)), nil
}
