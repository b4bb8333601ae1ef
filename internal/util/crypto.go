package util

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// CryptoRandomBytes generates cryptographically secure random bytes
func CryptoRandomBytes(length int) ([]byte, error) {
	buf := make([]byte, length)
	_, err := rand.Read(buf)
	return buf, err
}

// RandomHex returns n random bytes hex encoded (2n characters).
func RandomHex(n int) (string, error) {
	b, err := CryptoRandomBytes(n)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Fingerprint returns a short SHA-256 prefix of a secret value, safe to log.
func Fingerprint(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:6])
}
