package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"

	"langhub.io/internal/ids"
)

// ServiceKeyPrefix marks API keys issued to service accounts.
const ServiceKeyPrefix = "lh_"

// IssuedServiceKey is a freshly generated API key. Plaintext is shown once and
// never stored; only SecretHash is persisted.
type IssuedServiceKey struct {
	KeyID      string
	Plaintext  string
	SecretHash string
}

// GenerateServiceKey creates a new API key of the form lh_<keyID>.<secret>.
func GenerateServiceKey() (IssuedServiceKey, error) {
	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return IssuedServiceKey{}, err
	}
	secret := base64.RawURLEncoding.EncodeToString(secretBytes)
	keyID := ids.New()
	return IssuedServiceKey{
		KeyID:      keyID,
		Plaintext:  ServiceKeyPrefix + keyID + "." + secret,
		SecretHash: hashSecret(secret),
	}, nil
}

// ParseServiceKey splits a raw API key into its key id and secret.
func ParseServiceKey(raw string) (keyID, secret string, err error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, ServiceKeyPrefix) {
		return "", "", errors.New("invalid service key prefix")
	}
	parts := strings.Split(strings.TrimPrefix(raw, ServiceKeyPrefix), ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.New("invalid service key format")
	}
	return parts[0], parts[1], nil
}

// VerifyServiceKeySecret compares secret against a stored hash in constant time.
func VerifyServiceKeySecret(expectedHash, secret string) bool {
	actual := hashSecret(secret)
	if len(actual) != len(expectedHash) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expectedHash), []byte(actual)) == 1
}

func hashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
