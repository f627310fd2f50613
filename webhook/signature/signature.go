package signature

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// SecretPrefix marks a symmetric signing secret at rest
	SecretPrefix = "whsec_"

	// SecretBytes is the entropy of a generated secret (256 bits)
	SecretBytes = 32

	// MaxSecretBytes is the maximum accepted secret size (512 bits)
	MaxSecretBytes = 64
)

// Secret represents a webhook signing secret
type Secret struct {
	raw     []byte
	encoded string
}

// GenerateSecret creates a new cryptographically secure signing secret
// with SecretBytes bytes of entropy.
func GenerateSecret() (Secret, error) {
	bytes := make([]byte, SecretBytes)
	if _, err := rand.Read(bytes); err != nil {
		return Secret{}, fmt.Errorf("generating random bytes: %w", err)
	}

	return Secret{
		raw:     bytes,
		encoded: SecretPrefix + base64.StdEncoding.EncodeToString(bytes),
	}, nil
}

// ParseSecret parses a base64-encoded secret with the whsec_ prefix
func ParseSecret(encoded string) (Secret, error) {
	if !strings.HasPrefix(encoded, SecretPrefix) {
		return Secret{}, fmt.Errorf("secret must start with %s prefix", SecretPrefix)
	}

	b64 := strings.TrimPrefix(encoded, SecretPrefix)
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return Secret{}, fmt.Errorf("decoding base64 secret: %w", err)
	}

	if len(raw) < SecretBytes || len(raw) > MaxSecretBytes {
		return Secret{}, fmt.Errorf("secret size must be between %d and %d bytes", SecretBytes, MaxSecretBytes)
	}

	return Secret{
		raw:     raw,
		encoded: encoded,
	}, nil
}

// String returns the base64-encoded secret with prefix
func (s Secret) String() string {
	return s.encoded
}

// Bytes returns the raw secret bytes
func (s Secret) Bytes() []byte {
	return s.raw
}

// Sign computes the hex-encoded HMAC-SHA256 of the raw payload bytes using
// the secret as key. Deterministic, no side effects. An empty secret is a
// programming-error class failure: the attempt is fatal, not retried.
func Sign(secret Secret, payload []byte) (string, error) {
	if len(secret.raw) == 0 {
		return "", fmt.Errorf("signing secret is empty")
	}

	mac := hmac.New(sha256.New, secret.raw)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify checks a hex signature over the raw payload using constant-time
// comparison. Intended for receiver-side validation and tests.
func Verify(secret Secret, payload []byte, provided string) (bool, error) {
	expected, err := hex.DecodeString(provided)
	if err != nil {
		return false, fmt.Errorf("decoding provided signature: %w", err)
	}

	mac := hmac.New(sha256.New, secret.raw)
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), expected), nil
}
