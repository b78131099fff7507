package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
)

// NewSecret returns a URL-safe opaque secret with byteLength bytes of
// entropy. The secret has no intrinsic structure; validity is enforced by the
// repository-stored expiry, not by the secret itself.
func NewSecret(byteLength int) (string, error) {
	if byteLength < 16 {
		return "", errors.New("secret length must be >= 16 bytes")
	}

	raw := make([]byte, byteLength)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Digest is the one-way at-rest form of an opaque secret: hex-encoded
// SHA-256 of the secret string. Stored instead of the secret so a repository
// dump never yields a usable verification or reset token.
func Digest(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
