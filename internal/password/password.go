// Package password hashes and verifies admin passwords.
//
// The encoded form is base64(salt || key), where salt is 32 random bytes and
// key is a 32-byte PBKDF2-HMAC-SHA256 derivation of the password with
// Iterations rounds. The encoding is self-contained: Verify needs nothing but
// the stored string.
package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// SaltSize is the length of the random salt in bytes.
	SaltSize = 32
	// KeySize is the length of the derived key in bytes.
	KeySize = 32
	// Iterations is the PBKDF2 round count. Changing it invalidates every
	// stored hash.
	Iterations = 100_000
)

// MinLength is the shortest password accepted when creating or changing
// an admin password.
const MinLength = 8

// Hash derives a new encoded hash for password using a fresh random salt.
// Two calls with the same password never return the same string.
func Hash(password string) (string, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	combined := make([]byte, 0, SaltSize+KeySize)
	combined = append(combined, salt...)
	combined = append(combined, derive(password, salt)...)
	return base64.StdEncoding.EncodeToString(combined), nil
}

// Verify reports whether password matches the encoded hash. Malformed input
// returns false.
func Verify(password, encoded string) bool {
	combined, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(combined) != SaltSize+KeySize {
		return false
	}
	salt, stored := combined[:SaltSize], combined[SaltSize:]
	return subtle.ConstantTimeCompare(derive(password, salt), stored) == 1
}

func derive(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, Iterations, KeySize, sha256.New)
}
