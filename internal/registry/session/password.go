// Package session manages login sessions: password verification, session
// records, the authentication middleware, and the background reaper.
package session

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	// Format version
	formatVersion = "1"

	// Cryptographic parameters
	saltSize    = 16
	keySize     = 32
	memory      = 64 * 1024 // 64 MB
	iterations  = 3
	parallelism = 4
)

// zero overwrites the given byte slice with zeros
func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// deriveKey derives a 32-byte key from a password and salt using Argon2id
func deriveKey(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, iterations, memory, uint8(parallelism), keySize)
}

// HashPassword returns an encoded argon2id hash of the password in the form
// v<version>$<salt-b64>$<key-b64>.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("empty password")
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key := deriveKey([]byte(password), salt)
	defer zero(key)

	return "v" + formatVersion + "$" +
		base64.RawStdEncoding.EncodeToString(salt) + "$" +
		base64.RawStdEncoding.EncodeToString(key), nil
}

// VerifyPassword checks a password against an encoded hash in constant time.
func VerifyPassword(password, encoded string) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 3 || parts[0] != "v"+formatVersion {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[1])
	if err != nil || len(salt) != saltSize {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil || len(want) != keySize {
		return false
	}

	got := deriveKey([]byte(password), salt)
	defer zero(got)

	return subtle.ConstantTimeCompare(got, want) == 1
}
