// Package cryptox hashes and verifies account passwords for the in-process
// backend. Hashes are argon2id with a random per-password salt, encoded as
// "argon2id$<salt hex>$<key hex>".
package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	scheme   = "argon2id"
	saltSize = 16
	keySize  = 32
)

var ErrMalformedHash = errors.New("malformed password hash")

// DeriveKey stretches password with salt.
func DeriveKey(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, keySize)
}

// HashPassword returns an encoded hash of password with a fresh salt.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := DeriveKey([]byte(password), salt)
	return scheme + "$" + hex.EncodeToString(salt) + "$" + hex.EncodeToString(key), nil
}

// VerifyPassword reports whether password matches encoded.
func VerifyPassword(encoded, password string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 3 || parts[0] != scheme {
		return false, ErrMalformedHash
	}
	salt, err := hex.DecodeString(parts[1])
	if err != nil {
		return false, fmt.Errorf("%w: salt", ErrMalformedHash)
	}
	want, err := hex.DecodeString(parts[2])
	if err != nil || len(want) != keySize {
		return false, fmt.Errorf("%w: key", ErrMalformedHash)
	}

	got := DeriveKey([]byte(password), salt)
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
