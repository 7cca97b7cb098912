package cryptox

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKey_Deterministic(t *testing.T) {
	key1 := DeriveKey([]byte("secret-password"), []byte("fixed-salt"))
	key2 := DeriveKey([]byte("secret-password"), []byte("fixed-salt"))
	require.Equal(t, key1, key2)
	require.Len(t, key1, keySize)

	expectedHex := "34f7a1c64df63ab1ad5b5ee06e64db5713b35f81839823304db63e8e5e6a6a39"
	assert.Equal(t, expectedHex, hex.EncodeToString(key1))
}

func TestDeriveKey_DifferentSalts(t *testing.T) {
	key1 := DeriveKey([]byte("secret-password"), []byte("salt-1"))
	key2 := DeriveKey([]byte("secret-password"), []byte("salt-2"))
	assert.NotEqual(t, key1, key2)
}

func TestHashPassword_RoundTrip(t *testing.T) {
	h, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(h, "argon2id$"))

	ok, err := VerifyPassword(h, "hunter2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword(h, "hunter3")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPassword_SaltsDiffer(t *testing.T) {
	a, err := HashPassword("same")
	require.NoError(t, err)
	b, err := HashPassword("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerifyPassword_Malformed(t *testing.T) {
	for _, enc := range []string{"", "bcrypt$aa$bb", "argon2id$zz$00", "argon2id$00$abcd"} {
		_, err := VerifyPassword(enc, "x")
		assert.ErrorIs(t, err, ErrMalformedHash, enc)
	}
}
