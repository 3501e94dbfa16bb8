package auth

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func hashers(t *testing.T) map[string]PasswordHasher {
	t.Helper()
	b, err := NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	return map[string]PasswordHasher{
		"bcrypt":   b,
		"argon2id": NewArgon2Hasher(),
	}
}

func TestHashers_RoundTrip(t *testing.T) {
	for name, h := range hashers(t) {
		t.Run(name, func(t *testing.T) {
			for _, p := range []string{"password123", "пароль-длинный", "        ", strings.Repeat("x", 64)} {
				hash, err := h.Hash(p)
				require.NoError(t, err)
				assert.NotEqual(t, p, hash)
				assert.True(t, h.Verify(p, hash), "password %q", p)
				assert.False(t, h.Verify(p+"!", hash), "password %q", p)
			}
		})
	}
}

func TestHashers_Salted(t *testing.T) {
	for name, h := range hashers(t) {
		t.Run(name, func(t *testing.T) {
			a, err := h.Hash("password123")
			require.NoError(t, err)
			b, err := h.Hash("password123")
			require.NoError(t, err)
			assert.NotEqual(t, a, b)
		})
	}
}

func TestHashers_MalformedHashIsFalse(t *testing.T) {
	inputs := []string{
		"",
		"password123",
		"$2a$10$short",
		"$argon2id$v=19$m=65536,t=1,p=4$@@@$@@@",
		"$argon2id$v=18$m=65536,t=1,p=4$c2FsdHNhbHQ$a2V5a2V5",
		"$argon2id$v=19$m=0,t=0,p=0$c2FsdHNhbHQ$a2V5a2V5",
		"$argon2id$v=19$garbage$c2FsdHNhbHQ$a2V5a2V5",
		"$argon2i$v=19$m=65536,t=1,p=4$c2FsdHNhbHQ$a2V5a2V5",
		"$argon2id$v=19$m=4294967295,t=1,p=4$c2FsdHNhbHQ$a2V5a2V5",
		"$argon2id$v=19$m=1048577,t=1,p=4$c2FsdHNhbHQ$a2V5a2V5",
		"$argon2id$v=19$m=65536,t=4294967295,p=4$c2FsdHNhbHQ$a2V5a2V5",
		"$argon2id$v=19$m=65536,t=1,p=255$c2FsdHNhbHQ$a2V5a2V5",
		"$argon2id$v=19$m=65536,t=1,p=4$c2FsdHNhbHQ$" + base64.RawStdEncoding.EncodeToString(make([]byte, 65)),
	}
	for name, h := range hashers(t) {
		t.Run(name, func(t *testing.T) {
			for _, in := range inputs {
				assert.NotPanics(t, func() {
					assert.False(t, h.Verify("password123", in), "hash %q", in)
				})
			}
		})
	}
}

func TestArgon2Hasher_EncodedFormat(t *testing.T) {
	hash, err := NewArgon2Hasher().Hash("password123")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=1,p=4$"), hash)
	assert.Len(t, strings.Split(hash, "$"), 6)
}

func TestBcryptHasher_TooLong(t *testing.T) {
	h, err := NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)

	_, err = h.Hash(strings.Repeat("a", 73))
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestNewBcryptHasher_Cost(t *testing.T) {
	h, err := NewBcryptHasher(0)
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, h.cost)

	_, err = NewBcryptHasher(bcrypt.MaxCost + 1)
	assert.Error(t, err)

	_, err = NewBcryptHasher(1)
	assert.Error(t, err)
}

func TestNewPasswordHasher(t *testing.T) {
	h, err := NewPasswordHasher("", 0)
	require.NoError(t, err)
	assert.IsType(t, &BcryptHasher{}, h)

	h, err = NewPasswordHasher("BCRYPT", bcrypt.MinCost)
	require.NoError(t, err)
	assert.IsType(t, &BcryptHasher{}, h)

	h, err = NewPasswordHasher("argon2id", 0)
	require.NoError(t, err)
	assert.IsType(t, &Argon2Hasher{}, h)

	_, err = NewPasswordHasher("md5", 0)
	assert.Error(t, err)
}
