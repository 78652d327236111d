package cipher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCipher_RoundTrip(t *testing.T) {
	c, err := New("test-secret-key")
	require.NoError(t, err)

	for _, plaintext := range []string{
		"",
		"a",
		"ya29.a0AfB_short-access-token",
		"exactly-sixteen!",
		"a much longer refresh token value that spans several AES blocks without trouble",
	} {
		encrypted, err := c.Encrypt(plaintext)
		require.NoError(t, err)

		decrypted, err := c.Decrypt(encrypted)
		require.NoError(t, err)
		assert.Equal(t, plaintext, decrypted)
	}
}

func TestCipher_Deterministic(t *testing.T) {
	c, err := New("test-secret-key")
	require.NoError(t, err)

	first, err := c.Encrypt("access-token-value")
	require.NoError(t, err)

	second, err := c.Encrypt("access-token-value")
	require.NoError(t, err)

	assert.Equal(t, first, second, "same key and plaintext must produce identical ciphertext")
}

func TestCipher_KeyNormalization(t *testing.T) {
	// Short passphrases are padded, long ones truncated: a 32-byte passphrase
	// and its extension beyond 32 bytes derive the same key.
	long32 := "0123456789abcdef0123456789abcdef"

	a, err := New(long32)
	require.NoError(t, err)
	b, err := New(long32 + "extra-tail-ignored")
	require.NoError(t, err)

	ca, err := a.Encrypt("value")
	require.NoError(t, err)
	cb, err := b.Encrypt("value")
	require.NoError(t, err)
	assert.Equal(t, ca, cb)

	// A padded short key differs from the full key.
	short, err := New("0123456789abcdef")
	require.NoError(t, err)
	cs, err := short.Encrypt("value")
	require.NoError(t, err)
	assert.NotEqual(t, ca, cs)
}

func TestCipher_EmptyPassphrase(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}

func TestCipher_DecryptFailuresAreGeneric(t *testing.T) {
	c, err := New("test-secret-key")
	require.NoError(t, err)

	for name, input := range map[string]string{
		"not base64":   "!!not-base64!!",
		"wrong length": "YWJj", // 3 bytes, not a whole block
		"empty":        "",
	} {
		_, err := c.Decrypt(input)
		assert.ErrorIs(t, err, ErrCipher, "case %q must return the generic cipher error", name)
	}
}

func TestCipher_DifferentKeysCannotDecrypt(t *testing.T) {
	a, err := New("first-key")
	require.NoError(t, err)
	b, err := New("second-key")
	require.NoError(t, err)

	encrypted, err := a.Encrypt("secret-value")
	require.NoError(t, err)

	decrypted, err := b.Decrypt(encrypted)
	if err == nil {
		// PKCS#7 can accidentally validate under a wrong key; the plaintext
		// must still not match.
		assert.NotEqual(t, "secret-value", decrypted)
	} else {
		assert.ErrorIs(t, err, ErrCipher)
	}
}
