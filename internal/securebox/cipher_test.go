package securebox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCipher_RoundTrip(t *testing.T) {
	c, err := New([]byte("correct horse battery staple"))
	require.NoError(t, err)

	plaintext := []byte(`{"admins":["1"],"xp":{}}`)

	sealed, err := c.Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, sealed)

	opened, err := c.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestCipher_NonceIsUnique(t *testing.T) {
	c, err := New([]byte("secret"))
	require.NoError(t, err)

	first, err := c.Encrypt([]byte("payload"))
	require.NoError(t, err)
	second, err := c.Encrypt([]byte("payload"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestCipher_WrongKey(t *testing.T) {
	c1, err := New([]byte("key one"))
	require.NoError(t, err)
	c2, err := New([]byte("key two"))
	require.NoError(t, err)

	sealed, err := c1.Encrypt([]byte("payload"))
	require.NoError(t, err)

	_, err = c2.Decrypt(sealed)
	assert.ErrorIs(t, err, ErrDecryptFailed)
}

func TestCipher_TamperedCiphertext(t *testing.T) {
	c, err := New([]byte("secret"))
	require.NoError(t, err)

	sealed, err := c.Encrypt([]byte("payload"))
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0x01

	_, err = c.Decrypt(sealed)
	assert.ErrorIs(t, err, ErrDecryptFailed)
}

func TestCipher_ShortCiphertext(t *testing.T) {
	c, err := New([]byte("secret"))
	require.NoError(t, err)

	_, err = c.Decrypt([]byte{0x01, 0x02})
	assert.ErrorIs(t, err, ErrDecryptFailed)
}

func TestCipher_EmptySecret(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}
