package crypt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/kirana/pkg/crypt"
)

func TestEncryptDecryptJSON(t *testing.T) {
	c, err := crypt.New("test-secret")
	require.NoError(t, err)

	in := []map[string]string{{"brand": "visa", "last4": "4242"}}
	enc, err := c.EncryptJSON(in)
	require.NoError(t, err)
	assert.NotContains(t, enc, "4242")

	var out []map[string]string
	require.NoError(t, c.DecryptJSON(enc, &out))
	assert.Equal(t, in, out)
}

func TestTamperingAndWrongKeyFail(t *testing.T) {
	a, _ := crypt.New("a")
	b, _ := crypt.New("b")

	enc, err := a.Encrypt([]byte("hello"))
	require.NoError(t, err)

	_, err = b.Decrypt(enc)
	assert.ErrorIs(t, err, crypt.ErrDecrypt)

	_, err = a.Decrypt(enc[:len(enc)-4] + "AAAA")
	assert.ErrorIs(t, err, crypt.ErrDecrypt)

	_, err = a.Decrypt("%%%")
	assert.ErrorIs(t, err, crypt.ErrDecrypt)

	_, err = crypt.New("")
	assert.Error(t, err)
}
