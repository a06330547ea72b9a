package cipher

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKeyring(t *testing.T) {
	kr, err := NewKeyring(testKey())
	require.NoError(t, err)

	packed, err := kr.Fields.Encrypt([]byte("aad"), []byte("value"))
	require.NoError(t, err)

	_, err = kr.Content.Decrypt([]byte("aad"), packed)
	assert.Error(t, err, "subkeys must differ")

	plain, err := kr.Fields.Decrypt([]byte("aad"), packed)
	require.NoError(t, err)
	assert.Equal(t, "value", string(plain))
}

func TestNewKeyringRejectsShortKey(t *testing.T) {
	_, err := NewKeyring(make([]byte, 16))
	assert.Error(t, err)
}

func TestDeriveKeyIsStable(t *testing.T) {
	a, err := DeriveKey(testKey(), fieldsInfo)
	require.NoError(t, err)
	b, err := DeriveKey(testKey(), fieldsInfo)
	require.NoError(t, err)
	c, err := DeriveKey(testKey(), contentInfo)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.False(t, bytes.Equal(a, c))
	assert.Len(t, a, KeySize)
}

func TestGenerateDataKey(t *testing.T) {
	encoded, err := GenerateDataKey()
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	assert.Len(t, raw, KeySize)

	_, err = NewKeyringFromBase64(encoded)
	assert.NoError(t, err)

	_, err = NewKeyringFromBase64("not base64!")
	assert.Error(t, err)
}
