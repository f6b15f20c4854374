package cryptoutil_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breeze-rmm/breeze/internal/cryptoutil"
)

func key32() []byte {
	return []byte("01234567890123456789012345678901")
}

func TestEncryptor_RoundTrip(t *testing.T) {
	enc, err := cryptoutil.NewEncryptor(key32())
	require.NoError(t, err)

	ciphertext, err := enc.Encrypt([]byte("top-secret-totp-seed"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ciphertext, "enc:v1:"))
	assert.True(t, cryptoutil.IsEncoded(ciphertext))

	plaintext, err := enc.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "top-secret-totp-seed", string(plaintext))
}

func TestEncryptor_RejectsUnversionedCiphertext(t *testing.T) {
	enc, err := cryptoutil.NewEncryptor(key32())
	require.NoError(t, err)
	_, err = enc.Decrypt("plain-old-value")
	assert.Error(t, err)
}

func TestNewEncryptor_RejectsShortKey(t *testing.T) {
	_, err := cryptoutil.NewEncryptor([]byte("short"))
	assert.Error(t, err)
}

func TestHMACSignHex_MatchesWebhookSignatureFormat(t *testing.T) {
	sig := cryptoutil.HMACSignHex([]byte("whsec"), []byte(`{"id":"1"}`))
	assert.Len(t, sig, 64) // hex-encoded SHA-256
	assert.True(t, cryptoutil.HMACEqual(sig, sig))
	assert.False(t, cryptoutil.HMACEqual(sig, "0000"))
}

func TestPepperedHash_RotationInvalidatesOldHashes(t *testing.T) {
	h1 := cryptoutil.PepperedHash("pepper-v1", "enrollment-key-abc")
	h2 := cryptoutil.PepperedHash("pepper-v2", "enrollment-key-abc")
	assert.NotEqual(t, h1, h2)
	assert.True(t, cryptoutil.PepperedHashEqual("pepper-v1", "enrollment-key-abc", h1))
	assert.False(t, cryptoutil.PepperedHashEqual("pepper-v2", "enrollment-key-abc", h1))
}

func TestRandomToken_Unique(t *testing.T) {
	a, err := cryptoutil.RandomToken(32)
	require.NoError(t, err)
	b, err := cryptoutil.RandomToken(32)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
