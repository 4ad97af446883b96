package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpen(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	s, err := NewSealer(key)
	require.NoError(t, err)

	sealed, err := s.Seal("ya29.access-token")
	require.NoError(t, err)
	assert.NotEqual(t, "ya29.access-token", sealed)

	again, err := s.Seal("ya29.access-token")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonce must differ between seals")

	opened, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "ya29.access-token", opened)
}

func TestEmptyValuesPassThrough(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	s, err := NewSealer(key)
	require.NoError(t, err)

	sealed, err := s.Seal("")
	require.NoError(t, err)
	assert.Empty(t, sealed)

	opened, err := s.Open("")
	require.NoError(t, err)
	assert.Empty(t, opened)
}

func TestNewSealerRejectsBadKeys(t *testing.T) {
	_, err := NewSealer("")
	assert.Error(t, err)

	_, err = NewSealer("not base64!!")
	assert.Error(t, err)

	_, err = NewSealer("c2hvcnQ=")
	assert.ErrorContains(t, err, "32 bytes")
}

func TestOpenRejectsTamperedInput(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	s, err := NewSealer(key)
	require.NoError(t, err)

	_, err = s.Open("AAAA")
	assert.ErrorIs(t, err, ErrCiphertextTooShort)

	sealed, err := s.Seal("secret")
	require.NoError(t, err)
	tampered := []byte(sealed)
	tampered[len(tampered)-3] ^= 0x01
	_, err = s.Open(string(tampered))
	assert.Error(t, err)
}
