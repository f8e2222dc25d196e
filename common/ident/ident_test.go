package ident

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashDeterministic(t *testing.T) {
	data := []byte("image bytes")

	first := Hash(data, "a.jpg")
	second := Hash(data, "a.jpg")

	assert.Equal(t, first, second)
	assert.Len(t, first, Size)
}

func TestHashSensitiveToBothInputs(t *testing.T) {
	data := []byte("image bytes")

	base := Hash(data, "a.jpg")
	assert.NotEqual(t, base, Hash([]byte("other bytes"), "a.jpg"))
	assert.NotEqual(t, base, Hash(data, "b.jpg"))
}

func TestHashMatchesConcatenation(t *testing.T) {
	data := []byte{0x01, 0x02}
	want := sha256.Sum256([]byte{0x01, 0x02, 'a', '.', 'j', 'p', 'g'})
	assert.Equal(t, want[:], Hash(data, "a.jpg"))
}

func TestHexRoundTrip(t *testing.T) {
	id := Hash([]byte("payload"), "name.png")

	encoded := BytesToHex(id)
	decoded, err := HexToBytes(encoded)
	require.NoError(t, err)
	assert.Equal(t, id, decoded)
}

func TestHexCaseInsensitive(t *testing.T) {
	upper, err := HexToBytes("DEADBEEF")
	require.NoError(t, err)
	lower, err := HexToBytes("deadbeef")
	require.NoError(t, err)
	assert.Equal(t, upper, lower)
}

func TestHexToBytesMalformed(t *testing.T) {
	for _, id := range []string{"abc", "zz00", "0x12"} {
		_, err := HexToBytes(id)
		var malformed *MalformedIDError
		assert.ErrorAs(t, err, &malformed, "id %q", id)
	}
}
