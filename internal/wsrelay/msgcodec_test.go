package wsrelay_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breeze-rmm/breeze/internal/wsrelay"
)

func TestCompressDecompressRoundTrip(t *testing.T) {
	inputs := []string{
		`{"commandId":"1","type":"shell","payload":{"script":"echo hi"}}`,
		`{"heartbeat":true}`,
		`{}`,
	}
	for _, in := range inputs {
		data := []byte(in)
		compressed, c := wsrelay.Compress(data)
		assert.Equal(t, wsrelay.CompressionZstd, c)

		decompressed, err := wsrelay.Decompress(compressed, c)
		require.NoError(t, err)
		assert.Equal(t, data, decompressed)
	}
}

func TestFrame_EncodeDecodeRoundTrip(t *testing.T) {
	raw := wsrelay.EncodeCompressed(wsrelay.FrameCommand, []byte(`{"x":1}`))

	f, err := wsrelay.DecodeFrame(raw)
	require.NoError(t, err)
	assert.Equal(t, wsrelay.FrameCommand, f.Type)
	assert.Equal(t, wsrelay.CompressionZstd, f.Compression)

	payload, err := f.Decompressed()
	require.NoError(t, err)
	assert.Equal(t, `{"x":1}`, string(payload))
}

func TestDecodeFrame_RejectsTooShort(t *testing.T) {
	_, err := wsrelay.DecodeFrame([]byte{1})
	assert.Error(t, err)
}
