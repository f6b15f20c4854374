// Package wsrelay mediates the agent and remote-session WebSocket
// connections: framing, compression, and per-identity connection
// registries. No protocol decoding beyond a thin envelope happens
// here — payloads are opaque JSON to everything but the caller.
package wsrelay

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Compression enumerates the values a Frame's Compression byte can
// carry. Kept as a small Go type instead of a generated protobuf enum
// since there is no other wire-schema surface in this transport.
type Compression byte

const (
	CompressionNone Compression = 0
	CompressionZstd Compression = 1
)

var (
	encoder *zstd.Encoder
	decoder *zstd.Decoder
)

func init() {
	var err error
	encoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic(fmt.Sprintf("wsrelay: init zstd encoder: %v", err))
	}
	decoder, err = zstd.NewReader(nil)
	if err != nil {
		panic(fmt.Sprintf("wsrelay: init zstd decoder: %v", err))
	}
}

// Compress zstd-compresses payload, returning the compressed bytes and
// the Compression tag a Frame should carry alongside it.
func Compress(payload []byte) ([]byte, Compression) {
	return encoder.EncodeAll(payload, make([]byte, 0, len(payload)/2)), CompressionZstd
}

// Decompress reverses Compress given the tag a Frame carried.
func Decompress(payload []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionZstd:
		return decoder.DecodeAll(payload, nil)
	case CompressionNone:
		return payload, nil
	default:
		return nil, fmt.Errorf("wsrelay: unsupported compression tag %d", c)
	}
}

// FrameType distinguishes the kinds of messages multiplexed over one
// agent or remote-session WebSocket connection.
type FrameType byte

const (
	FrameHeartbeat     FrameType = 1
	FrameCommand       FrameType = 2
	FrameCommandResult FrameType = 3
	FrameSignal        FrameType = 4 // remote session SDP/ICE relay
	FrameDataChannel   FrameType = 5 // opaque remote session payload
	FrameControl       FrameType = 6 // session start/end/ack
)

// Frame is one unit on the wire: a type byte, a compression byte, and
// a JSON (or opaque, for FrameDataChannel) payload. There is no length
// field; the payload runs to the end of the WebSocket message.
// Encode/DecodeFrame handle the header; WebSocket message framing
// itself is handled by coder/websocket below this layer.
type Frame struct {
	Type        FrameType
	Compression Compression
	Payload     []byte
}

// Encode serializes f into a single []byte suitable for one
// websocket.Write call: [type byte][compression byte][payload...].
func Encode(f Frame) []byte {
	out := make([]byte, 2+len(f.Payload))
	out[0] = byte(f.Type)
	out[1] = byte(f.Compression)
	copy(out[2:], f.Payload)
	return out
}

// DecodeFrame parses the header Encode wrote back out of raw.
func DecodeFrame(raw []byte) (Frame, error) {
	if len(raw) < 2 {
		return Frame{}, fmt.Errorf("wsrelay: frame too short (%d bytes)", len(raw))
	}
	return Frame{
		Type:        FrameType(raw[0]),
		Compression: Compression(raw[1]),
		Payload:     raw[2:],
	}, nil
}

// EncodeCompressed compresses payload and wraps it in a Frame header
// in one step, the path every sender other than tests should use.
func EncodeCompressed(t FrameType, payload []byte) []byte {
	compressed, c := Compress(payload)
	return Encode(Frame{Type: t, Compression: c, Payload: compressed})
}

// Decompressed decompresses f.Payload per its Compression tag.
func (f Frame) Decompressed() ([]byte, error) {
	return Decompress(f.Payload, f.Compression)
}
