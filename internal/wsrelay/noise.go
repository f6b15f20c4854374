package wsrelay

import (
	"crypto/rand"
	"fmt"

	"github.com/flynn/noise"
)

// noiseCipherSuite matches the XX pattern's usual curve/cipher/hash
// triple: X25519 for the DH, ChaCha20-Poly1305 for the AEAD, BLAKE2s
// for the transcript hash.
var noiseCipherSuite = noise.NewCipherSuite(noise.DH25519, noise.CipherChaChaPoly, noise.HashBLAKE2s)

// NoiseTransport wraps a completed Noise XX handshake's two transport
// ciphers, applied on top of the mTLS channel for defense-in-depth
// payload confidentiality: even a terminated-proxy mTLS session still
// can't read agent payloads without also completing this handshake.
type NoiseTransport struct {
	send *noise.CipherState
	recv *noise.CipherState
}

// NewNoiseInitiator starts an XX handshake as the initiator (the
// control plane, dialing out to... no — the agent always dials in, so
// the control plane is the XX responder; this constructor exists for
// symmetry and for tests that drive both sides in-process).
func NewNoiseInitiator(staticKey noise.DHKey) *noise.HandshakeState {
	hs, err := noise.NewHandshakeState(noise.Config{
		CipherSuite:   noiseCipherSuite,
		Random:        rngSource{},
		Pattern:       noise.HandshakeXX,
		Initiator:     true,
		StaticKeypair: staticKey,
	})
	if err != nil {
		panic(fmt.Sprintf("wsrelay: init noise initiator: %v", err))
	}
	return hs
}

// NewNoiseResponder starts an XX handshake as the responder: the role
// the control plane plays, since agents always initiate the WebSocket
// connection and its Noise handshake.
func NewNoiseResponder(staticKey noise.DHKey) *noise.HandshakeState {
	hs, err := noise.NewHandshakeState(noise.Config{
		CipherSuite:   noiseCipherSuite,
		Random:        rngSource{},
		Pattern:       noise.HandshakeXX,
		Initiator:     false,
		StaticKeypair: staticKey,
	})
	if err != nil {
		panic(fmt.Sprintf("wsrelay: init noise responder: %v", err))
	}
	return hs
}

// GenerateStaticKey creates a fresh X25519 static keypair for a Noise
// responder (the control plane's side is stable across connections;
// the agent's is rotated at each enrollment).
func GenerateStaticKey() (noise.DHKey, error) {
	return noiseCipherSuite.GenerateKeypair(rngSource{})
}

// RespondToMsg1 consumes the initiator's first XX message and returns
// the responder's second message to send back. The handshake is not
// yet complete: call CompleteWithMsg3 once the initiator's third
// message arrives.
func RespondToMsg1(hs *noise.HandshakeState, msg1 []byte) (msg2 []byte, err error) {
	if _, _, _, err := hs.ReadMessage(nil, msg1); err != nil {
		return nil, fmt.Errorf("wsrelay: noise read msg1: %w", err)
	}
	msg2, _, _, err = hs.WriteMessage(nil, nil)
	if err != nil {
		return nil, fmt.Errorf("wsrelay: noise write msg2: %w", err)
	}
	return msg2, nil
}

// CompleteWithMsg3 consumes the initiator's third XX message and
// returns the resulting send/recv transport ciphers.
func CompleteWithMsg3(hs *noise.HandshakeState, msg3 []byte) (*NoiseTransport, error) {
	_, recv, send, err := hs.ReadMessage(nil, msg3)
	if err != nil {
		return nil, fmt.Errorf("wsrelay: noise read msg3: %w", err)
	}
	return &NoiseTransport{send: send, recv: recv}, nil
}

// Encrypt seals plaintext with the sender-side transport cipher.
func (t *NoiseTransport) Encrypt(plaintext []byte) ([]byte, error) {
	return t.send.Encrypt(nil, nil, plaintext)
}

// Decrypt opens ciphertext with the receiver-side transport cipher.
func (t *NoiseTransport) Decrypt(ciphertext []byte) ([]byte, error) {
	return t.recv.Decrypt(nil, nil, ciphertext)
}

// rngSource adapts crypto/rand to noise's io.Reader-shaped RandomSource.
type rngSource struct{}

func (rngSource) Read(p []byte) (int, error) {
	return rand.Read(p)
}
