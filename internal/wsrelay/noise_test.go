package wsrelay_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breeze-rmm/breeze/internal/wsrelay"
)

func TestNoiseXXHandshake_ThenEncryptDecryptRoundTrip(t *testing.T) {
	initiatorKey, err := wsrelay.GenerateStaticKey()
	require.NoError(t, err)
	responderKey, err := wsrelay.GenerateStaticKey()
	require.NoError(t, err)

	initiator := wsrelay.NewNoiseInitiator(initiatorKey)
	responder := wsrelay.NewNoiseResponder(responderKey)

	msg1, _, _, err := initiator.WriteMessage(nil, nil)
	require.NoError(t, err)

	msg2, err := wsrelay.RespondToMsg1(responder, msg1)
	require.NoError(t, err)

	_, _, _, err = initiator.ReadMessage(nil, msg2)
	require.NoError(t, err)
	msg3, initiatorSend, initiatorRecv, err := initiator.WriteMessage(nil, nil)
	require.NoError(t, err)

	responderTransport, err := wsrelay.CompleteWithMsg3(responder, msg3)
	require.NoError(t, err)

	plaintext := []byte("agent command payload")
	ciphertext, err := initiatorSend.Encrypt(nil, nil, plaintext)
	require.NoError(t, err)
	decrypted, err := responderTransport.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)

	reply := []byte("command result payload")
	sealed, err := responderTransport.Encrypt(reply)
	require.NoError(t, err)
	opened, err := initiatorRecv.Decrypt(nil, nil, sealed)
	require.NoError(t, err)
	assert.Equal(t, reply, opened)
}
