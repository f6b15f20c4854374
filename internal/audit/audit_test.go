package audit_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breeze-rmm/breeze/internal/audit"
	"github.com/breeze-rmm/breeze/internal/model"
)

type fakeStore struct {
	entries []*model.AuditLog
}

func (f *fakeStore) LastAuditChecksum(ctx context.Context) (string, error) {
	if len(f.entries) == 0 {
		return "", nil
	}
	return f.entries[len(f.entries)-1].Checksum, nil
}

func (f *fakeStore) AppendAuditLog(ctx context.Context, e *model.AuditLog) error {
	f.entries = append(f.entries, e)
	return nil
}

func TestWriter_Append_ChainsChecksums(t *testing.T) {
	fs := &fakeStore{}
	w := audit.NewWriter(fs)

	first, err := w.Append(context.Background(), audit.Entry{
		ActorType:    model.ActorUser,
		ActorID:      "u1",
		Action:       "device.update_status",
		ResourceType: "device",
		Result:       model.AuditSuccess,
	})
	require.NoError(t, err)
	assert.Empty(t, first.PrevChecksum)
	assert.NotEmpty(t, first.Checksum)

	second, err := w.Append(context.Background(), audit.Entry{
		ActorType:    model.ActorUser,
		ActorID:      "u1",
		Action:       "device.delete",
		ResourceType: "device",
		Result:       model.AuditSuccess,
	})
	require.NoError(t, err)
	assert.Equal(t, first.Checksum, second.PrevChecksum)
	assert.NotEqual(t, first.Checksum, second.Checksum)

	assert.Equal(t, -1, audit.Verify(fs.entries))
}

func TestVerify_DetectsTampering(t *testing.T) {
	fs := &fakeStore{}
	w := audit.NewWriter(fs)
	_, err := w.Append(context.Background(), audit.Entry{ActorType: model.ActorSystem, ActorID: "sys", Action: "a", ResourceType: "r", Result: model.AuditSuccess})
	require.NoError(t, err)
	_, err = w.Append(context.Background(), audit.Entry{ActorType: model.ActorSystem, ActorID: "sys", Action: "b", ResourceType: "r", Result: model.AuditSuccess})
	require.NoError(t, err)

	fs.entries[0].Action = "tampered"
	assert.Equal(t, 0, audit.Verify(fs.entries))
}
