package secrets_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/secretmgr/pkg/secrets"
)

func TestIDInfo(t *testing.T) {
	t.Parallel()

	info, ok := secrets.TOTPMasterKey.Info()
	require.True(t, ok)
	assert.Equal(t, "totp_master_key", info.Name)
	assert.Equal(t, "totp_old_master_key", info.OldName)
	assert.Equal(t, 128, info.Bits)
	assert.Equal(t, secrets.RoleAuth, info.Owner)

	_, ok = secrets.NumSecrets.Info()
	assert.False(t, ok)
}

func TestIDString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "totp_master_key", secrets.TOTPMasterKey.String())
	assert.Equal(t, "secret(99)", secrets.ID(99).String())
}

func TestIDs(t *testing.T) {
	t.Parallel()

	ids := secrets.IDs()
	require.Len(t, ids, int(secrets.NumSecrets))
	for i, id := range ids {
		assert.Equal(t, secrets.ID(i), id)
		assert.True(t, id.Valid())
	}
}

func TestParseID(t *testing.T) {
	t.Parallel()

	id, err := secrets.ParseID(" TOTP_Master_Key ")
	require.NoError(t, err)
	assert.Equal(t, secrets.TOTPMasterKey, id)

	_, err = secrets.ParseID("db_password")
	assert.Error(t, err)
}

func TestStateIsAvailable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state     secrets.State
		available bool
		name      string
	}{
		{secrets.NotLoaded, false, "not_loaded"},
		{secrets.LoadFailed, false, "load_failed"},
		{secrets.NotPresent, true, "not_present"},
		{secrets.Present, true, "present"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.available, tt.state.IsAvailable())
			assert.Equal(t, tt.name, tt.state.String())
		})
	}
}
