package secrets_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/systmms/secretmgr/pkg/secrets"
)

func TestValidateTransition(t *testing.T) {
	t.Parallel()

	a := big.NewInt(0xA)
	b := big.NewInt(0xB)
	aCopy := big.NewInt(0xA)

	tests := []struct {
		name        string
		transition  secrets.Transition
		wantErr     bool
		wantChanged bool
		errContains string
	}{
		{
			name:       "nothing configured, nothing recorded",
			transition: secrets.Transition{},
		},
		{
			name:        "first configuration",
			transition:  secrets.Transition{New: a},
			wantChanged: true,
		},
		{
			name:        "rotation to a different value",
			transition:  secrets.Transition{New: b, Old: a, HadOld: true},
			wantChanged: true,
		},
		{
			name:       "unchanged value reloaded",
			transition: secrets.Transition{New: a, Old: aCopy, HadOld: true},
		},
		{
			name:        "recorded value disappeared",
			transition:  secrets.Transition{HadOld: true},
			wantErr:     true,
			errContains: "was configured before",
		},
		{
			name:        "changed value without the previous one",
			transition:  secrets.Transition{New: a, HadOld: true},
			wantErr:     true,
			errContains: "does not match the recorded value",
		},
		{
			name:        "intentional reset",
			transition:  secrets.Transition{New: a, HadOld: true, Reset: true},
			wantChanged: true,
		},
		{
			name:        "decommission with previous value",
			transition:  secrets.Transition{Old: a, HadOld: true},
			wantChanged: true,
		},
		{
			name:        "old value without any record",
			transition:  secrets.Transition{New: b, Old: a},
			wantErr:     true,
			errContains: "no previous value was ever recorded",
		},
		{
			name:        "old value only, without any record",
			transition:  secrets.Transition{Old: a},
			wantErr:     true,
			errContains: "totp_old_master_key",
		},
		{
			name:        "zero value",
			transition:  secrets.Transition{New: big.NewInt(0)},
			wantErr:     true,
			errContains: "non-zero",
		},
		{
			name:        "negative old value",
			transition:  secrets.Transition{New: a, Old: big.NewInt(-1), HadOld: true},
			wantErr:     true,
			errContains: "totp_old_master_key",
		},
		{
			name:        "too wide",
			transition:  secrets.Transition{New: new(big.Int).Lsh(big.NewInt(1), 128)},
			wantErr:     true,
			errContains: "wider than 128 bits",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := secrets.ValidateTransition(secrets.TOTPMasterKey, tt.transition)
			if tt.wantErr {
				var terr *secrets.TransitionError
				assert.True(t, errors.As(err, &terr))
				assert.Contains(t, err.Error(), tt.errContains)
				assert.Contains(t, err.Error(), "totp_master_key")
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantChanged, tt.transition.Changed())
		})
	}
}

func TestValidateTransitionUnknownID(t *testing.T) {
	t.Parallel()

	err := secrets.ValidateTransition(secrets.NumSecrets, secrets.Transition{})
	assert.Error(t, err)
}
