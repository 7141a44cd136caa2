package webapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadMachineHappyPath(t *testing.T) {
	m := &uploadMachine{}
	for _, s := range []uploadState{stateValidating, stateIngesting, statePersisting, stateCommitted} {
		require.NoError(t, m.transition(s))
	}

	assert.Equal(t, stateCommitted, m.state)
	assert.Error(t, m.transition(stateAborting), "committed is terminal")
}

func TestUploadMachineRollbackStates(t *testing.T) {
	tests := []struct {
		name     string
		path     []uploadState
		rollback bool
	}{
		{"validating", []uploadState{stateValidating}, false},
		{"ingesting", []uploadState{stateValidating, stateIngesting}, true},
		{"persisting", []uploadState{stateValidating, stateIngesting, statePersisting}, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			m := &uploadMachine{}
			for _, s := range test.path {
				require.NoError(t, m.transition(s))
			}
			assert.Equal(t, test.rollback, m.needsRollback())
		})
	}
}

func TestUploadMachineInvalidTransitions(t *testing.T) {
	m := &uploadMachine{}
	assert.Error(t, m.transition(stateCommitted))

	require.NoError(t, m.transition(stateValidating))
	assert.Error(t, m.transition(stateAborting), "nothing to abort before ingesting")
	assert.Error(t, m.transition(statePersisting))

	require.NoError(t, m.transition(stateFailed))
	assert.Error(t, m.transition(stateValidating), "failed is terminal")
	assert.Equal(t, "failed", m.state.String())
}
