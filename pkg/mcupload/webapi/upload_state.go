package webapi

import (
	"fmt"
)

type uploadState int

const (
	stateIdle uploadState = iota
	stateValidating
	stateIngesting
	statePersisting
	stateCommitted
	stateAborting
	stateFailed
)

var stateNames = map[uploadState]string{
	stateIdle:       "idle",
	stateValidating: "validating",
	stateIngesting:  "ingesting",
	statePersisting: "persisting",
	stateCommitted:  "committed",
	stateAborting:   "aborting",
	stateFailed:     "failed",
}

func (s uploadState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}

	return fmt.Sprintf("state(%d)", int(s))
}

// allowedTransitions lists, for each state, the states it may move to.
// Committed and Failed are terminal.
var allowedTransitions = map[uploadState][]uploadState{
	stateIdle:       {stateValidating},
	stateValidating: {stateIngesting, stateFailed},
	stateIngesting:  {statePersisting, stateAborting},
	statePersisting: {stateCommitted, stateAborting},
	stateAborting:   {stateFailed},
}

// uploadMachine tracks the lifecycle of one upload request.
type uploadMachine struct {
	state uploadState
}

func (m *uploadMachine) transition(to uploadState) error {
	for _, next := range allowedTransitions[m.state] {
		if next == to {
			m.state = to
			return nil
		}
	}

	return fmt.Errorf("invalid upload state transition %s -> %s", m.state, to)
}

// needsRollback reports whether failing from the current state leaves
// anything on disk to remove.
func (m *uploadMachine) needsRollback() bool {
	return m.state == stateIngesting || m.state == statePersisting
}
