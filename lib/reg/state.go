package reg

import (
	"gfx.cafe/gfx/regat/lib/util/fsm"
)

// Lifecycle phases of the node. Transitions are linear; once shutdown
// begins there is no way back to SERVING.
const (
	StateUninitialized = "UNINITIALIZED"
	StateInitializing  = "INITIALIZING"
	StateServing       = "SERVING"
	StateShuttingDown  = "SHUTTING_DOWN"
	StateStopped       = "STOPPED"
)

// newLifecycle wires the legal bootstrap edges and parks the machine at
// UNINITIALIZED. INITIALIZING may fall straight to SHUTTING_DOWN so a node
// whose bootstrap failed can still be torn down.
func newLifecycle() *fsm.Machine {
	machine := new(fsm.Machine)
	_ = machine.AddStateTransitionRules(StateUninitialized, StateInitializing)
	_ = machine.AddStateTransitionRules(StateInitializing, StateServing, StateShuttingDown)
	_ = machine.AddStateTransitionRules(StateServing, StateShuttingDown)
	_ = machine.AddStateTransitionRules(StateShuttingDown, StateStopped)
	_ = machine.AddStateTransitionRules(StateStopped)
	_ = machine.StateTransition(StateUninitialized)
	return machine
}
