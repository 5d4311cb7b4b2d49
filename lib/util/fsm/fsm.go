package fsm

import (
	"fmt"
	"sync"
)

// TransitionRuleSet is a set of allowed destination states. This uses a map
// of struct{} to implement a set.
type TransitionRuleSet map[string]struct{}

// Copy copies the TransitionRuleSet into a fresh TransitionRuleSet.
func (trs TransitionRuleSet) Copy() TransitionRuleSet {
	srt := make(TransitionRuleSet, len(trs))

	for rule, value := range trs {
		srt[rule] = value
	}

	return srt
}

// Machine is the state machine.
type Machine struct {
	state string
	mu    sync.RWMutex

	transitions map[string]TransitionRuleSet
}

// CurrentState returns the machine's current state. If the state returned is
// "", the machine has not been given an initial state.
func (m *Machine) CurrentState() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state
}

// StateTransitionRules returns the allowed destination states for state.
func (m *Machine) StateTransitionRules(state string) (TransitionRuleSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.transitions == nil {
		return nil, newErrorStruct("the machine has not been fully initialized", ErrorMachineNotInitialized)
	}

	if _, ok := m.transitions[state]; !ok {
		return nil, newErrorStruct(fmt.Sprintf("state %s has not been registered", state), ErrorStateUndefined)
	}

	return m.transitions[state].Copy(), nil
}

// AddStateTransitionRules defines which states sourceState may transition to.
func (m *Machine) AddStateTransitionRules(sourceState string, destinationStates ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.transitions == nil {
		m.transitions = make(map[string]TransitionRuleSet)
	}

	if m.transitions[sourceState] == nil {
		m.transitions[sourceState] = make(TransitionRuleSet)
	}

	mp := m.transitions[sourceState]

	for _, dest := range destinationStates {
		mp[dest] = struct{}{}
	}

	return nil
}

// StateTransition triggers a transition to toState. This function is also
// used to set the initial state of the machine.
//
// Before you can transition to any state, even the initial one, you must
// define it with AddStateTransitionRules. Transitioning from a state returns
// an error if the transition is not allowed or the destination state has not
// been defined.
func (m *Machine) StateTransition(toState string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.transitions == nil {
		return newErrorStruct("the machine has no states added", ErrorMachineNotInitialized)
	}

	// if the state is nothing, this is probably the initial state
	if m.state == "" {
		if _, ok := m.transitions[toState]; !ok {
			return newErrorStruct("the initial state has not been defined within the machine", ErrorStateUndefined)
		}

		m.state = toState
		return nil
	}

	if _, ok := m.transitions[m.state][toState]; !ok {
		return newErrorStruct(fmt.Sprintf("transition from state %s to %s is not permitted", m.state, toState), ErrorTransitionNotPermitted)
	}

	if _, ok := m.transitions[toState]; !ok {
		return newErrorStruct(fmt.Sprintf("state %s has not been registered", toState), ErrorStateUndefined)
	}

	m.state = toState

	return nil
}

type ErrorCode uint

func (e ErrorCode) String() string {
	switch e {
	case ErrorMachineNotInitialized:
		return "MachineNotInitialized"
	case ErrorTransitionNotPermitted:
		return "TransitionNotPermitted"
	case ErrorStateUndefined:
		return "StateUndefined"
	default:
		return "Unknown"
	}
}

const (
	// ErrorUnknown is the default value
	ErrorUnknown ErrorCode = iota

	// ErrorMachineNotInitialized is returned when actions are taken on a
	// machine before it has been initialized by adding at least one state.
	ErrorMachineNotInitialized

	// ErrorTransitionNotPermitted is returned when the machine is not
	// permitted to transition from the current state to the one requested.
	ErrorTransitionNotPermitted

	// ErrorStateUndefined is returned when the requested state has not been
	// defined within the machine.
	ErrorStateUndefined
)

type errorStruct struct {
	message string
	code    ErrorCode
}

func newErrorStruct(message string, code ErrorCode) *errorStruct {
	return &errorStruct{
		message: message,
		code:    code,
	}
}

func (e *errorStruct) Error() string {
	return e.message
}

func (e *errorStruct) Code() ErrorCode {
	return e.code
}
