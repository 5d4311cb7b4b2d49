package fsm

import (
	"testing"
)

func codeOf(t *testing.T, err error) ErrorCode {
	t.Helper()
	coded, ok := err.(interface{ Code() ErrorCode })
	if !ok {
		t.Fatalf("error %v carries no code", err)
	}
	return coded.Code()
}

func testMachine(t *testing.T) *Machine {
	t.Helper()
	var m Machine
	if err := m.AddStateTransitionRules("a", "b"); err != nil {
		t.Fatal(err)
	}
	if err := m.AddStateTransitionRules("b", "c"); err != nil {
		t.Fatal(err)
	}
	if err := m.AddStateTransitionRules("c"); err != nil {
		t.Fatal(err)
	}
	return &m
}

func TestStateTransition_Initial(t *testing.T) {
	m := testMachine(t)

	if state := m.CurrentState(); state != "" {
		t.Fatalf("expected no initial state, got %q", state)
	}
	if err := m.StateTransition("a"); err != nil {
		t.Fatal(err)
	}
	if state := m.CurrentState(); state != "a" {
		t.Errorf("expected a, got %q", state)
	}
}

func TestStateTransition_UndefinedInitial(t *testing.T) {
	m := testMachine(t)
	err := m.StateTransition("nope")
	if err == nil {
		t.Fatal("expected an undefined initial state to be refused")
	}
	if code := codeOf(t, err); code != ErrorStateUndefined {
		t.Errorf("expected StateUndefined, got %v", code)
	}
}

func TestStateTransition_Walk(t *testing.T) {
	m := testMachine(t)
	for _, state := range []string{"a", "b", "c"} {
		if err := m.StateTransition(state); err != nil {
			t.Fatalf("to %s: %v", state, err)
		}
	}

	err := m.StateTransition("a")
	if err == nil {
		t.Fatal("expected c to be terminal")
	}
	if code := codeOf(t, err); code != ErrorTransitionNotPermitted {
		t.Errorf("expected TransitionNotPermitted, got %v", code)
	}
	if state := m.CurrentState(); state != "c" {
		t.Errorf("a refused transition must not move the machine, got %q", state)
	}
}

func TestStateTransition_SkippingRefused(t *testing.T) {
	m := testMachine(t)
	if err := m.StateTransition("a"); err != nil {
		t.Fatal(err)
	}
	if err := m.StateTransition("c"); err == nil {
		t.Error("expected a to c to be refused")
	}
}

func TestStateTransition_Uninitialized(t *testing.T) {
	var m Machine
	err := m.StateTransition("a")
	if err == nil {
		t.Fatal("expected an empty machine to refuse transitions")
	}
	if code := codeOf(t, err); code != ErrorMachineNotInitialized {
		t.Errorf("expected MachineNotInitialized, got %v", code)
	}
}

func TestStateTransitionRules_Copies(t *testing.T) {
	m := testMachine(t)
	rules, err := m.StateTransitionRules("a")
	if err != nil {
		t.Fatal(err)
	}
	rules["z"] = struct{}{}

	if err := m.StateTransition("a"); err != nil {
		t.Fatal(err)
	}
	if err := m.StateTransition("z"); err == nil {
		t.Error("mutating returned rules must not affect the machine")
	}
}
