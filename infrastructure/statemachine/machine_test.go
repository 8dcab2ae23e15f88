package statemachine

import (
	"errors"
	"testing"

	"github.com/felixgeelhaar/groundwork/domain/task"
)

func newInterpreter(t *testing.T, s *task.State) *Interpreter {
	t.Helper()

	machine, err := NewPipelineMachine()
	if err != nil {
		t.Fatalf("NewPipelineMachine() error = %v", err)
	}
	interp := NewInterpreter(machine, NewContext(s))
	interp.Start()
	return interp
}

func TestInterpreter_LinearFlow(t *testing.T) {
	s := task.New("test task", nil)
	interp := newInterpreter(t, s)

	if interp.Stage() != task.StagePlanning {
		t.Fatalf("initial stage = %q", interp.Stage())
	}

	for _, to := range []task.Stage{
		task.StageResearching,
		task.StageWriting,
		task.StageVerifying,
	} {
		if err := interp.Transition(to, "advance"); err != nil {
			t.Fatalf("Transition(%s) error = %v", to, err)
		}
		if interp.Stage() != to {
			t.Errorf("stage = %q, want %q", interp.Stage(), to)
		}
		if s.CurrentStage != to {
			t.Errorf("state marker = %q, want %q", s.CurrentStage, to)
		}
	}

	if err := s.Finalize("output"); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if err := interp.Transition(task.StageDone, "pass"); err != nil {
		t.Fatalf("Transition(done) error = %v", err)
	}
	if !interp.IsTerminal() {
		t.Error("interpreter should be terminal in done")
	}
}

func TestInterpreter_RetryBackEdge(t *testing.T) {
	s := task.New("test task", nil)
	s.VerifierMaxRetries = 2
	interp := newInterpreter(t, s)

	mustTransition(t, interp, task.StageResearching, task.StageWriting, task.StageVerifying)

	// One failure within budget: the back-edge is open.
	s.RecordVerifierFailure()
	if err := interp.Transition(task.StageResearching, "verdict fail"); err != nil {
		t.Fatalf("retry Transition() error = %v", err)
	}
	if interp.Stage() != task.StageResearching {
		t.Errorf("stage = %q after retry", interp.Stage())
	}
}

func TestInterpreter_RetryGuard_BudgetExhausted(t *testing.T) {
	s := task.New("test task", nil)
	s.VerifierMaxRetries = 0
	interp := newInterpreter(t, s)

	mustTransition(t, interp, task.StageResearching, task.StageWriting, task.StageVerifying)

	s.RecordVerifierFailure() // count 1 > max 0

	err := interp.Transition(task.StageResearching, "verdict fail")
	if !errors.Is(err, ErrTransitionRejected) {
		t.Fatalf("Transition() error = %v, want ErrTransitionRejected", err)
	}
	if interp.Stage() != task.StageVerifying {
		t.Errorf("rejected transition moved the machine to %q", interp.Stage())
	}
}

func TestInterpreter_RetryGuard_AlreadyFinal(t *testing.T) {
	s := task.New("test task", nil)
	interp := newInterpreter(t, s)

	mustTransition(t, interp, task.StageResearching, task.StageWriting, task.StageVerifying)

	if err := s.Finalize("done"); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	// Once a final output exists the only legal move is to a terminal stage.
	if err := interp.Transition(task.StageResearching, "stale reroute"); !errors.Is(err, ErrTransitionRejected) {
		t.Errorf("Transition() error = %v, want ErrTransitionRejected", err)
	}
}

func TestInterpreter_NoSkippingStages(t *testing.T) {
	s := task.New("test task", nil)
	interp := newInterpreter(t, s)

	// planning → verifying is not an edge.
	if err := interp.Transition(task.StageVerifying, "skip"); !errors.Is(err, ErrTransitionRejected) {
		t.Errorf("Transition(planning->verifying) error = %v, want ErrTransitionRejected", err)
	}
}

func TestEventForTransition(t *testing.T) {
	tests := []struct {
		to   task.Stage
		want string
	}{
		{task.StageResearching, "RESEARCH"},
		{task.StageWriting, "WRITE"},
		{task.StageVerifying, "VERIFY"},
		{task.StageDone, "COMPLETE"},
		{task.StageFailed, "FAIL"},
	}

	for _, tt := range tests {
		t.Run(string(tt.to), func(t *testing.T) {
			if got := EventForTransition(tt.to); string(got) != tt.want {
				t.Errorf("EventForTransition(%s) = %s, want %s", tt.to, got, tt.want)
			}
		})
	}
}

func mustTransition(t *testing.T, interp *Interpreter, stages ...task.Stage) {
	t.Helper()
	for _, to := range stages {
		if err := interp.Transition(to, "advance"); err != nil {
			t.Fatalf("Transition(%s) error = %v", to, err)
		}
	}
}
