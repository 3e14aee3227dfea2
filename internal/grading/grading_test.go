package grading

import (
	"context"
	"errors"
	"strings"
	"testing"

	"codearena/internal/sandbox"
	"codearena/internal/store"
)

// fakeRunner echoes the stdin back, with special markers driving failure
// modes so tests never need a compiler.
type fakeRunner struct{}

func (fakeRunner) Execute(ctx context.Context, source, stdin string) (sandbox.ExecResult, error) {
	switch {
	case strings.Contains(source, "BOOM"):
		return sandbox.ExecResult{}, errors.New("sandbox host failure")
	case strings.Contains(stdin, "slow"):
		return sandbox.ExecResult{Status: sandbox.StatusTimeout}, nil
	case strings.Contains(stdin, "crash"):
		return sandbox.ExecResult{Status: sandbox.StatusRuntimeError, ExitCode: 1}, nil
	default:
		return sandbox.ExecResult{Status: sandbox.StatusOK, Stdout: stdin + "\n"}, nil
	}
}

func TestGradeEmptyCases(t *testing.T) {
	g := New(fakeRunner{}, 2)
	outcome, err := g.Grade(context.Background(), "src", nil, 10)
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if outcome.MarksEarned != 0 || outcome.Results != nil {
		t.Fatalf("expected zero outcome, got %+v", outcome)
	}
}

func TestGradeProportionalFloor(t *testing.T) {
	g := New(fakeRunner{}, 2)
	cases := []store.TestCase{
		{Input: "a", Expected: "a"},
		{Input: "b", Expected: "b"},
		{Input: "crash", Expected: "c"},
	}
	outcome, err := g.Grade(context.Background(), "src", cases, 10)
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if outcome.Passed != 2 || outcome.Total != 3 {
		t.Fatalf("expected 2/3, got %d/%d", outcome.Passed, outcome.Total)
	}
	// 10 * 2 / 3 floors to 6.
	if outcome.MarksEarned != 6 {
		t.Fatalf("expected 6 marks, got %d", outcome.MarksEarned)
	}
}

func TestGradeKeepsInputOrder(t *testing.T) {
	g := New(fakeRunner{}, 4)
	cases := []store.TestCase{
		{Input: "first", Expected: "first"},
		{Input: "slow", Expected: "never"},
		{Input: "third", Expected: "third"},
	}
	outcome, err := g.Grade(context.Background(), "src", cases, 30)
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if len(outcome.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(outcome.Results))
	}
	if !outcome.Results[0].Passed || outcome.Results[1].Passed || !outcome.Results[2].Passed {
		t.Fatalf("wrong pass pattern: %+v", outcome.Results)
	}
	if outcome.Results[1].Status != string(sandbox.StatusTimeout) {
		t.Fatalf("timeout status lost: %+v", outcome.Results[1])
	}
	if outcome.Results[1].Actual != string(sandbox.StatusTimeout) {
		t.Fatalf("expected status word in actual, got %q", outcome.Results[1].Actual)
	}
	if outcome.MarksEarned != 20 {
		t.Fatalf("expected 20 marks, got %d", outcome.MarksEarned)
	}
}

func TestGradeTrimsWhitespace(t *testing.T) {
	g := New(fakeRunner{}, 1)
	cases := []store.TestCase{{Input: "42", Expected: "  42  "}}
	outcome, err := g.Grade(context.Background(), "src", cases, 5)
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if !outcome.Results[0].Passed || outcome.MarksEarned != 5 {
		t.Fatalf("trimmed comparison failed: %+v", outcome)
	}
}

func TestGradeSurfacesRunnerError(t *testing.T) {
	g := New(fakeRunner{}, 2)
	cases := []store.TestCase{{Input: "a", Expected: "a"}}
	if _, err := g.Grade(context.Background(), "BOOM", cases, 10); err == nil {
		t.Fatal("expected host failure to surface")
	}
}

func TestGradeSingleWorkerStillCompletes(t *testing.T) {
	g := New(fakeRunner{}, 1)
	cases := make([]store.TestCase, 16)
	for i := range cases {
		cases[i] = store.TestCase{Input: "x", Expected: "x"}
	}
	outcome, err := g.Grade(context.Background(), "src", cases, 16)
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if outcome.Passed != 16 || outcome.MarksEarned != 16 {
		t.Fatalf("expected all pass, got %+v", outcome)
	}
}
