// Package grading runs a submission's source against its test cases and
// converts pass counts into marks.
package grading

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"codearena/internal/sandbox"
	"codearena/internal/store"
	appErr "codearena/pkg/errors"
)

// Outcome is the result of grading one submission against its test cases.
type Outcome struct {
	MarksEarned int
	Passed      int
	Total       int
	Results     []store.TestCaseResult
}

// Grader runs test cases through a sandbox under a shared worker pool.
// One Grader serves the whole process so concurrent finalizations contend
// for the same execution slots.
type Grader struct {
	runner   sandbox.Runner
	sem      chan struct{}
	slotWait time.Duration
}

// Option tweaks Grader construction.
type Option func(*Grader)

// WithSlotWait overrides how long Grade waits for a free execution slot.
func WithSlotWait(d time.Duration) Option {
	return func(g *Grader) { g.slotWait = d }
}

// New creates a Grader with workers concurrent sandbox slots.
func New(runner sandbox.Runner, workers int, opts ...Option) *Grader {
	if workers <= 0 {
		workers = 4
	}
	g := &Grader{
		runner:   runner,
		sem:      make(chan struct{}, workers),
		slotWait: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Grade executes source against all test cases and returns per-test results
// in input order. Marks are awarded proportionally, floored.
func (g *Grader) Grade(ctx context.Context, source string, testCases []store.TestCase, maxMarks int) (Outcome, error) {
	total := len(testCases)
	if total == 0 {
		return Outcome{}, nil
	}

	results := make([]store.TestCaseResult, total)
	eg, egCtx := errgroup.WithContext(ctx)
	for i, tc := range testCases {
		i, tc := i, tc
		eg.Go(func() error {
			if err := g.acquireSlot(egCtx); err != nil {
				return err
			}
			defer g.releaseSlot()

			res, err := g.runner.Execute(egCtx, source, tc.Input)
			if err != nil {
				return err
			}
			results[i] = toTestResult(tc, res)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return Outcome{}, err
	}

	passed := 0
	for _, r := range results {
		if r.Passed {
			passed++
		}
	}
	return Outcome{
		MarksEarned: maxMarks * passed / total,
		Passed:      passed,
		Total:       total,
		Results:     results,
	}, nil
}

// Run executes source once against stdin under the shared worker pool.
// Used for teams trying their draft against custom input; the pool keeps
// these runs from starving concurrent finalizations.
func (g *Grader) Run(ctx context.Context, source, stdin string) (sandbox.ExecResult, error) {
	if err := g.acquireSlot(ctx); err != nil {
		return sandbox.ExecResult{}, err
	}
	defer g.releaseSlot()
	return g.runner.Execute(ctx, source, stdin)
}

func (g *Grader) acquireSlot(ctx context.Context) error {
	select {
	case g.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(g.slotWait):
		return appErr.New(appErr.GradingPoolFull).WithMessage("grading worker pool is full")
	}
}

func (g *Grader) releaseSlot() {
	select {
	case <-g.sem:
	default:
	}
}

func toTestResult(tc store.TestCase, res sandbox.ExecResult) store.TestCaseResult {
	out := store.TestCaseResult{
		Expected: tc.Expected,
		Status:   string(res.Status),
	}
	switch res.Status {
	case sandbox.StatusOK:
		out.Actual = res.Stdout
		out.Passed = strings.TrimSpace(res.Stdout) == strings.TrimSpace(tc.Expected)
	default:
		// Failed runs surface the status word instead of raw output so
		// teams see why a test did not pass.
		out.Actual = string(res.Status)
	}
	return out
}
