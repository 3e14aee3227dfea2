package submission

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"codearena/internal/grading"
	"codearena/internal/sandbox"
	"codearena/internal/store"
	"codearena/internal/store/db"
	appErr "codearena/pkg/errors"
)

// echoRunner echoes stdin; sources containing FAIL report a host failure.
type echoRunner struct{}

func (echoRunner) Execute(ctx context.Context, source, stdin string) (sandbox.ExecResult, error) {
	if strings.Contains(source, "FAIL") {
		return sandbox.ExecResult{}, errors.New("sandbox unavailable")
	}
	return sandbox.ExecResult{Status: sandbox.StatusOK, Stdout: stdin}, nil
}

type capturedEvent struct {
	TeamID string
	Event  string
	Data   interface{}
}

type fakeHub struct {
	mu     sync.Mutex
	events []capturedEvent
}

func (h *fakeHub) EmitAll(event string, data interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, capturedEvent{Event: event, Data: data})
}

func (h *fakeHub) EmitTo(teamID, event string, data interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, capturedEvent{TeamID: teamID, Event: event, Data: data})
}

func (h *fakeHub) named(event string) []capturedEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []capturedEvent
	for _, ev := range h.events {
		if ev.Event == event {
			out = append(out, ev)
		}
	}
	return out
}

type fakeBoard struct {
	mu     sync.Mutex
	scores map[string]int
}

func (b *fakeBoard) Update(ctx context.Context, teamID string, score int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.scores == nil {
		b.scores = make(map[string]int)
	}
	b.scores[teamID] = score
	return nil
}

type testEnv struct {
	store   *store.Store
	service *Service
	hub     *fakeHub
	board   *fakeBoard
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := db.DefaultConfig()
	cfg.DSN = filepath.Join(t.TempDir(), "test.db")
	handle, err := db.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = handle.Close() })

	st := store.New(handle, cfg.Driver)
	hub := &fakeHub{}
	board := &fakeBoard{}
	grader := grading.New(echoRunner{}, 2)
	svc := NewService(st, grader, NewTeamLocker(), hub, board)
	return &testEnv{store: st, service: svc, hub: hub, board: board}
}

func (e *testEnv) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	questions := []store.Question{
		{QuestionID: "q1", Kind: store.KindChoice, Section: 1, Position: 1, Prompt: "pick",
			Options: []string{"a", "b", "c"}, CorrectOption: "b", Marks: 5},
		{QuestionID: "q2", Kind: store.KindCoding, Section: 2, Position: 1, Prompt: "echo", Marks: 10,
			TestCases: []store.TestCase{
				{Input: "hello", Expected: "hello"},
				{Input: "world", Expected: "world"},
			}},
	}
	if err := e.store.Questions.ReplaceAll(ctx, questions); err != nil {
		t.Fatalf("seed questions: %v", err)
	}

	if err := e.store.Teams.Create(ctx, &store.Team{
		TeamID: "TEAM-TEST0001", TeamName: "testers", LeaderName: "lead",
		Email: "team@example.com", StartTime: store.NowISO(),
	}); err != nil {
		t.Fatalf("seed team: %v", err)
	}

	settings, err := e.store.Settings.Get(ctx)
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	settings.IsActive = true
	settings.StartedAt = store.NowISO()
	if err := e.store.Settings.Save(ctx, settings); err != nil {
		t.Fatalf("activate contest: %v", err)
	}
}

func TestSaveDraftRejectedWhenInactive(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	ctx := context.Background()

	settings, _ := env.store.Settings.Get(ctx)
	settings.IsActive = false
	if err := env.store.Settings.Save(ctx, settings); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	err := env.service.SaveDraft(ctx, DraftInput{TeamID: "TEAM-TEST0001", QuestionID: "q1", SelectedOption: "b"})
	if appErr.GetCode(err) != appErr.ContestNotActive {
		t.Fatalf("expected ContestNotActive, got %v", err)
	}
}

func TestSaveDraftUnknownQuestion(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	err := env.service.SaveDraft(context.Background(), DraftInput{TeamID: "TEAM-TEST0001", QuestionID: "nope"})
	if appErr.GetCode(err) != appErr.QuestionNotFound {
		t.Fatalf("expected QuestionNotFound, got %v", err)
	}
}

func TestDraftRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	ctx := context.Background()

	if err := env.service.SaveDraft(ctx, DraftInput{
		TeamID: "TEAM-TEST0001", QuestionID: "q2", Code: "int main(){}",
	}); err != nil {
		t.Fatalf("save draft: %v", err)
	}
	if err := env.service.SaveDraft(ctx, DraftInput{
		TeamID: "TEAM-TEST0001", QuestionID: "q1", SelectedOption: "b",
	}); err != nil {
		t.Fatalf("save draft: %v", err)
	}

	drafts, err := env.service.Drafts(ctx, "TEAM-TEST0001")
	if err != nil {
		t.Fatalf("drafts: %v", err)
	}
	if drafts["q2"].Code != "int main(){}" || drafts["q1"].SelectedOption != "b" {
		t.Fatalf("round trip mismatch: %+v", drafts)
	}
}

func TestFinalizeGradesAndFreezes(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	ctx := context.Background()

	if err := env.service.SaveDraft(ctx, DraftInput{TeamID: "TEAM-TEST0001", QuestionID: "q1", SelectedOption: "b"}); err != nil {
		t.Fatalf("draft q1: %v", err)
	}
	if err := env.service.SaveDraft(ctx, DraftInput{TeamID: "TEAM-TEST0001", QuestionID: "q2", Code: "echo"}); err != nil {
		t.Fatalf("draft q2: %v", err)
	}

	result, err := env.service.Finalize(ctx, "TEAM-TEST0001")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if result.AlreadySubmitted {
		t.Fatal("first finalize flagged as repeat")
	}
	// q1 choice correct (5) + q2 both echo tests pass (10).
	if result.Score != 15 {
		t.Fatalf("expected 15, got %d", result.Score)
	}

	team, err := env.store.Teams.GetByID(ctx, "TEAM-TEST0001")
	if err != nil {
		t.Fatalf("get team: %v", err)
	}
	if !team.Submitted || team.Score != 15 || team.EndTime == "" {
		t.Fatalf("team not frozen: %+v", team)
	}

	sub, err := env.store.Submissions.Get(ctx, "TEAM-TEST0001", "q2")
	if err != nil {
		t.Fatalf("get submission: %v", err)
	}
	if !sub.Evaluated || sub.Marks != 10 || len(sub.TestResults) != 2 {
		t.Fatalf("graded row mismatch: %+v", sub)
	}

	if events := env.hub.named("score_update"); len(events) != 1 {
		t.Fatalf("expected one score_update, got %d", len(events))
	}
	if env.board.scores["TEAM-TEST0001"] != 15 {
		t.Fatalf("leaderboard not updated: %+v", env.board.scores)
	}
}

func TestFinalizeIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	ctx := context.Background()

	if err := env.service.SaveDraft(ctx, DraftInput{TeamID: "TEAM-TEST0001", QuestionID: "q1", SelectedOption: "b"}); err != nil {
		t.Fatalf("draft: %v", err)
	}

	first, err := env.service.Finalize(ctx, "TEAM-TEST0001")
	if err != nil {
		t.Fatalf("first finalize: %v", err)
	}
	second, err := env.service.Finalize(ctx, "TEAM-TEST0001")
	if err != nil {
		t.Fatalf("second finalize: %v", err)
	}
	if !second.AlreadySubmitted {
		t.Fatal("second finalize not flagged as repeat")
	}
	if second.Score != first.Score {
		t.Fatalf("frozen score changed: %d vs %d", first.Score, second.Score)
	}
	if events := env.hub.named("score_update"); len(events) != 1 {
		t.Fatalf("regrade broadcast leaked: %d events", len(events))
	}
}

func TestFinalizeConcurrentCallsGradeOnce(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	ctx := context.Background()

	if err := env.service.SaveDraft(ctx, DraftInput{TeamID: "TEAM-TEST0001", QuestionID: "q2", Code: "echo"}); err != nil {
		t.Fatalf("draft: %v", err)
	}

	var wg sync.WaitGroup
	scores := make([]int, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := env.service.Finalize(ctx, "TEAM-TEST0001")
			if err != nil {
				t.Errorf("finalize %d: %v", i, err)
				return
			}
			scores[i] = result.Score
		}(i)
	}
	wg.Wait()

	for i, score := range scores {
		if score != 10 {
			t.Fatalf("call %d saw score %d", i, score)
		}
	}
	if events := env.hub.named("score_update"); len(events) != 1 {
		t.Fatalf("expected exactly one score_update, got %d", len(events))
	}
}

func TestFinalizeIsolatesFailedQuestion(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	ctx := context.Background()

	// q2's grading runner fails outright; q1 must still score.
	if err := env.service.SaveDraft(ctx, DraftInput{TeamID: "TEAM-TEST0001", QuestionID: "q1", SelectedOption: "b"}); err != nil {
		t.Fatalf("draft q1: %v", err)
	}
	if err := env.service.SaveDraft(ctx, DraftInput{TeamID: "TEAM-TEST0001", QuestionID: "q2", Code: "FAIL"}); err != nil {
		t.Fatalf("draft q2: %v", err)
	}

	result, err := env.service.Finalize(ctx, "TEAM-TEST0001")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if result.Score != 5 {
		t.Fatalf("expected 5 (q1 only), got %d", result.Score)
	}

	sub, err := env.store.Submissions.Get(ctx, "TEAM-TEST0001", "q2")
	if err != nil {
		t.Fatalf("get q2: %v", err)
	}
	if sub.Marks != 0 || !sub.Evaluated {
		t.Fatalf("failed question not zeroed: %+v", sub)
	}
}

func TestFinalizeScoresWrongChoiceZero(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	ctx := context.Background()

	if err := env.service.SaveDraft(ctx, DraftInput{TeamID: "TEAM-TEST0001", QuestionID: "q1", SelectedOption: "a"}); err != nil {
		t.Fatalf("draft: %v", err)
	}
	result, err := env.service.Finalize(ctx, "TEAM-TEST0001")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if result.Score != 0 {
		t.Fatalf("wrong option scored: %d", result.Score)
	}
}

func TestDraftAfterFinalizeRejected(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	ctx := context.Background()

	if _, err := env.service.Finalize(ctx, "TEAM-TEST0001"); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	err := env.service.SaveDraft(ctx, DraftInput{TeamID: "TEAM-TEST0001", QuestionID: "q1", SelectedOption: "b"})
	if appErr.GetCode(err) != appErr.TeamSubmitted {
		t.Fatalf("expected TeamSubmitted, got %v", err)
	}
}

func TestRunExecutesCodeAgainstCustomInput(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	ctx := context.Background()

	res, err := env.service.Run(ctx, RunInput{TeamID: "TEAM-TEST0001", Code: "echo", Stdin: "42"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Status != sandbox.StatusOK || res.Stdout != "42" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestRunInputValidation(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	ctx := context.Background()

	if _, err := env.service.Run(ctx, RunInput{TeamID: "TEAM-TEST0001", Code: "   "}); appErr.GetCode(err) != appErr.InvalidParams {
		t.Fatalf("blank code accepted: %v", err)
	}

	huge := strings.Repeat("x", maxRunSourceBytes+1)
	if _, err := env.service.Run(ctx, RunInput{TeamID: "TEAM-TEST0001", Code: huge}); appErr.GetCode(err) != appErr.CodeTooLarge {
		t.Fatalf("oversized code accepted: %v", err)
	}
}

func TestRunGatedByContestAndTeamState(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	ctx := context.Background()

	settings, _ := env.store.Settings.Get(ctx)
	settings.IsActive = false
	if err := env.store.Settings.Save(ctx, settings); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := env.service.Run(ctx, RunInput{TeamID: "TEAM-TEST0001", Code: "echo"}); appErr.GetCode(err) != appErr.ContestNotActive {
		t.Fatalf("expected ContestNotActive, got %v", err)
	}

	settings.IsActive = true
	if err := env.store.Settings.Save(ctx, settings); err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	if _, err := env.service.Finalize(ctx, "TEAM-TEST0001"); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if _, err := env.service.Run(ctx, RunInput{TeamID: "TEAM-TEST0001", Code: "echo"}); appErr.GetCode(err) != appErr.TeamSubmitted {
		t.Fatalf("expected TeamSubmitted, got %v", err)
	}
}

func TestDraftsCarryGradedResultsAfterFinalize(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	ctx := context.Background()

	if err := env.service.SaveDraft(ctx, DraftInput{TeamID: "TEAM-TEST0001", QuestionID: "q1", SelectedOption: "b"}); err != nil {
		t.Fatalf("draft: %v", err)
	}

	drafts, err := env.service.Drafts(ctx, "TEAM-TEST0001")
	if err != nil {
		t.Fatalf("drafts before finalize: %v", err)
	}
	if drafts["q1"].Evaluated || drafts["q1"].Marks != 0 {
		t.Fatalf("draft graded early: %+v", drafts["q1"])
	}

	if _, err := env.service.Finalize(ctx, "TEAM-TEST0001"); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	drafts, err = env.service.Drafts(ctx, "TEAM-TEST0001")
	if err != nil {
		t.Fatalf("drafts after finalize: %v", err)
	}
	view := drafts["q1"]
	if !view.Evaluated || view.Marks != 5 || view.SelectedOption != "b" {
		t.Fatalf("graded view mismatch: %+v", view)
	}
}
