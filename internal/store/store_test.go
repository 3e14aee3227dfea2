package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"codearena/internal/store/db"
	appErr "codearena/pkg/errors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := db.DefaultConfig()
	cfg.DSN = filepath.Join(t.TempDir(), "test.db")
	handle, err := db.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = handle.Close() })
	return New(handle, cfg.Driver)
}

func testTeam(id, email string) *Team {
	return &Team{
		TeamID:            id,
		TeamName:          "name-" + id,
		LeaderName:        "leader-" + id,
		Email:             email,
		StartTime:         NowISO(),
		DeviceFingerprint: "fp-" + id,
	}
}

func TestTeamRepoRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	team := testTeam("TEAM-AAAA0001", "alpha@example.com")
	if err := st.Teams.Create(ctx, team); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := st.Teams.GetByID(ctx, team.TeamID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got.Email != team.Email || got.TeamName != team.TeamName {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	got.Violations = 1
	got.Score = 42
	if err := st.Teams.Update(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	again, err := st.Teams.GetByEmail(ctx, team.Email)
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if again.Violations != 1 || again.Score != 42 {
		t.Fatalf("update not persisted: %+v", again)
	}
}

func TestTeamRepoDuplicateEmail(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if err := st.Teams.Create(ctx, testTeam("TEAM-AAAA0001", "dup@example.com")); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := st.Teams.Create(ctx, testTeam("TEAM-AAAA0002", "dup@example.com"))
	if appErr.GetCode(err) != appErr.DuplicateRegistration {
		t.Fatalf("expected DuplicateRegistration, got %v", err)
	}
}

func TestTeamRepoGetMissing(t *testing.T) {
	st := newTestStore(t)
	_, err := st.Teams.GetByID(context.Background(), "TEAM-MISSING1")
	if appErr.GetCode(err) != appErr.TeamNotFound {
		t.Fatalf("expected TeamNotFound, got %v", err)
	}
}

func TestFinalizeTeamIdempotenceGuard(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	team := testTeam("TEAM-AAAA0001", "final@example.com")
	if err := st.Teams.Create(ctx, team); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := st.Teams.FinalizeTeam(ctx, nil, team.TeamID, 80, NowISO()); err != nil {
		t.Fatalf("first finalize: %v", err)
	}
	err := st.Teams.FinalizeTeam(ctx, nil, team.TeamID, 999, NowISO())
	if appErr.GetCode(err) != appErr.AlreadyFinalized {
		t.Fatalf("expected AlreadyFinalized, got %v", err)
	}

	got, err := st.Teams.GetByID(ctx, team.TeamID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Score != 80 || !got.Submitted {
		t.Fatalf("frozen score lost: %+v", got)
	}
}

func TestQuestionRepoReplaceAll(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	first := []Question{
		{QuestionID: "q2", Kind: KindCoding, Section: 2, Position: 1, Prompt: "p2", Marks: 10,
			TestCases: []TestCase{{Input: "1 2", Expected: "3"}}},
		{QuestionID: "q1", Kind: KindChoice, Section: 1, Position: 1, Prompt: "p1", Marks: 5,
			Options: []string{"a", "b"}, CorrectOption: "b"},
	}
	if err := st.Questions.ReplaceAll(ctx, first); err != nil {
		t.Fatalf("replace: %v", err)
	}

	list, err := st.Questions.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].QuestionID != "q1" || list[1].QuestionID != "q2" {
		t.Fatalf("wrong order or count: %+v", list)
	}
	if list[1].TestCases[0].Expected != "3" {
		t.Fatalf("test cases lost: %+v", list[1])
	}

	if err := st.Questions.ReplaceAll(ctx, first[:1]); err != nil {
		t.Fatalf("replace again: %v", err)
	}
	list, err = st.Questions.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("old set not replaced: %+v", list)
	}
}

func TestSubmissionUpsertKeepsSingleRow(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	draft := &Submission{TeamID: "TEAM-AAAA0001", QuestionID: "q1", Kind: KindCoding, Code: "v1", MaxMarks: 10}
	if err := st.Submissions.UpsertDraft(ctx, draft); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	draft.Code = "v2"
	if err := st.Submissions.UpsertDraft(ctx, draft); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	subs, err := st.Submissions.ListByTeam(ctx, draft.TeamID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 1 || subs[0].Code != "v2" {
		t.Fatalf("expected one updated row, got %+v", subs)
	}
}

func TestSubmissionConcurrentUpserts(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = st.Submissions.UpsertDraft(ctx, &Submission{
				TeamID: "TEAM-AAAA0001", QuestionID: "q1", Kind: KindCoding, Code: "x", MaxMarks: 10,
			})
		}()
	}
	wg.Wait()

	subs, err := st.Submissions.ListByTeam(ctx, "TEAM-AAAA0001")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("unique pair violated: %d rows", len(subs))
	}
}

func TestSaveGradedAndSumMarks(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	graded := &Submission{
		TeamID: "TEAM-AAAA0001", QuestionID: "q1", Kind: KindCoding,
		Code: "src", Marks: 7, MaxMarks: 10, Evaluated: true,
		TestResults: []TestCaseResult{{Passed: true, Expected: "3", Actual: "3", Status: "ok"}},
	}
	if err := st.Submissions.SaveGraded(ctx, nil, graded); err != nil {
		t.Fatalf("save graded: %v", err)
	}
	if err := st.Submissions.SaveGraded(ctx, nil, &Submission{
		TeamID: "TEAM-AAAA0001", QuestionID: "q2", Kind: KindChoice, Marks: 5, MaxMarks: 5, Evaluated: true,
	}); err != nil {
		t.Fatalf("save graded 2: %v", err)
	}

	got, err := st.Submissions.Get(ctx, "TEAM-AAAA0001", "q1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Evaluated || got.Marks != 7 || len(got.TestResults) != 1 || !got.TestResults[0].Passed {
		t.Fatalf("graded row mismatch: %+v", got)
	}

	total, err := st.Submissions.SumMarks(ctx, "TEAM-AAAA0001")
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if total != 12 {
		t.Fatalf("expected 12, got %d", total)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	settings, err := st.Settings.Get(ctx)
	if err != nil {
		t.Fatalf("get seeded settings: %v", err)
	}
	if settings.IsActive {
		t.Fatal("fresh settings should be inactive")
	}

	settings.IsActive = true
	settings.DurationMinutes = 90
	settings.StartedAt = NowISO()
	settings.Announcements = []Announcement{{Message: "hello", CreatedAt: NowISO()}}
	if err := st.Settings.Save(ctx, settings); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := st.Settings.Get(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.IsActive || got.DurationMinutes != 90 || len(got.Announcements) != 1 {
		t.Fatalf("settings round trip mismatch: %+v", got)
	}
	if got.Announcements[0].Message != "hello" {
		t.Fatalf("announcement lost: %+v", got.Announcements)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	team := testTeam("TEAM-AAAA0001", "tx@example.com")
	if err := st.Teams.Create(ctx, team); err != nil {
		t.Fatalf("create: %v", err)
	}

	wantErr := appErr.New(appErr.InternalServerError)
	err := st.WithTx(ctx, func(q db.Querier) error {
		if err := st.Teams.FinalizeTeam(ctx, q, team.TeamID, 50, NowISO()); err != nil {
			return err
		}
		return wantErr
	})
	if appErr.GetCode(err) != appErr.InternalServerError {
		t.Fatalf("expected wrapped error back, got %v", err)
	}

	got, gerr := st.Teams.GetByID(ctx, team.TeamID)
	if gerr != nil {
		t.Fatalf("get: %v", gerr)
	}
	if got.Submitted || got.Score != 0 {
		t.Fatalf("transaction not rolled back: %+v", got)
	}
}
