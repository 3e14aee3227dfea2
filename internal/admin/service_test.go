package admin

import (
	"context"
	"path/filepath"
	"testing"

	"codearena/internal/leaderboard"
	"codearena/internal/store"
	"codearena/internal/store/db"
)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	cfg := db.DefaultConfig()
	cfg.DSN = filepath.Join(t.TempDir(), "test.db")
	handle, err := db.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = handle.Close() })

	st := store.New(handle, cfg.Driver)
	board := leaderboard.NewWithClient(nil, st.Teams)
	return NewService(st, board), st
}

func seedTeams(t *testing.T, st *store.Store) {
	t.Helper()
	ctx := context.Background()
	teams := []store.Team{
		{TeamID: "TEAM-A", TeamName: "alpha", LeaderName: "a", Email: "a@example.com"},
		{TeamID: "TEAM-B", TeamName: "beta", LeaderName: "b", Email: "b@example.com"},
		{TeamID: "TEAM-C", TeamName: "gamma", LeaderName: "c", Email: "c@example.com"},
	}
	for i := range teams {
		if err := st.Teams.Create(ctx, &teams[i]); err != nil {
			t.Fatalf("seed %s: %v", teams[i].TeamID, err)
		}
	}
	if err := st.Teams.FinalizeTeam(ctx, nil, "TEAM-A", 80, store.NowISO()); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	teamC, err := st.Teams.GetByID(ctx, "TEAM-C")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	teamC.Disqualified = true
	teamC.DisqualifiedReason = "cheating"
	if err := st.Teams.Update(ctx, teamC); err != nil {
		t.Fatalf("disqualify: %v", err)
	}
}

func TestTeamsFilters(t *testing.T) {
	svc, st := newTestService(t)
	seedTeams(t, st)
	ctx := context.Background()

	all, err := svc.Teams(ctx, "", nil)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 teams, got %d", len(all))
	}

	dq := true
	flagged, err := svc.Teams(ctx, "", &dq)
	if err != nil {
		t.Fatalf("list disqualified: %v", err)
	}
	if len(flagged) != 1 || flagged[0].TeamID != "TEAM-C" {
		t.Fatalf("filter wrong: %+v", flagged)
	}

	found, err := svc.Teams(ctx, "beta", nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 1 || found[0].TeamID != "TEAM-B" {
		t.Fatalf("search wrong: %+v", found)
	}
}

func TestStats(t *testing.T) {
	svc, st := newTestService(t)
	seedTeams(t, st)

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalTeams != 3 || stats.Submitted != 1 || stats.Disqualified != 1 {
		t.Fatalf("counts wrong: %+v", stats)
	}
	if stats.InProgress != 2 || stats.ContestLive {
		t.Fatalf("derived fields wrong: %+v", stats)
	}
}

func TestTeamDetail(t *testing.T) {
	svc, st := newTestService(t)
	seedTeams(t, st)
	ctx := context.Background()

	if err := st.Submissions.UpsertDraft(ctx, &store.Submission{
		TeamID: "TEAM-A", QuestionID: "q1", Kind: store.KindCoding, Code: "x", MaxMarks: 10,
	}); err != nil {
		t.Fatalf("seed submission: %v", err)
	}

	detail, err := svc.TeamDetail(ctx, "TEAM-A")
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if detail.Team.TeamID != "TEAM-A" || len(detail.Submissions) != 1 {
		t.Fatalf("detail wrong: %+v", detail)
	}
}

func TestLeaderboardOrdersSubmitted(t *testing.T) {
	svc, st := newTestService(t)
	seedTeams(t, st)
	ctx := context.Background()

	if err := st.Teams.FinalizeTeam(ctx, nil, "TEAM-B", 95, store.NowISO()); err != nil {
		t.Fatalf("finalize B: %v", err)
	}

	entries, err := svc.Leaderboard(ctx, 0)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(entries) != 2 || entries[0].TeamID != "TEAM-B" || entries[1].TeamID != "TEAM-A" {
		t.Fatalf("order wrong: %+v", entries)
	}
}
