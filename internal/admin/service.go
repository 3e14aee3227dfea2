// Package admin serves the contest operator dashboard: team listings, per
// team drill-down, aggregate stats and the live leaderboard.
package admin

import (
	"context"

	"codearena/internal/leaderboard"
	"codearena/internal/store"
	appErr "codearena/pkg/errors"
)

// Service aggregates store data for the admin dashboard.
type Service struct {
	store *store.Store
	board *leaderboard.Board
}

func NewService(st *store.Store, board *leaderboard.Board) *Service {
	return &Service{store: st, board: board}
}

// Teams lists teams with optional search and disqualification filters.
func (s *Service) Teams(ctx context.Context, search string, disqualified *bool) ([]store.Team, error) {
	return s.store.Teams.List(ctx, store.TeamFilter{
		Search:       search,
		Disqualified: disqualified,
	})
}

// TeamDetail is one team with its answers and the questions they belong to.
type TeamDetail struct {
	Team        *store.Team        `json:"team"`
	Submissions []store.Submission `json:"submissions"`
	Questions   []store.Question   `json:"questions"`
}

// TeamDetail returns everything the operator sees when inspecting one team.
func (s *Service) TeamDetail(ctx context.Context, teamID string) (*TeamDetail, error) {
	if teamID == "" {
		return nil, appErr.New(appErr.InvalidParams).WithMessage("team id is required")
	}
	team, err := s.store.Teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	subs, err := s.store.Submissions.ListByTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	questions, err := s.store.Questions.List(ctx)
	if err != nil {
		return nil, err
	}
	return &TeamDetail{Team: team, Submissions: subs, Questions: questions}, nil
}

// Stats is the dashboard headline numbers.
type Stats struct {
	TotalTeams   int  `json:"totalTeams"`
	Submitted    int  `json:"submitted"`
	Disqualified int  `json:"disqualified"`
	InProgress   int  `json:"inProgress"`
	ContestLive  bool `json:"contestLive"`
}

// Stats aggregates team counts and contest state.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	total, submitted, disqualified, err := s.store.Teams.Counts(ctx)
	if err != nil {
		return nil, err
	}
	settings, err := s.store.Settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	inProgress := total - submitted
	if inProgress < 0 {
		inProgress = 0
	}
	return &Stats{
		TotalTeams:   total,
		Submitted:    submitted,
		Disqualified: disqualified,
		InProgress:   inProgress,
		ContestLive:  settings.IsActive,
	}, nil
}

// Leaderboard returns the ranked submitted teams.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]leaderboard.Entry, error) {
	return s.board.Top(ctx, limit)
}
