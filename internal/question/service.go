// Package question serves the question set to teams and lets admins replace
// it during contest setup. Answer keys and grading data never leave the
// admin surface.
package question

import (
	"context"

	"go.uber.org/zap"

	"codearena/internal/store"
	appErr "codearena/pkg/errors"
	"codearena/pkg/logger"
)

// Service reads and replaces the question set.
type Service struct {
	store *store.Store
}

func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

// TeamView is a question as teams see it. Correct options and test cases
// stay server-side.
type TeamView struct {
	QuestionID  string             `json:"questionID"`
	Kind        store.QuestionKind `json:"kind"`
	Section     int                `json:"section"`
	Position    int                `json:"position"`
	Prompt      string             `json:"prompt"`
	Options     []string           `json:"options,omitempty"`
	StarterCode string             `json:"starterCode,omitempty"`
	Marks       int                `json:"marks"`
	Hint        string             `json:"hint,omitempty"`
	// TestCaseCount lets the client render progress without the cases.
	TestCaseCount int `json:"testCasesCount"`
}

// ListForTeam returns the question set in contest order with grading data
// stripped. Refused before the contest starts so prompts never leak early.
func (s *Service) ListForTeam(ctx context.Context) ([]TeamView, error) {
	settings, err := s.store.Settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !settings.IsActive {
		return nil, appErr.New(appErr.ContestNotActive).WithMessage("contest has not started yet")
	}

	questions, err := s.store.Questions.List(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]TeamView, 0, len(questions))
	for _, q := range questions {
		views = append(views, TeamView{
			QuestionID:    q.QuestionID,
			Kind:          q.Kind,
			Section:       q.Section,
			Position:      q.Position,
			Prompt:        q.Prompt,
			Options:       q.Options,
			StarterCode:   q.StarterCode,
			Marks:         q.Marks,
			Hint:          q.Hint,
			TestCaseCount: len(q.TestCases),
		})
	}
	return views, nil
}

// ListFull returns questions including grading data for the admin surface.
func (s *Service) ListFull(ctx context.Context) ([]store.Question, error) {
	return s.store.Questions.List(ctx)
}

// Import atomically replaces the whole question set. Refused while the
// contest is active so a running contest never changes under the teams.
func (s *Service) Import(ctx context.Context, questions []store.Question) error {
	if len(questions) == 0 {
		return appErr.New(appErr.InvalidParams).WithMessage("question set is empty")
	}

	settings, err := s.store.Settings.Get(ctx)
	if err != nil {
		return err
	}
	if settings.IsActive {
		return appErr.New(appErr.ContestActive).WithMessage("cannot replace questions while the contest is active")
	}

	if err := s.store.Questions.ReplaceAll(ctx, questions); err != nil {
		return err
	}
	logger.Info(ctx, "question set replaced", zap.Int("count", len(questions)))
	return nil
}
