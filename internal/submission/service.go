// Package submission implements the draft and finalize flow. Drafts are
// cheap upserts; finalize grades every answer exactly once and freezes the
// team's score.
package submission

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"codearena/internal/grading"
	"codearena/internal/sandbox"
	"codearena/internal/store"
	"codearena/internal/store/db"
	appErr "codearena/pkg/errors"
	"codearena/pkg/logger"
)

// Broadcaster pushes contest events to connected clients. Best effort; a
// failed emit never fails the operation that triggered it.
type Broadcaster interface {
	EmitAll(event string, data interface{})
	EmitTo(teamID, event string, data interface{})
}

// ScoreBoard receives final scores for live ranking.
type ScoreBoard interface {
	Update(ctx context.Context, teamID string, score int) error
}

// Service owns the submission state machine.
type Service struct {
	store  *store.Store
	grader *grading.Grader
	locks  *TeamLocker
	hub    Broadcaster
	board  ScoreBoard
}

// NewService wires the submission service. hub and board may be nil in tests.
func NewService(st *store.Store, grader *grading.Grader, locks *TeamLocker, hub Broadcaster, board ScoreBoard) *Service {
	return &Service{store: st, grader: grader, locks: locks, hub: hub, board: board}
}

// DraftInput is one answer save.
type DraftInput struct {
	TeamID         string
	QuestionID     string
	Code           string
	SelectedOption string
}

// SaveDraft stores the team's current answer without grading it.
func (s *Service) SaveDraft(ctx context.Context, in DraftInput) error {
	if in.TeamID == "" || in.QuestionID == "" {
		return appErr.New(appErr.InvalidParams).WithMessage("team id and question id are required")
	}

	settings, err := s.store.Settings.Get(ctx)
	if err != nil {
		return err
	}
	if !settings.IsActive {
		return appErr.New(appErr.ContestNotActive)
	}

	team, err := s.store.Teams.GetByID(ctx, in.TeamID)
	if err != nil {
		return err
	}
	if team.Disqualified {
		return appErr.New(appErr.TeamDisqualified)
	}
	if team.Submitted {
		return appErr.New(appErr.TeamSubmitted)
	}

	question, err := s.store.Questions.Get(ctx, in.QuestionID)
	if err != nil {
		return err
	}

	return s.store.Submissions.UpsertDraft(ctx, &store.Submission{
		TeamID:         in.TeamID,
		QuestionID:     in.QuestionID,
		Kind:           question.Kind,
		Code:           in.Code,
		SelectedOption: in.SelectedOption,
		MaxMarks:       question.Marks,
	})
}

// maxRunSourceBytes caps try-run source size.
const maxRunSourceBytes = 50000

// RunInput is one try-run of a team's draft against custom input.
type RunInput struct {
	TeamID string
	Code   string
	Stdin  string
}

// Run compiles and executes code against custom input without grading or
// persisting anything. Subject to the same contest and team gates as drafts.
func (s *Service) Run(ctx context.Context, in RunInput) (sandbox.ExecResult, error) {
	if strings.TrimSpace(in.Code) == "" {
		return sandbox.ExecResult{}, appErr.New(appErr.InvalidParams).WithMessage("no code provided")
	}
	if len(in.Code) > maxRunSourceBytes {
		return sandbox.ExecResult{}, appErr.New(appErr.CodeTooLarge)
	}

	settings, err := s.store.Settings.Get(ctx)
	if err != nil {
		return sandbox.ExecResult{}, err
	}
	if !settings.IsActive {
		return sandbox.ExecResult{}, appErr.New(appErr.ContestNotActive)
	}

	team, err := s.store.Teams.GetByID(ctx, in.TeamID)
	if err != nil {
		return sandbox.ExecResult{}, err
	}
	if team.Disqualified {
		return sandbox.ExecResult{}, appErr.New(appErr.TeamDisqualified)
	}
	if team.Submitted {
		return sandbox.ExecResult{}, appErr.New(appErr.TeamSubmitted)
	}

	return s.grader.Run(ctx, in.Code, in.Stdin)
}

// DraftView is what a team gets back when reloading its saved answers.
// Output, Marks and Evaluated are zero until finalize grades the answer.
type DraftView struct {
	Code           string `json:"code"`
	SelectedOption string `json:"selectedOption"`
	Output         string `json:"output"`
	Marks          int    `json:"marks"`
	Evaluated      bool   `json:"evaluated"`
}

// Drafts returns the team's saved answers keyed by question id.
func (s *Service) Drafts(ctx context.Context, teamID string) (map[string]DraftView, error) {
	subs, err := s.store.Submissions.ListByTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	drafts := make(map[string]DraftView, len(subs))
	for _, sub := range subs {
		drafts[sub.QuestionID] = DraftView{
			Code:           sub.Code,
			SelectedOption: sub.SelectedOption,
			Output:         sub.Output,
			Marks:          sub.Marks,
			Evaluated:      sub.Evaluated,
		}
	}
	return drafts, nil
}

// FinalizeResult reports the outcome of a finalize call. AlreadySubmitted is
// set when the team had finalized before; Score is then the frozen score.
type FinalizeResult struct {
	TeamID           string `json:"teamID"`
	Score            int    `json:"score"`
	EndTime          string `json:"endTime"`
	AlreadySubmitted bool   `json:"alreadySubmitted"`
}

// Finalize grades every answer, freezes the team's score and marks the team
// submitted. Repeat calls return the frozen score without regrading.
func (s *Service) Finalize(ctx context.Context, teamID string) (*FinalizeResult, error) {
	if teamID == "" {
		return nil, appErr.New(appErr.InvalidParams).WithMessage("team id is required")
	}

	s.locks.Lock(teamID)
	defer s.locks.Unlock(teamID)

	team, err := s.store.Teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team.Submitted {
		return &FinalizeResult{
			TeamID:           teamID,
			Score:            team.Score,
			EndTime:          team.EndTime,
			AlreadySubmitted: true,
		}, nil
	}
	if team.Disqualified {
		return nil, appErr.New(appErr.TeamDisqualified)
	}

	questions, err := s.store.Questions.List(ctx)
	if err != nil {
		return nil, err
	}

	graded, totalScore, err := s.gradeAll(ctx, teamID, questions)
	if err != nil {
		return nil, err
	}

	endTime := store.NowISO()
	err = s.store.WithTx(ctx, func(q db.Querier) error {
		for i := range graded {
			if err := s.store.Submissions.SaveGraded(ctx, q, &graded[i]); err != nil {
				return err
			}
		}
		return s.store.Teams.FinalizeTeam(ctx, q, teamID, totalScore, endTime)
	})
	if err != nil {
		// Lost a rare cross-process race; the stored score wins.
		if appErr.GetCode(err) == appErr.AlreadyFinalized {
			frozen, gerr := s.store.Teams.GetByID(ctx, teamID)
			if gerr != nil {
				return nil, gerr
			}
			return &FinalizeResult{
				TeamID:           teamID,
				Score:            frozen.Score,
				EndTime:          frozen.EndTime,
				AlreadySubmitted: true,
			}, nil
		}
		return nil, err
	}

	logger.Info(ctx, "team finalized",
		zap.String("team_id", teamID),
		zap.Int("score", totalScore),
		zap.Int("graded_answers", len(graded)))

	if s.hub != nil {
		s.hub.EmitAll("score_update", map[string]interface{}{
			"teamID":   teamID,
			"teamName": team.TeamName,
			"score":    totalScore,
		})
	}
	if s.board != nil {
		if err := s.board.Update(ctx, teamID, totalScore); err != nil {
			logger.Warn(ctx, "leaderboard update failed", zap.String("team_id", teamID), zap.Error(err))
		}
	}

	return &FinalizeResult{TeamID: teamID, Score: totalScore, EndTime: endTime}, nil
}

// gradeAll grades the team's drafts question by question. A grading failure
// zeroes that one question and never aborts the finalize; a store failure
// aborts so the team is never frozen with an under-counted score.
func (s *Service) gradeAll(ctx context.Context, teamID string, questions []store.Question) ([]store.Submission, int, error) {
	var graded []store.Submission
	totalScore := 0

	for i := range questions {
		question := &questions[i]
		draft, err := s.store.Submissions.Get(ctx, teamID, question.QuestionID)
		if err != nil {
			if appErr.GetCode(err) == appErr.SubmissionNotFound {
				continue
			}
			return nil, 0, err
		}

		sub := *draft
		sub.Kind = question.Kind
		sub.MaxMarks = question.Marks
		sub.Marks = 0
		sub.Evaluated = true

		switch {
		case question.Kind == store.KindChoice:
			if sub.SelectedOption != "" && sub.SelectedOption == question.CorrectOption {
				sub.Marks = question.Marks
			}
		case question.Kind.IsCode():
			if strings.TrimSpace(sub.Code) == "" || len(question.TestCases) == 0 {
				break
			}
			outcome, err := s.grader.Grade(ctx, sub.Code, question.TestCases, question.Marks)
			if err != nil {
				logger.Warn(ctx, "grading failed, scoring zero",
					zap.String("team_id", teamID),
					zap.String("question_id", question.QuestionID),
					zap.Error(err))
				sub.Output = "grading failed"
				break
			}
			sub.Marks = outcome.MarksEarned
			sub.TestResults = outcome.Results
			if len(outcome.Results) > 0 {
				sub.Output = outcome.Results[0].Actual
			}
		}

		totalScore += sub.Marks
		graded = append(graded, sub)
	}
	return graded, totalScore, nil
}
