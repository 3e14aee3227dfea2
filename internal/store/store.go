package store

import (
	"context"
	"database/sql"

	"codearena/internal/store/db"
	appErr "codearena/pkg/errors"
)

// TeamRepository defines team persistence operations.
type TeamRepository interface {
	Create(ctx context.Context, team *Team) error
	GetByID(ctx context.Context, teamID string) (*Team, error)
	GetByEmail(ctx context.Context, email string) (*Team, error)
	Update(ctx context.Context, team *Team) error
	UpdateSession(ctx context.Context, email, fingerprint, token string) error
	FinalizeTeam(ctx context.Context, q db.Querier, teamID string, score int, endTime string) error
	List(ctx context.Context, filter TeamFilter) ([]Team, error)
	ListSubmitted(ctx context.Context) ([]Team, error)
	Counts(ctx context.Context) (total, submitted, disqualified int, err error)
}

// QuestionRepository defines question persistence operations.
type QuestionRepository interface {
	ReplaceAll(ctx context.Context, questions []Question) error
	List(ctx context.Context) ([]Question, error)
	Get(ctx context.Context, questionID string) (*Question, error)
}

// SubmissionRepository defines submission persistence operations.
type SubmissionRepository interface {
	UpsertDraft(ctx context.Context, sub *Submission) error
	Get(ctx context.Context, teamID, questionID string) (*Submission, error)
	ListByTeam(ctx context.Context, teamID string) ([]Submission, error)
	SaveGraded(ctx context.Context, q db.Querier, sub *Submission) error
	SumMarks(ctx context.Context, teamID string) (int, error)
}

// SettingsRepository defines contest settings persistence operations.
type SettingsRepository interface {
	Get(ctx context.Context) (*Settings, error)
	Save(ctx context.Context, settings *Settings) error
}

// TxRunner executes a function inside a single store transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(q db.Querier) error) error
}

// TeamFilter narrows team listings for the admin surface.
type TeamFilter struct {
	Search       string
	Disqualified *bool
}

// Store bundles the SQL repositories over one shared handle.
type Store struct {
	Teams       TeamRepository
	Questions   QuestionRepository
	Submissions SubmissionRepository
	Settings    SettingsRepository

	handle *sql.DB
}

// New creates a Store over an opened database handle. The driver picks the
// upsert dialect for submission rows.
func New(handle *sql.DB, driver string) *Store {
	return &Store{
		Teams:       &sqlTeamRepo{db: handle},
		Questions:   &sqlQuestionRepo{db: handle},
		Submissions: &sqlSubmissionRepo{db: handle, driver: driver},
		Settings:    &sqlSettingsRepo{db: handle},
		handle:      handle,
	}
}

// WithTx runs fn inside one transaction; rollback on error, commit otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(q db.Querier) error) error {
	tx, err := s.handle.BeginTx(ctx, nil)
	if err != nil {
		return appErr.Wrapf(err, appErr.TransactionFailed, "begin transaction failed")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return appErr.Wrapf(err, appErr.TransactionFailed, "commit failed")
	}
	return nil
}

func querier(handle *sql.DB, q db.Querier) db.Querier {
	if q != nil {
		return q
	}
	return handle
}

func storeErr(err error, op string) error {
	return appErr.Wrapf(err, appErr.StoreUnavailable, "%s failed", op)
}
