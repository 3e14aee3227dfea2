package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"codearena/internal/store/db"
	appErr "codearena/pkg/errors"
)

type sqlSubmissionRepo struct {
	db     *sql.DB
	driver string
}

const submissionColumns = `team_id, question_id, kind,
	COALESCE(code, ''), COALESCE(selected_option, ''), COALESCE(output, ''),
	marks, max_marks, COALESCE(test_results, '[]'), evaluated`

// UpsertDraft creates or refreshes the single (team, question) row without
// touching grading fields. The unique constraint makes concurrent saves for
// the same pair collapse into one row.
func (r *sqlSubmissionRepo) UpsertDraft(ctx context.Context, sub *Submission) error {
	if sub == nil || sub.TeamID == "" || sub.QuestionID == "" {
		return appErr.New(appErr.InvalidParams).WithMessage("team id and question id are required")
	}
	query := `
		INSERT INTO submissions (team_id, question_id, kind, code, selected_option, max_marks, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(team_id, question_id) DO UPDATE SET
			code=excluded.code, selected_option=excluded.selected_option, updated_at=excluded.updated_at`
	if r.driver == db.DriverMySQL {
		query = `
		INSERT INTO submissions (team_id, question_id, kind, code, selected_option, max_marks, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			code=VALUES(code), selected_option=VALUES(selected_option), updated_at=VALUES(updated_at)`
	}
	_, err := r.db.ExecContext(ctx, query,
		sub.TeamID, sub.QuestionID, string(sub.Kind), sub.Code, sub.SelectedOption,
		sub.MaxMarks, NowISO(),
	)
	if err != nil {
		return storeErr(err, "save draft")
	}
	return nil
}

func (r *sqlSubmissionRepo) Get(ctx context.Context, teamID, questionID string) (*Submission, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+submissionColumns+" FROM submissions WHERE team_id = ? AND question_id = ?",
		teamID, questionID)
	sub, err := scanSubmission(row)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, appErr.New(appErr.SubmissionNotFound)
		}
		return nil, err
	}
	return sub, nil
}

func (r *sqlSubmissionRepo) ListByTeam(ctx context.Context, teamID string) ([]Submission, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+submissionColumns+" FROM submissions WHERE team_id = ? ORDER BY question_id ASC",
		teamID)
	if err != nil {
		return nil, storeErr(err, "list submissions")
	}
	defer rows.Close()

	var subs []Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err, "iterate submissions")
	}
	return subs, nil
}

// SaveGraded writes the grading outcome and locks the row. Runs inside the
// finalize transaction when q is a *sql.Tx.
func (r *sqlSubmissionRepo) SaveGraded(ctx context.Context, q db.Querier, sub *Submission) error {
	if sub == nil || sub.TeamID == "" || sub.QuestionID == "" {
		return appErr.New(appErr.InvalidParams).WithMessage("team id and question id are required")
	}
	testResults, err := json.Marshal(sub.TestResults)
	if err != nil {
		return appErr.Wrapf(err, appErr.StoreUnavailable, "encode test results")
	}
	query := `
		INSERT INTO submissions (team_id, question_id, kind, code, selected_option, output, marks, max_marks, test_results, evaluated, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?)
		ON CONFLICT(team_id, question_id) DO UPDATE SET
			output=excluded.output, marks=excluded.marks, max_marks=excluded.max_marks,
			test_results=excluded.test_results, evaluated=1, updated_at=excluded.updated_at`
	if r.driver == db.DriverMySQL {
		query = `
		INSERT INTO submissions (team_id, question_id, kind, code, selected_option, output, marks, max_marks, test_results, evaluated, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?)
		ON DUPLICATE KEY UPDATE
			output=VALUES(output), marks=VALUES(marks), max_marks=VALUES(max_marks),
			test_results=VALUES(test_results), evaluated=1, updated_at=VALUES(updated_at)`
	}
	_, err = querier(r.db, q).ExecContext(ctx, query,
		sub.TeamID, sub.QuestionID, string(sub.Kind), sub.Code, sub.SelectedOption,
		sub.Output, sub.Marks, sub.MaxMarks, string(testResults), NowISO(),
	)
	if err != nil {
		return storeErr(err, "save graded submission")
	}
	return nil
}

func (r *sqlSubmissionRepo) SumMarks(ctx context.Context, teamID string) (int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(marks), 0) FROM submissions WHERE team_id = ?", teamID,
	).Scan(&total)
	if err != nil {
		return 0, storeErr(err, "sum marks")
	}
	return total, nil
}

func scanSubmission(row interface{ Scan(...interface{}) error }) (*Submission, error) {
	var sub Submission
	var kind, testResults string
	var evaluated int
	err := row.Scan(
		&sub.TeamID, &sub.QuestionID, &kind, &sub.Code, &sub.SelectedOption,
		&sub.Output, &sub.Marks, &sub.MaxMarks, &testResults, &evaluated,
	)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, err
		}
		return nil, storeErr(err, "scan submission")
	}
	sub.Kind = QuestionKind(kind)
	sub.Evaluated = evaluated != 0
	if testResults == "" {
		testResults = "[]"
	}
	if err := json.Unmarshal([]byte(testResults), &sub.TestResults); err != nil {
		return nil, appErr.Wrapf(err, appErr.StoreUnavailable, "decode test results")
	}
	return &sub, nil
}
