package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"codearena/internal/store/db"
	appErr "codearena/pkg/errors"
)

type sqlQuestionRepo struct {
	db *sql.DB
}

// ReplaceAll swaps the full question set in one transaction; used only
// during contest setup.
func (r *sqlQuestionRepo) ReplaceAll(ctx context.Context, questions []Question) error {
	for _, q := range questions {
		if q.QuestionID == "" || !q.Kind.Valid() || q.Marks <= 0 {
			return appErr.Newf(appErr.QuestionImportFailed,
				"question %q is invalid", q.QuestionID)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr(err, "begin question import")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM questions"); err != nil {
		return storeErr(err, "clear questions")
	}
	for _, q := range questions {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return appErr.Wrapf(err, appErr.QuestionImportFailed, "encode options")
		}
		testCases, err := json.Marshal(q.TestCases)
		if err != nil {
			return appErr.Wrapf(err, appErr.QuestionImportFailed, "encode test cases")
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO questions (question_id, kind, section, position, prompt, options, correct_option, starter_code, test_cases, marks, hint)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			q.QuestionID, string(q.Kind), q.Section, q.Position, q.Prompt,
			string(options), q.CorrectOption, q.StarterCode, string(testCases), q.Marks, q.Hint,
		)
		if err != nil {
			return storeErr(err, "insert question")
		}
	}
	if err := tx.Commit(); err != nil {
		return storeErr(err, "commit question import")
	}
	return nil
}

func (r *sqlQuestionRepo) List(ctx context.Context) ([]Question, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+questionColumns+" FROM questions ORDER BY section ASC, position ASC")
	if err != nil {
		return nil, storeErr(err, "list questions")
	}
	defer rows.Close()

	var questions []Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err, "iterate questions")
	}
	return questions, nil
}

func (r *sqlQuestionRepo) Get(ctx context.Context, questionID string) (*Question, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+questionColumns+" FROM questions WHERE question_id = ?", questionID)
	return scanQuestion(row)
}

const questionColumns = `question_id, kind, section, position, prompt,
	COALESCE(options, '[]'), correct_option, COALESCE(starter_code, ''),
	COALESCE(test_cases, '[]'), marks, COALESCE(hint, '')`

func scanQuestion(row interface{ Scan(...interface{}) error }) (*Question, error) {
	var q Question
	var kind, options, testCases string
	err := row.Scan(
		&q.QuestionID, &kind, &q.Section, &q.Position, &q.Prompt,
		&options, &q.CorrectOption, &q.StarterCode, &testCases, &q.Marks, &q.Hint,
	)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, appErr.New(appErr.QuestionNotFound)
		}
		return nil, storeErr(err, "scan question")
	}
	q.Kind = QuestionKind(kind)
	if options == "" {
		options = "[]"
	}
	if testCases == "" {
		testCases = "[]"
	}
	if err := json.Unmarshal([]byte(options), &q.Options); err != nil {
		return nil, appErr.Wrapf(err, appErr.StoreUnavailable, "decode options")
	}
	if err := json.Unmarshal([]byte(testCases), &q.TestCases); err != nil {
		return nil, appErr.Wrapf(err, appErr.StoreUnavailable, "decode test cases")
	}
	return &q, nil
}
