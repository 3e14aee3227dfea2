package store

import (
	"context"
	"database/sql"
	"strings"

	"codearena/internal/store/db"
	appErr "codearena/pkg/errors"
)

type sqlTeamRepo struct {
	db *sql.DB
}

const teamColumns = `team_id, team_name, leader_name, email, score, disqualified,
	COALESCE(disqualified_reason, ''), violations, start_time, end_time, submitted,
	device_fingerprint, COALESCE(session_token, '')`

func scanTeam(row interface{ Scan(...interface{}) error }) (*Team, error) {
	var t Team
	var disqualified, submitted int
	err := row.Scan(
		&t.TeamID, &t.TeamName, &t.LeaderName, &t.Email, &t.Score, &disqualified,
		&t.DisqualifiedReason, &t.Violations, &t.StartTime, &t.EndTime, &submitted,
		&t.DeviceFingerprint, &t.SessionToken,
	)
	if err != nil {
		return nil, err
	}
	t.Disqualified = disqualified != 0
	t.Submitted = submitted != 0
	return &t, nil
}

func (r *sqlTeamRepo) Create(ctx context.Context, team *Team) error {
	if team == nil || team.TeamID == "" || team.Email == "" {
		return appErr.New(appErr.InvalidParams).WithMessage("team id and email are required")
	}
	now := NowISO()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO teams (team_id, team_name, leader_name, email, device_fingerprint, session_token, start_time, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		team.TeamID, team.TeamName, team.LeaderName, team.Email,
		team.DeviceFingerprint, team.SessionToken, team.StartTime, now, now,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return appErr.New(appErr.DuplicateRegistration)
		}
		return storeErr(err, "create team")
	}
	return nil
}

func (r *sqlTeamRepo) GetByID(ctx context.Context, teamID string) (*Team, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+teamColumns+" FROM teams WHERE team_id = ?", teamID)
	team, err := scanTeam(row)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, appErr.New(appErr.TeamNotFound)
		}
		return nil, storeErr(err, "get team")
	}
	return team, nil
}

func (r *sqlTeamRepo) GetByEmail(ctx context.Context, email string) (*Team, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+teamColumns+" FROM teams WHERE email = ?", email)
	team, err := scanTeam(row)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, appErr.New(appErr.TeamNotFound)
		}
		return nil, storeErr(err, "get team by email")
	}
	return team, nil
}

func (r *sqlTeamRepo) Update(ctx context.Context, team *Team) error {
	if team == nil || team.TeamID == "" {
		return appErr.New(appErr.InvalidParams).WithMessage("team id is required")
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE teams SET team_name=?, leader_name=?, score=?, disqualified=?,
			disqualified_reason=?, violations=?, start_time=?, end_time=?,
			submitted=?, device_fingerprint=?, session_token=?, updated_at=?
		WHERE team_id=?`,
		team.TeamName, team.LeaderName, team.Score, boolInt(team.Disqualified),
		team.DisqualifiedReason, team.Violations, team.StartTime, team.EndTime,
		boolInt(team.Submitted), team.DeviceFingerprint, team.SessionToken, NowISO(),
		team.TeamID,
	)
	if err != nil {
		return storeErr(err, "update team")
	}
	return nil
}

func (r *sqlTeamRepo) UpdateSession(ctx context.Context, email, fingerprint, token string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE teams SET device_fingerprint=?, session_token=?, updated_at=? WHERE email=?",
		fingerprint, token, NowISO(), email,
	)
	if err != nil {
		return storeErr(err, "update session")
	}
	return nil
}

// FinalizeTeam is the commit point of a team's terminal transition: score,
// submitted flag and end timestamp land together.
func (r *sqlTeamRepo) FinalizeTeam(ctx context.Context, q db.Querier, teamID string, score int, endTime string) error {
	res, err := querier(r.db, q).ExecContext(ctx,
		"UPDATE teams SET score=?, submitted=1, end_time=?, updated_at=? WHERE team_id=? AND submitted=0",
		score, endTime, NowISO(), teamID,
	)
	if err != nil {
		return storeErr(err, "finalize team")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return appErr.New(appErr.AlreadyFinalized)
	}
	return nil
}

func (r *sqlTeamRepo) List(ctx context.Context, filter TeamFilter) ([]Team, error) {
	query := "SELECT " + teamColumns + " FROM teams WHERE 1=1"
	var args []interface{}
	if s := strings.TrimSpace(filter.Search); s != "" {
		query += " AND (team_name LIKE ? OR email LIKE ? OR leader_name LIKE ?)"
		like := "%" + s + "%"
		args = append(args, like, like, like)
	}
	if filter.Disqualified != nil {
		query += " AND disqualified = ?"
		args = append(args, boolInt(*filter.Disqualified))
	}
	query += " ORDER BY score DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr(err, "list teams")
	}
	defer rows.Close()
	return collectTeams(rows)
}

func (r *sqlTeamRepo) ListSubmitted(ctx context.Context) ([]Team, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+teamColumns+" FROM teams WHERE submitted=1 ORDER BY score DESC, end_time ASC")
	if err != nil {
		return nil, storeErr(err, "list submitted teams")
	}
	defer rows.Close()
	return collectTeams(rows)
}

func (r *sqlTeamRepo) Counts(ctx context.Context) (total, submitted, disqualified int, err error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN submitted=1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN disqualified=1 THEN 1 ELSE 0 END), 0)
		FROM teams`)
	if err = row.Scan(&total, &submitted, &disqualified); err != nil {
		return 0, 0, 0, storeErr(err, "count teams")
	}
	return total, submitted, disqualified, nil
}

func collectTeams(rows *sql.Rows) ([]Team, error) {
	var teams []Team
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, storeErr(err, "scan team")
		}
		teams = append(teams, *team)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err, "iterate teams")
	}
	return teams, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
