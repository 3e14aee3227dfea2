package store

import (
	"context"
	"database/sql"
	"encoding/json"

	appErr "codearena/pkg/errors"
)

type sqlSettingsRepo struct {
	db *sql.DB
}

// Get returns the singleton settings row. The row is seeded at schema
// creation so this never reports not-found in a healthy store.
func (r *sqlSettingsRepo) Get(ctx context.Context) (*Settings, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT is_active, COALESCE(scheduled_start, ''), duration_minutes,
			COALESCE(announcements, '[]'), COALESCE(started_at, ''), COALESCE(stopped_at, '')
		FROM contest_settings WHERE singleton = 'main'`)

	var s Settings
	var isActive int
	var announcements string
	err := row.Scan(&isActive, &s.ScheduledStart, &s.DurationMinutes,
		&announcements, &s.StartedAt, &s.StoppedAt)
	if err != nil {
		return nil, storeErr(err, "load settings")
	}
	s.IsActive = isActive != 0
	if announcements == "" {
		announcements = "[]"
	}
	if err := json.Unmarshal([]byte(announcements), &s.Announcements); err != nil {
		return nil, appErr.Wrapf(err, appErr.StoreUnavailable, "decode announcements")
	}
	return &s, nil
}

func (r *sqlSettingsRepo) Save(ctx context.Context, settings *Settings) error {
	if settings == nil {
		return appErr.New(appErr.InvalidParams).WithMessage("settings are required")
	}
	announcements, err := json.Marshal(settings.Announcements)
	if err != nil {
		return appErr.Wrapf(err, appErr.StoreUnavailable, "encode announcements")
	}
	_, err = r.db.ExecContext(ctx, `
		UPDATE contest_settings SET
			is_active = ?, scheduled_start = ?, duration_minutes = ?,
			announcements = ?, started_at = ?, stopped_at = ?
		WHERE singleton = 'main'`,
		boolInt(settings.IsActive), settings.ScheduledStart, settings.DurationMinutes,
		string(announcements), settings.StartedAt, settings.StoppedAt,
	)
	if err != nil {
		return storeErr(err, "save settings")
	}
	return nil
}
