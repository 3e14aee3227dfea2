package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// CreateSchema creates all tables needed for a contest instance.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(handle *sql.DB, driver string) error {
	var stmts []string
	switch driver {
	case DriverMySQL:
		stmts = strings.Split(schemaMySQL, ";\n\n")
	default:
		stmts = strings.Split(schemaSQLite, ";\n\n")
	}
	for _, stmt := range stmts {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := handle.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	// Exactly one settings row exists process-wide.
	if _, err := handle.Exec(
		"INSERT OR IGNORE INTO contest_settings (singleton) VALUES ('main')",
	); err != nil {
		if driver != DriverMySQL {
			return fmt.Errorf("failed to seed settings: %w", err)
		}
		if _, err := handle.Exec(
			"INSERT IGNORE INTO contest_settings (singleton) VALUES ('main')",
		); err != nil {
			return fmt.Errorf("failed to seed settings: %w", err)
		}
	}
	return nil
}

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS teams (
    team_id TEXT NOT NULL UNIQUE,
    team_name TEXT NOT NULL,
    leader_name TEXT NOT NULL,
    email TEXT NOT NULL UNIQUE,
    score INTEGER DEFAULT 0,
    disqualified INTEGER DEFAULT 0,
    disqualified_reason TEXT DEFAULT '',
    violations INTEGER DEFAULT 0,
    start_time TEXT DEFAULT '',
    end_time TEXT DEFAULT '',
    submitted INTEGER DEFAULT 0,
    device_fingerprint TEXT DEFAULT '',
    session_token TEXT DEFAULT '',
    created_at TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
    updated_at TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
);

CREATE TABLE IF NOT EXISTS questions (
    question_id TEXT NOT NULL UNIQUE,
    kind TEXT NOT NULL,
    section INTEGER NOT NULL,
    position INTEGER NOT NULL,
    prompt TEXT NOT NULL,
    options TEXT DEFAULT '[]',
    correct_option TEXT DEFAULT '',
    starter_code TEXT DEFAULT '',
    test_cases TEXT DEFAULT '[]',
    marks INTEGER NOT NULL,
    hint TEXT DEFAULT ''
);

CREATE TABLE IF NOT EXISTS submissions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    team_id TEXT NOT NULL,
    question_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    code TEXT DEFAULT '',
    selected_option TEXT DEFAULT '',
    output TEXT DEFAULT '',
    marks INTEGER DEFAULT 0,
    max_marks INTEGER DEFAULT 0,
    test_results TEXT DEFAULT '[]',
    evaluated INTEGER DEFAULT 0,
    updated_at TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
    UNIQUE(team_id, question_id)
);

CREATE TABLE IF NOT EXISTS contest_settings (
    singleton TEXT NOT NULL UNIQUE DEFAULT 'main',
    is_active INTEGER DEFAULT 0,
    scheduled_start TEXT DEFAULT '',
    duration_minutes INTEGER DEFAULT 60,
    announcements TEXT DEFAULT '[]',
    started_at TEXT DEFAULT '',
    stopped_at TEXT DEFAULT ''
)`

const schemaMySQL = `
CREATE TABLE IF NOT EXISTS teams (
    team_id VARCHAR(64) NOT NULL UNIQUE,
    team_name VARCHAR(255) NOT NULL,
    leader_name VARCHAR(255) NOT NULL,
    email VARCHAR(255) NOT NULL UNIQUE,
    score INT DEFAULT 0,
    disqualified TINYINT DEFAULT 0,
    disqualified_reason TEXT,
    violations INT DEFAULT 0,
    start_time VARCHAR(32) DEFAULT '',
    end_time VARCHAR(32) DEFAULT '',
    submitted TINYINT DEFAULT 0,
    device_fingerprint VARCHAR(64) DEFAULT '',
    session_token TEXT,
    created_at VARCHAR(32) DEFAULT '',
    updated_at VARCHAR(32) DEFAULT ''
);

CREATE TABLE IF NOT EXISTS questions (
    question_id VARCHAR(64) NOT NULL UNIQUE,
    kind VARCHAR(16) NOT NULL,
    section INT NOT NULL,
    position INT NOT NULL,
    prompt TEXT NOT NULL,
    options TEXT,
    correct_option VARCHAR(16) DEFAULT '',
    starter_code TEXT,
    test_cases TEXT,
    marks INT NOT NULL,
    hint TEXT
);

CREATE TABLE IF NOT EXISTS submissions (
    id BIGINT PRIMARY KEY AUTO_INCREMENT,
    team_id VARCHAR(64) NOT NULL,
    question_id VARCHAR(64) NOT NULL,
    kind VARCHAR(16) NOT NULL,
    code MEDIUMTEXT,
    selected_option VARCHAR(16) DEFAULT '',
    output MEDIUMTEXT,
    marks INT DEFAULT 0,
    max_marks INT DEFAULT 0,
    test_results MEDIUMTEXT,
    evaluated TINYINT DEFAULT 0,
    updated_at VARCHAR(32) DEFAULT '',
    UNIQUE KEY uniq_team_question (team_id, question_id)
);

CREATE TABLE IF NOT EXISTS contest_settings (
    singleton VARCHAR(8) NOT NULL UNIQUE DEFAULT 'main',
    is_active TINYINT DEFAULT 0,
    scheduled_start VARCHAR(32) DEFAULT '',
    duration_minutes INT DEFAULT 60,
    announcements MEDIUMTEXT,
    started_at VARCHAR(32) DEFAULT '',
    stopped_at VARCHAR(32) DEFAULT ''
)`
