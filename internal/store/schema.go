package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

func ensureSchema(ctx context.Context, db *sqlx.DB, driver Driver) error {
	var stmts []string
	switch driver {
	case DriverSQLite:
		stmts = schemaSQLite
	case DriverPostgres:
		stmts = schemaPostgres
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("exec %.40q: %w", s, err)
		}
	}
	return nil
}

var schemaSQLite = []string{
	`CREATE TABLE IF NOT EXISTS sections (
		id TEXT PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT 'other'
	)`,
	`CREATE TABLE IF NOT EXISTS subsections (
		id TEXT PRIMARY KEY,
		section_id TEXT NOT NULL REFERENCES sections(id),
		slug TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS skills (
		id TEXT PRIMARY KEY,
		subsection_id TEXT NOT NULL REFERENCES subsections(id),
		slug TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS questions (
		id TEXT PRIMARY KEY,
		subsection_id TEXT NOT NULL REFERENCES subsections(id),
		skill_id TEXT REFERENCES skills(id),
		difficulty INTEGER NOT NULL DEFAULT 1,
		prompt TEXT NOT NULL DEFAULT '',
		choices TEXT NOT NULL DEFAULT '[]',
		correct_choice TEXT NOT NULL,
		explanation TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT 1
	)`,
	`CREATE INDEX IF NOT EXISTS idx_questions_subsection ON questions(subsection_id)`,
	`CREATE INDEX IF NOT EXISTS idx_questions_skill ON questions(skill_id)`,
	`CREATE TABLE IF NOT EXISTS starred_questions (
		user_id TEXT NOT NULL,
		question_id TEXT NOT NULL REFERENCES questions(id),
		created_at TIMESTAMP NOT NULL,
		PRIMARY KEY (user_id, question_id)
	)`,
	`CREATE TABLE IF NOT EXISTS profiles (
		user_id TEXT PRIMARY KEY,
		tier TEXT NOT NULL,
		verbal_level REAL,
		quantitative_level REAL,
		level_determined BOOLEAN NOT NULL DEFAULT 0,
		points INTEGER NOT NULL DEFAULT 0,
		streak_days INTEGER NOT NULL DEFAULT 0,
		last_active_on TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS test_attempts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		attempt_type TEXT NOT NULL,
		status TEXT NOT NULL,
		question_ids TEXT NOT NULL DEFAULT '[]',
		configuration_snapshot TEXT NOT NULL,
		overall_score REAL,
		verbal_score REAL,
		quantitative_score REAL,
		results_summary TEXT,
		started_at TIMESTAMP NOT NULL,
		ended_at TIMESTAMP
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_test_attempts_one_started
		ON test_attempts(user_id) WHERE status = 'started'`,
	`CREATE INDEX IF NOT EXISTS idx_test_attempts_user_type ON test_attempts(user_id, attempt_type)`,
	`CREATE TABLE IF NOT EXISTS emergency_sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		available_hours REAL,
		suggested_plan TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		ended_at TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS question_attempts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		test_attempt_id TEXT REFERENCES test_attempts(id),
		emergency_session_id TEXT REFERENCES emergency_sessions(id),
		question_id TEXT NOT NULL REFERENCES questions(id),
		selected_choice TEXT NOT NULL,
		is_correct BOOLEAN NOT NULL,
		elapsed_ms INTEGER,
		mode TEXT NOT NULL,
		hint_used BOOLEAN NOT NULL DEFAULT 0,
		elimination_used BOOLEAN NOT NULL DEFAULT 0,
		answer_revealed BOOLEAN NOT NULL DEFAULT 0,
		explanation_revealed BOOLEAN NOT NULL DEFAULT 0,
		answered_at TIMESTAMP NOT NULL,
		UNIQUE (user_id, test_attempt_id, question_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_question_attempts_session ON question_attempts(emergency_session_id)`,
	`CREATE TABLE IF NOT EXISTS skill_proficiency (
		user_id TEXT NOT NULL,
		skill_id TEXT NOT NULL REFERENCES skills(id),
		attempts_count INTEGER NOT NULL DEFAULT 0,
		correct_count INTEGER NOT NULL DEFAULT 0,
		proficiency_score REAL NOT NULL DEFAULT 0,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (user_id, skill_id)
	)`,
	`CREATE TABLE IF NOT EXISTS reward_events (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		points INTEGER NOT NULL DEFAULT 0,
		reason TEXT NOT NULL DEFAULT '',
		ref_id TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		UNIQUE (user_id, kind, ref_id)
	)`,
}

var schemaPostgres = []string{
	`CREATE TABLE IF NOT EXISTS sections (
		id TEXT PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT 'other'
	)`,
	`CREATE TABLE IF NOT EXISTS subsections (
		id TEXT PRIMARY KEY,
		section_id TEXT NOT NULL REFERENCES sections(id),
		slug TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS skills (
		id TEXT PRIMARY KEY,
		subsection_id TEXT NOT NULL REFERENCES subsections(id),
		slug TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS questions (
		id TEXT PRIMARY KEY,
		subsection_id TEXT NOT NULL REFERENCES subsections(id),
		skill_id TEXT REFERENCES skills(id),
		difficulty INTEGER NOT NULL DEFAULT 1,
		prompt TEXT NOT NULL DEFAULT '',
		choices TEXT NOT NULL DEFAULT '[]',
		correct_choice TEXT NOT NULL,
		explanation TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_questions_subsection ON questions(subsection_id)`,
	`CREATE INDEX IF NOT EXISTS idx_questions_skill ON questions(skill_id)`,
	`CREATE TABLE IF NOT EXISTS starred_questions (
		user_id TEXT NOT NULL,
		question_id TEXT NOT NULL REFERENCES questions(id),
		created_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (user_id, question_id)
	)`,
	`CREATE TABLE IF NOT EXISTS profiles (
		user_id TEXT PRIMARY KEY,
		tier TEXT NOT NULL,
		verbal_level DOUBLE PRECISION,
		quantitative_level DOUBLE PRECISION,
		level_determined BOOLEAN NOT NULL DEFAULT FALSE,
		points BIGINT NOT NULL DEFAULT 0,
		streak_days INTEGER NOT NULL DEFAULT 0,
		last_active_on TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS test_attempts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		attempt_type TEXT NOT NULL,
		status TEXT NOT NULL,
		question_ids TEXT NOT NULL DEFAULT '[]',
		configuration_snapshot TEXT NOT NULL,
		overall_score DOUBLE PRECISION,
		verbal_score DOUBLE PRECISION,
		quantitative_score DOUBLE PRECISION,
		results_summary TEXT,
		started_at TIMESTAMPTZ NOT NULL,
		ended_at TIMESTAMPTZ
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_test_attempts_one_started
		ON test_attempts(user_id) WHERE status = 'started'`,
	`CREATE INDEX IF NOT EXISTS idx_test_attempts_user_type ON test_attempts(user_id, attempt_type)`,
	`CREATE TABLE IF NOT EXISTS emergency_sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		available_hours DOUBLE PRECISION,
		suggested_plan TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		ended_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS question_attempts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		test_attempt_id TEXT REFERENCES test_attempts(id),
		emergency_session_id TEXT REFERENCES emergency_sessions(id),
		question_id TEXT NOT NULL REFERENCES questions(id),
		selected_choice TEXT NOT NULL,
		is_correct BOOLEAN NOT NULL,
		elapsed_ms BIGINT,
		mode TEXT NOT NULL,
		hint_used BOOLEAN NOT NULL DEFAULT FALSE,
		elimination_used BOOLEAN NOT NULL DEFAULT FALSE,
		answer_revealed BOOLEAN NOT NULL DEFAULT FALSE,
		explanation_revealed BOOLEAN NOT NULL DEFAULT FALSE,
		answered_at TIMESTAMPTZ NOT NULL,
		UNIQUE (user_id, test_attempt_id, question_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_question_attempts_session ON question_attempts(emergency_session_id)`,
	`CREATE TABLE IF NOT EXISTS skill_proficiency (
		user_id TEXT NOT NULL,
		skill_id TEXT NOT NULL REFERENCES skills(id),
		attempts_count INTEGER NOT NULL DEFAULT 0,
		correct_count INTEGER NOT NULL DEFAULT 0,
		proficiency_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (user_id, skill_id)
	)`,
	`CREATE TABLE IF NOT EXISTS reward_events (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		points INTEGER NOT NULL DEFAULT 0,
		reason TEXT NOT NULL DEFAULT '',
		ref_id TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		UNIQUE (user_id, kind, ref_id)
	)`,
}
