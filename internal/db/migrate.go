package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// Tolerate "duplicate column name" errors from ALTER TABLE
			// since the migration system re-runs all statements.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id         TEXT PRIMARY KEY,
		member_id  TEXT NOT NULL UNIQUE,
		push_token TEXT,
		created_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS quit_plans (
		id         TEXT PRIMARY KEY,
		member_id  TEXT NOT NULL,
		name       TEXT NOT NULL,
		status     TEXT NOT NULL DEFAULT 'draft'
		           CHECK(status IN ('draft','active','completed','abandoned')),
		start_date TEXT NOT NULL,
		end_date   TEXT,
		use_nrt    INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_quit_plans_member ON quit_plans(member_id)`,
	// At most one active plan per member.
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_quit_plans_active_member
		ON quit_plans(member_id) WHERE status = 'active'`,

	`CREATE TABLE IF NOT EXISTS phases (
		id                 TEXT PRIMARY KEY,
		plan_id            TEXT NOT NULL REFERENCES quit_plans(id) ON DELETE CASCADE,
		kind               TEXT NOT NULL
		                   CHECK(kind IN ('PREPARATION','ONSET','PEAK_CRAVING','SUBSIDING','MAINTENANCE')),
		order_index        INTEGER NOT NULL,
		anchor_start       TEXT NOT NULL,
		duration_days      INTEGER NOT NULL CHECK(duration_days > 0),
		status             TEXT NOT NULL DEFAULT 'pending_start'
		                   CHECK(status IN ('pending_start','in_progress','redo_eligible','advanced','plan_completed')),
		current_attempt_id TEXT,
		reason             TEXT NOT NULL DEFAULT '',
		evaluated_at       TEXT,
		created_at         TEXT NOT NULL,
		updated_at         TEXT NOT NULL,
		UNIQUE(plan_id, order_index)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_phases_plan ON phases(plan_id)`,

	`CREATE TABLE IF NOT EXISTS phase_attempts (
		id                    TEXT PRIMARY KEY,
		phase_id              TEXT NOT NULL REFERENCES phases(id) ON DELETE CASCADE,
		attempt_no            INTEGER NOT NULL CHECK(attempt_no >= 1),
		anchor_start          TEXT NOT NULL,
		supersedes_attempt_id TEXT REFERENCES phase_attempts(id),
		outcome               TEXT NOT NULL DEFAULT 'active'
		                      CHECK(outcome IN ('active','redone','advanced','completed')),
		created_at            TEXT NOT NULL,
		UNIQUE(phase_id, attempt_no)
	)`,

	`CREATE TABLE IF NOT EXISTS phase_details (
		id         TEXT PRIMARY KEY,
		phase_id   TEXT NOT NULL REFERENCES phases(id) ON DELETE CASCADE,
		attempt_id TEXT NOT NULL REFERENCES phase_attempts(id) ON DELETE CASCADE,
		day_index  INTEGER NOT NULL CHECK(day_index >= 1),
		date       TEXT NOT NULL,
		name       TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE(attempt_id, day_index)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_phase_details_phase ON phase_details(phase_id)`,

	`CREATE TABLE IF NOT EXISTS mission_types (
		code        TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE TABLE IF NOT EXISTS missions (
		code              TEXT PRIMARY KEY,
		name              TEXT NOT NULL,
		description       TEXT NOT NULL DEFAULT '',
		category          TEXT NOT NULL DEFAULT '',
		mission_type_code TEXT REFERENCES mission_types(code),
		phase_kind        TEXT NOT NULL
		                  CHECK(phase_kind IN ('PREPARATION','ONSET','PEAK_CRAVING','SUBSIDING','MAINTENANCE')),
		day_from          INTEGER NOT NULL DEFAULT 1,
		day_to            INTEGER NOT NULL DEFAULT 0,
		position          INTEGER NOT NULL DEFAULT 0,
		requires_nrt      INTEGER NOT NULL DEFAULT 0,
		updated_at        TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_missions_phase_kind ON missions(phase_kind)`,

	`CREATE TABLE IF NOT EXISTS phase_detail_missions (
		id              TEXT PRIMARY KEY,
		phase_detail_id TEXT NOT NULL REFERENCES phase_details(id) ON DELETE CASCADE,
		mission_code    TEXT NOT NULL,
		position        INTEGER NOT NULL DEFAULT 0,
		status          TEXT NOT NULL DEFAULT 'pending'
		                CHECK(status IN ('pending','completed','skipped','failed')),
		completed_at    TEXT,
		notes           TEXT NOT NULL DEFAULT '',
		triggers        TEXT NOT NULL DEFAULT '[]',
		created_at      TEXT NOT NULL,
		UNIQUE(phase_detail_id, mission_code)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pdm_detail ON phase_detail_missions(phase_detail_id)`,

	`CREATE TABLE IF NOT EXISTS system_phase_conditions (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL UNIQUE,
		phase_kind TEXT NOT NULL
		           CHECK(phase_kind IN ('PREPARATION','ONSET','PEAK_CRAVING','SUBSIDING','MAINTENANCE')),
		expression TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS reminder_templates (
		id            TEXT PRIMARY KEY,
		phase_kind    TEXT NOT NULL
		              CHECK(phase_kind IN ('PREPARATION','ONSET','PEAK_CRAVING','SUBSIDING','MAINTENANCE')),
		reminder_type TEXT NOT NULL CHECK(reminder_type IN ('MORNING','BEHAVIOR','SMOKED')),
		trigger_code  TEXT NOT NULL,
		content       TEXT NOT NULL,
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL,
		UNIQUE(phase_kind, reminder_type, trigger_code)
	)`,

	`CREATE TABLE IF NOT EXISTS reminder_queue (
		id            TEXT PRIMARY KEY,
		account_id    TEXT NOT NULL REFERENCES accounts(id),
		plan_id       TEXT NOT NULL,
		phase_id      TEXT,
		template_id   TEXT,
		reminder_type TEXT NOT NULL CHECK(reminder_type IN ('MORNING','BEHAVIOR','SMOKED')),
		trigger_code  TEXT NOT NULL,
		scheduled_at  TEXT NOT NULL,
		status        TEXT NOT NULL DEFAULT 'pending'
		              CHECK(status IN ('pending','sent','failed')),
		content       TEXT NOT NULL,
		attempts      INTEGER NOT NULL DEFAULT 0 CHECK(attempts IN (0, 1)),
		last_error    TEXT NOT NULL DEFAULT '',
		dispatched_at TEXT,
		claimed_by    TEXT,
		claimed_at    TEXT,
		created_at    TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reminder_queue_due ON reminder_queue(status, scheduled_at)`,
	`CREATE INDEX IF NOT EXISTS idx_reminder_queue_plan ON reminder_queue(plan_id)`,

	`CREATE TABLE IF NOT EXISTS diary_logs (
		id                TEXT PRIMARY KEY,
		member_id         TEXT NOT NULL,
		log_date          TEXT NOT NULL,
		cigarettes_smoked INTEGER CHECK(cigarettes_smoked IS NULL OR cigarettes_smoked >= 0),
		craving_level     REAL,
		mood              REAL,
		anxiety           REAL,
		confidence        REAL,
		used_nrt          INTEGER NOT NULL DEFAULT 0,
		created_at        TEXT NOT NULL,
		UNIQUE(member_id, log_date)
	)`,

	`CREATE TABLE IF NOT EXISTS plan_events (
		id             TEXT PRIMARY KEY,
		plan_id        TEXT NOT NULL REFERENCES quit_plans(id) ON DELETE CASCADE,
		phase_id       TEXT,
		kind           TEXT NOT NULL,
		detail         TEXT NOT NULL DEFAULT '',
		reminder_id    TEXT,
		reminder_error TEXT,
		created_at     TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_plan_events_plan ON plan_events(plan_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS blueprint_phases (
		order_index   INTEGER PRIMARY KEY,
		kind          TEXT NOT NULL
		              CHECK(kind IN ('PREPARATION','ONSET','PEAK_CRAVING','SUBSIDING','MAINTENANCE')),
		duration_days INTEGER NOT NULL CHECK(duration_days > 0)
	)`,
}
