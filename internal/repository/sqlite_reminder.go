package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/quitplan/internal/db"
	"github.com/alexanderramin/quitplan/internal/domain"
)

// SQLiteReminderQueueRepo implements ReminderQueueRepo using a SQLite database.
type SQLiteReminderQueueRepo struct {
	db db.DBTX
}

// NewSQLiteReminderQueueRepo creates a new SQLiteReminderQueueRepo.
func NewSQLiteReminderQueueRepo(db db.DBTX) *SQLiteReminderQueueRepo {
	return &SQLiteReminderQueueRepo{db: db}
}

const reminderColumns = `id, account_id, plan_id, phase_id, template_id, reminder_type, trigger_code,
	scheduled_at, status, content, attempts, last_error, dispatched_at, created_at`

func (r *SQLiteReminderQueueRepo) Create(ctx context.Context, e *domain.ReminderEntry) error {
	query := `INSERT INTO reminder_queue (` + reminderColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		e.ID,
		e.AccountID,
		e.PlanID,
		nullableStr(e.PhaseID),
		nullableStr(e.TemplateID),
		string(e.ReminderType),
		string(e.TriggerCode),
		formatTS(e.ScheduledAt),
		string(e.Status),
		e.Content,
		e.Attempts,
		e.LastError,
		nullableTimeToString(e.DispatchedAt, time.RFC3339),
		formatTS(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting reminder: %w", err)
	}
	return nil
}

func (r *SQLiteReminderQueueRepo) GetByID(ctx context.Context, id string) (*domain.ReminderEntry, error) {
	e, err := scanReminderRow(r.db.QueryRowContext(ctx, `SELECT `+reminderColumns+` FROM reminder_queue WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("reminder: %w", domain.ErrNotFound)
		}
		return nil, err
	}
	return e, nil
}

func (r *SQLiteReminderQueueRepo) ListByPlan(ctx context.Context, planID string) ([]*domain.ReminderEntry, error) {
	return r.list(ctx, `SELECT `+reminderColumns+` FROM reminder_queue WHERE plan_id = ? ORDER BY scheduled_at, rowid`, planID)
}

// MarkResult stores a SENT or FAILED outcome only while the entry is still
// pending. It reports false when another sweep already settled it.
func (r *SQLiteReminderQueueRepo) MarkResult(ctx context.Context, e *domain.ReminderEntry) (bool, error) {
	query := `UPDATE reminder_queue SET status = ?, attempts = ?, last_error = ?, dispatched_at = ?
		WHERE id = ? AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, query,
		string(e.Status),
		e.Attempts,
		e.LastError,
		nullableTimeToString(e.DispatchedAt, time.RFC3339),
		e.ID,
	)
	if err != nil {
		return false, fmt.Errorf("marking reminder %s: %w", e.ID, err)
	}
	return rowsAffected(res)
}

// ClaimDue tags up to limit due, unclaimed entries with token and returns
// every pending entry the token holds, oldest first. Zero or less is no limit. A claim taken before staleBefore is
// treated as lost and may be taken over.
func (r *SQLiteReminderQueueRepo) ClaimDue(ctx context.Context, token string, now, staleBefore time.Time, limit int) ([]*domain.ReminderEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `UPDATE reminder_queue SET claimed_by = ?, claimed_at = ?
		WHERE id IN (
			SELECT id FROM reminder_queue
			WHERE status = 'pending' AND scheduled_at <= ?
			  AND (claimed_at IS NULL OR claimed_at < ?)
			ORDER BY scheduled_at, rowid
			LIMIT ?
		)`
	if _, err := r.db.ExecContext(ctx, query, token, formatTS(now), formatTS(now), formatTS(staleBefore), limit); err != nil {
		return nil, fmt.Errorf("claiming reminders: %w", err)
	}
	return r.list(ctx, `SELECT `+reminderColumns+` FROM reminder_queue
		WHERE claimed_by = ? AND status = 'pending'
		ORDER BY scheduled_at, rowid`, token)
}

// ReleaseClaims drops token's hold on entries that are still pending.
func (r *SQLiteReminderQueueRepo) ReleaseClaims(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE reminder_queue SET claimed_by = NULL, claimed_at = NULL
		WHERE claimed_by = ? AND status = 'pending'`, token)
	if err != nil {
		return fmt.Errorf("releasing reminder claims: %w", err)
	}
	return nil
}

func (r *SQLiteReminderQueueRepo) list(ctx context.Context, query string, args ...any) ([]*domain.ReminderEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing reminders: %w", err)
	}
	defer rows.Close()

	var entries []*domain.ReminderEntry
	for rows.Next() {
		e, err := scanReminderRow(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reminders: %w", err)
	}
	return entries, nil
}

func scanReminderRow(row rowScanner) (*domain.ReminderEntry, error) {
	var e domain.ReminderEntry
	var phaseID, templateID, dispatchedAt sql.NullString
	var rtype, trigger, scheduledAt, status, createdAt string
	if err := row.Scan(&e.ID, &e.AccountID, &e.PlanID, &phaseID, &templateID, &rtype, &trigger,
		&scheduledAt, &status, &e.Content, &e.Attempts, &e.LastError, &dispatchedAt, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning reminder: %w", err)
	}

	var err error
	e.PhaseID = strPtr(phaseID)
	e.TemplateID = strPtr(templateID)
	e.ReminderType = domain.ReminderType(rtype)
	e.TriggerCode = domain.TriggerCode(trigger)
	e.Status = domain.ReminderStatus(status)
	e.DispatchedAt = parseNullableTime(dispatchedAt, time.RFC3339)
	if e.ScheduledAt, err = parseTS(scheduledAt, "scheduled_at"); err != nil {
		return nil, err
	}
	if e.CreatedAt, err = parseTS(createdAt, "created_at"); err != nil {
		return nil, err
	}
	return &e, nil
}
