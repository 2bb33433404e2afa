package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alexanderramin/quitplan/internal/db"
	"github.com/alexanderramin/quitplan/internal/domain"
)

// SQLiteEventRepo implements EventRepo using a SQLite database.
type SQLiteEventRepo struct {
	db db.DBTX
}

// NewSQLiteEventRepo creates a new SQLiteEventRepo.
func NewSQLiteEventRepo(db db.DBTX) *SQLiteEventRepo {
	return &SQLiteEventRepo{db: db}
}

func (r *SQLiteEventRepo) Append(ctx context.Context, e *domain.PlanEvent) error {
	query := `INSERT INTO plan_events (id, plan_id, phase_id, kind, detail, reminder_id, reminder_error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		e.ID,
		e.PlanID,
		nullableStr(e.PhaseID),
		string(e.Kind),
		e.Detail,
		nullableStr(e.ReminderID),
		nullableStr(e.ReminderError),
		formatTS(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("appending plan event: %w", err)
	}
	return nil
}

// ListByPlan returns events in append order.
func (r *SQLiteEventRepo) ListByPlan(ctx context.Context, planID string) ([]*domain.PlanEvent, error) {
	query := `SELECT id, plan_id, phase_id, kind, detail, reminder_id, reminder_error, created_at
		FROM plan_events WHERE plan_id = ? ORDER BY created_at, rowid`
	rows, err := r.db.QueryContext(ctx, query, planID)
	if err != nil {
		return nil, fmt.Errorf("listing plan events: %w", err)
	}
	defer rows.Close()

	var events []*domain.PlanEvent
	for rows.Next() {
		var e domain.PlanEvent
		var phaseID, reminderID, reminderErr sql.NullString
		var kind, createdAt string
		if err := rows.Scan(&e.ID, &e.PlanID, &phaseID, &kind, &e.Detail, &reminderID, &reminderErr, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning plan event: %w", err)
		}
		e.Kind = domain.EventKind(kind)
		e.PhaseID = strPtr(phaseID)
		e.ReminderID = strPtr(reminderID)
		e.ReminderError = strPtr(reminderErr)
		if e.CreatedAt, err = parseTS(createdAt, "created_at"); err != nil {
			return nil, err
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating plan events: %w", err)
	}
	return events, nil
}
