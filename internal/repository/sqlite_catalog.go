package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alexanderramin/quitplan/internal/db"
	"github.com/alexanderramin/quitplan/internal/domain"
)

// SQLiteConditionRepo implements ConditionRepo using a SQLite database.
type SQLiteConditionRepo struct {
	db db.DBTX
}

// NewSQLiteConditionRepo creates a new SQLiteConditionRepo.
func NewSQLiteConditionRepo(db db.DBTX) *SQLiteConditionRepo {
	return &SQLiteConditionRepo{db: db}
}

// Upsert keys conditions by name.
func (r *SQLiteConditionRepo) Upsert(ctx context.Context, c *domain.SystemPhaseCondition) error {
	query := `INSERT INTO system_phase_conditions (id, name, phase_kind, expression, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			phase_kind = excluded.phase_kind,
			expression = excluded.expression,
			updated_at = excluded.updated_at`
	_, err := r.db.ExecContext(ctx, query, c.ID, c.Name, string(c.PhaseKind), c.Expression, formatTS(c.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upserting condition %s: %w", c.Name, err)
	}
	return nil
}

func (r *SQLiteConditionRepo) List(ctx context.Context) ([]domain.SystemPhaseCondition, error) {
	return r.list(ctx, `SELECT id, name, phase_kind, expression, updated_at
		FROM system_phase_conditions ORDER BY phase_kind, name`)
}

func (r *SQLiteConditionRepo) ListByPhaseKind(ctx context.Context, kind domain.PhaseKind) ([]domain.SystemPhaseCondition, error) {
	return r.list(ctx, `SELECT id, name, phase_kind, expression, updated_at
		FROM system_phase_conditions WHERE phase_kind = ? ORDER BY name`, string(kind))
}

func (r *SQLiteConditionRepo) list(ctx context.Context, query string, args ...any) ([]domain.SystemPhaseCondition, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing conditions: %w", err)
	}
	defer rows.Close()

	var conds []domain.SystemPhaseCondition
	for rows.Next() {
		var c domain.SystemPhaseCondition
		var kind, updatedAt string
		if err := rows.Scan(&c.ID, &c.Name, &kind, &c.Expression, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning condition: %w", err)
		}
		c.PhaseKind = domain.PhaseKind(kind)
		if c.UpdatedAt, err = parseTS(updatedAt, "updated_at"); err != nil {
			return nil, err
		}
		conds = append(conds, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conditions: %w", err)
	}
	return conds, nil
}

// SQLiteReminderTemplateRepo implements ReminderTemplateRepo using a SQLite database.
type SQLiteReminderTemplateRepo struct {
	db db.DBTX
}

// NewSQLiteReminderTemplateRepo creates a new SQLiteReminderTemplateRepo.
func NewSQLiteReminderTemplateRepo(db db.DBTX) *SQLiteReminderTemplateRepo {
	return &SQLiteReminderTemplateRepo{db: db}
}

const templateColumns = `id, phase_kind, reminder_type, trigger_code, content, created_at, updated_at`

// Upsert keys templates by (phase kind, reminder type, trigger code).
func (r *SQLiteReminderTemplateRepo) Upsert(ctx context.Context, t *domain.ReminderTemplate) error {
	query := `INSERT INTO reminder_templates (` + templateColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(phase_kind, reminder_type, trigger_code) DO UPDATE SET
			content = excluded.content,
			updated_at = excluded.updated_at`
	_, err := r.db.ExecContext(ctx, query,
		t.ID,
		string(t.PhaseKind),
		string(t.ReminderType),
		string(t.TriggerCode),
		t.Content,
		formatTS(t.CreatedAt),
		formatTS(t.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upserting reminder template: %w", err)
	}
	return nil
}

func (r *SQLiteReminderTemplateRepo) Find(ctx context.Context, sel domain.ReminderSelector) (*domain.ReminderTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM reminder_templates
		WHERE phase_kind = ? AND reminder_type = ? AND trigger_code = ?`
	t, err := scanTemplateRow(r.db.QueryRowContext(ctx, query,
		string(sel.PhaseKind), string(sel.ReminderType), string(sel.TriggerCode)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("reminder template %s: %w", sel, domain.ErrNotFound)
		}
		return nil, err
	}
	return t, nil
}

func (r *SQLiteReminderTemplateRepo) List(ctx context.Context) ([]domain.ReminderTemplate, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+templateColumns+` FROM reminder_templates
		ORDER BY phase_kind, reminder_type, trigger_code`)
	if err != nil {
		return nil, fmt.Errorf("listing reminder templates: %w", err)
	}
	defer rows.Close()

	var templates []domain.ReminderTemplate
	for rows.Next() {
		t, err := scanTemplateRow(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reminder templates: %w", err)
	}
	return templates, nil
}

func scanTemplateRow(row rowScanner) (*domain.ReminderTemplate, error) {
	var t domain.ReminderTemplate
	var kind, rtype, trigger, createdAt, updatedAt string
	if err := row.Scan(&t.ID, &kind, &rtype, &trigger, &t.Content, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning reminder template: %w", err)
	}
	var err error
	t.PhaseKind = domain.PhaseKind(kind)
	t.ReminderType = domain.ReminderType(rtype)
	t.TriggerCode = domain.TriggerCode(trigger)
	if t.CreatedAt, err = parseTS(createdAt, "created_at"); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = parseTS(updatedAt, "updated_at"); err != nil {
		return nil, err
	}
	return &t, nil
}

// SQLiteBlueprintRepo implements BlueprintRepo using a SQLite database.
type SQLiteBlueprintRepo struct {
	db db.DBTX
}

// NewSQLiteBlueprintRepo creates a new SQLiteBlueprintRepo.
func NewSQLiteBlueprintRepo(db db.DBTX) *SQLiteBlueprintRepo {
	return &SQLiteBlueprintRepo{db: db}
}

// Replace swaps the whole phase sequence. Existing plans keep their phases.
func (r *SQLiteBlueprintRepo) Replace(ctx context.Context, phases []domain.BlueprintPhase) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM blueprint_phases`); err != nil {
		return fmt.Errorf("clearing blueprint: %w", err)
	}
	for _, p := range phases {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO blueprint_phases (order_index, kind, duration_days) VALUES (?, ?, ?)`,
			p.OrderIndex, string(p.Kind), p.DurationDays)
		if err != nil {
			return fmt.Errorf("inserting blueprint phase %d: %w", p.OrderIndex, err)
		}
	}
	return nil
}

func (r *SQLiteBlueprintRepo) List(ctx context.Context) ([]domain.BlueprintPhase, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT order_index, kind, duration_days FROM blueprint_phases ORDER BY order_index`)
	if err != nil {
		return nil, fmt.Errorf("listing blueprint: %w", err)
	}
	defer rows.Close()

	var phases []domain.BlueprintPhase
	for rows.Next() {
		var p domain.BlueprintPhase
		var kind string
		if err := rows.Scan(&p.OrderIndex, &kind, &p.DurationDays); err != nil {
			return nil, fmt.Errorf("scanning blueprint phase: %w", err)
		}
		p.Kind = domain.PhaseKind(kind)
		phases = append(phases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating blueprint: %w", err)
	}
	return phases, nil
}
