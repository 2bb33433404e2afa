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

// SQLitePhaseRepo implements PhaseRepo using a SQLite database.
type SQLitePhaseRepo struct {
	db db.DBTX
}

// NewSQLitePhaseRepo creates a new SQLitePhaseRepo.
func NewSQLitePhaseRepo(db db.DBTX) *SQLitePhaseRepo {
	return &SQLitePhaseRepo{db: db}
}

const phaseColumns = `id, plan_id, kind, order_index, anchor_start, duration_days, status,
	current_attempt_id, reason, evaluated_at, created_at, updated_at`

func (r *SQLitePhaseRepo) Create(ctx context.Context, p *domain.Phase) error {
	query := `INSERT INTO phases (` + phaseColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.PlanID,
		string(p.Kind),
		p.OrderIndex,
		formatDate(p.AnchorStart),
		p.DurationDays,
		string(p.Status),
		nullableStr(p.CurrentAttemptID),
		p.Reason,
		nullableTimeToString(p.EvaluatedAt, time.RFC3339),
		formatTS(p.CreatedAt),
		formatTS(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting phase: %w", err)
	}
	return nil
}

func (r *SQLitePhaseRepo) GetByID(ctx context.Context, id string) (*domain.Phase, error) {
	query := `SELECT ` + phaseColumns + ` FROM phases WHERE id = ?`
	p, err := scanPhaseRow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("phase: %w", domain.ErrNotFound)
		}
		return nil, err
	}
	return p, nil
}

func (r *SQLitePhaseRepo) ListByPlan(ctx context.Context, planID string) ([]*domain.Phase, error) {
	query := `SELECT ` + phaseColumns + ` FROM phases WHERE plan_id = ? ORDER BY order_index`
	rows, err := r.db.QueryContext(ctx, query, planID)
	if err != nil {
		return nil, fmt.Errorf("listing phases by plan: %w", err)
	}
	defer rows.Close()

	var phases []*domain.Phase
	for rows.Next() {
		p, err := scanPhaseRow(rows)
		if err != nil {
			return nil, err
		}
		phases = append(phases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating phases: %w", err)
	}
	return phases, nil
}

func (r *SQLitePhaseRepo) Update(ctx context.Context, p *domain.Phase) error {
	ok, err := r.update(ctx, p, "")
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("phase %s: %w", p.ID, domain.ErrNotFound)
	}
	return nil
}

// UpdateIfStatus writes p only while the stored status still equals expected.
// It reports false when another writer moved the phase first.
func (r *SQLitePhaseRepo) UpdateIfStatus(ctx context.Context, p *domain.Phase, expected domain.PhaseStatus) (bool, error) {
	return r.update(ctx, p, expected)
}

func (r *SQLitePhaseRepo) update(ctx context.Context, p *domain.Phase, expected domain.PhaseStatus) (bool, error) {
	query := `UPDATE phases SET anchor_start = ?, duration_days = ?, status = ?, current_attempt_id = ?,
		reason = ?, evaluated_at = ?, updated_at = ?
		WHERE id = ?`
	args := []any{
		formatDate(p.AnchorStart),
		p.DurationDays,
		string(p.Status),
		nullableStr(p.CurrentAttemptID),
		p.Reason,
		nullableTimeToString(p.EvaluatedAt, time.RFC3339),
		formatTS(p.UpdatedAt),
		p.ID,
	}
	if expected != "" {
		query += ` AND status = ?`
		args = append(args, string(expected))
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("updating phase: %w", err)
	}
	return rowsAffected(res)
}

func scanPhaseRow(row rowScanner) (*domain.Phase, error) {
	var p domain.Phase
	var kind, anchor, status, createdAt, updatedAt string
	var attemptID, evaluatedAt sql.NullString

	if err := row.Scan(&p.ID, &p.PlanID, &kind, &p.OrderIndex, &anchor, &p.DurationDays, &status,
		&attemptID, &p.Reason, &evaluatedAt, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning phase: %w", err)
	}

	var err error
	p.Kind = domain.PhaseKind(kind)
	p.Status = domain.PhaseStatus(status)
	p.CurrentAttemptID = strPtr(attemptID)
	p.EvaluatedAt = parseNullableTime(evaluatedAt, time.RFC3339)
	if p.AnchorStart, err = parseDate(anchor, "anchor_start"); err != nil {
		return nil, err
	}
	if p.CreatedAt, err = parseTS(createdAt, "created_at"); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTS(updatedAt, "updated_at"); err != nil {
		return nil, err
	}
	return &p, nil
}

// SQLitePhaseAttemptRepo implements PhaseAttemptRepo using a SQLite database.
type SQLitePhaseAttemptRepo struct {
	db db.DBTX
}

// NewSQLitePhaseAttemptRepo creates a new SQLitePhaseAttemptRepo.
func NewSQLitePhaseAttemptRepo(db db.DBTX) *SQLitePhaseAttemptRepo {
	return &SQLitePhaseAttemptRepo{db: db}
}

const attemptColumns = `id, phase_id, attempt_no, anchor_start, supersedes_attempt_id, outcome, created_at`

func (r *SQLitePhaseAttemptRepo) Create(ctx context.Context, a *domain.PhaseAttempt) error {
	query := `INSERT INTO phase_attempts (` + attemptColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		a.ID,
		a.PhaseID,
		a.AttemptNo,
		formatDate(a.AnchorStart),
		nullableStr(a.SupersedesAttemptID),
		string(a.Outcome),
		formatTS(a.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("attempt %d of phase %s: %w", a.AttemptNo, a.PhaseID, domain.ErrConflict)
		}
		return fmt.Errorf("inserting phase attempt: %w", err)
	}
	return nil
}

func (r *SQLitePhaseAttemptRepo) GetByID(ctx context.Context, id string) (*domain.PhaseAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM phase_attempts WHERE id = ?`
	a, err := scanAttemptRow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("phase attempt: %w", domain.ErrNotFound)
		}
		return nil, err
	}
	return a, nil
}

func (r *SQLitePhaseAttemptRepo) ListByPhase(ctx context.Context, phaseID string) ([]*domain.PhaseAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM phase_attempts WHERE phase_id = ? ORDER BY attempt_no`
	rows, err := r.db.QueryContext(ctx, query, phaseID)
	if err != nil {
		return nil, fmt.Errorf("listing phase attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*domain.PhaseAttempt
	for rows.Next() {
		a, err := scanAttemptRow(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating phase attempts: %w", err)
	}
	return attempts, nil
}

func (r *SQLitePhaseAttemptRepo) SetOutcome(ctx context.Context, id string, outcome domain.AttemptOutcome) error {
	res, err := r.db.ExecContext(ctx, `UPDATE phase_attempts SET outcome = ? WHERE id = ?`, string(outcome), id)
	if err != nil {
		return fmt.Errorf("updating attempt outcome: %w", err)
	}
	ok, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("phase attempt %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func scanAttemptRow(row rowScanner) (*domain.PhaseAttempt, error) {
	var a domain.PhaseAttempt
	var anchor, outcome, createdAt string
	var supersedes sql.NullString

	if err := row.Scan(&a.ID, &a.PhaseID, &a.AttemptNo, &anchor, &supersedes, &outcome, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning phase attempt: %w", err)
	}

	var err error
	a.Outcome = domain.AttemptOutcome(outcome)
	a.SupersedesAttemptID = strPtr(supersedes)
	if a.AnchorStart, err = parseDate(anchor, "anchor_start"); err != nil {
		return nil, err
	}
	if a.CreatedAt, err = parseTS(createdAt, "created_at"); err != nil {
		return nil, err
	}
	return &a, nil
}

// SQLitePhaseDetailRepo implements PhaseDetailRepo using a SQLite database.
type SQLitePhaseDetailRepo struct {
	db db.DBTX
}

// NewSQLitePhaseDetailRepo creates a new SQLitePhaseDetailRepo.
func NewSQLitePhaseDetailRepo(db db.DBTX) *SQLitePhaseDetailRepo {
	return &SQLitePhaseDetailRepo{db: db}
}

const detailColumns = `id, phase_id, attempt_id, day_index, date, name, created_at`

func (r *SQLitePhaseDetailRepo) CreateBatch(ctx context.Context, details []*domain.PhaseDetail) error {
	query := `INSERT INTO phase_details (` + detailColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	for _, d := range details {
		_, err := r.db.ExecContext(ctx, query,
			d.ID,
			d.PhaseID,
			d.AttemptID,
			d.DayIndex,
			formatDate(d.Date),
			d.Name,
			formatTS(d.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("inserting phase detail day %d: %w", d.DayIndex, err)
		}
	}
	return nil
}

func (r *SQLitePhaseDetailRepo) GetByID(ctx context.Context, id string) (*domain.PhaseDetail, error) {
	query := `SELECT ` + detailColumns + ` FROM phase_details WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLitePhaseDetailRepo) GetByAttemptDay(ctx context.Context, attemptID string, dayIndex int) (*domain.PhaseDetail, error) {
	query := `SELECT ` + detailColumns + ` FROM phase_details WHERE attempt_id = ? AND day_index = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, attemptID, dayIndex))
}

func (r *SQLitePhaseDetailRepo) ListByAttempt(ctx context.Context, attemptID string) ([]*domain.PhaseDetail, error) {
	query := `SELECT ` + detailColumns + ` FROM phase_details WHERE attempt_id = ? ORDER BY day_index`
	rows, err := r.db.QueryContext(ctx, query, attemptID)
	if err != nil {
		return nil, fmt.Errorf("listing phase details: %w", err)
	}
	defer rows.Close()

	var details []*domain.PhaseDetail
	for rows.Next() {
		d, err := scanDetailRow(rows)
		if err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating phase details: %w", err)
	}
	return details, nil
}

// DeleteUngenerated removes the attempt's days that never received mission
// instances. Days with instances stay as history.
func (r *SQLitePhaseDetailRepo) DeleteUngenerated(ctx context.Context, attemptID string) (int64, error) {
	query := `DELETE FROM phase_details
		WHERE attempt_id = ?
		  AND NOT EXISTS (SELECT 1 FROM phase_detail_missions m WHERE m.phase_detail_id = phase_details.id)`
	res, err := r.db.ExecContext(ctx, query, attemptID)
	if err != nil {
		return 0, fmt.Errorf("deleting ungenerated phase details: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading rows affected: %w", err)
	}
	return n, nil
}

func (r *SQLitePhaseDetailRepo) scanOne(row *sql.Row) (*domain.PhaseDetail, error) {
	d, err := scanDetailRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("phase detail: %w", domain.ErrNotFound)
		}
		return nil, err
	}
	return d, nil
}

func scanDetailRow(row rowScanner) (*domain.PhaseDetail, error) {
	var d domain.PhaseDetail
	var date, createdAt string
	if err := row.Scan(&d.ID, &d.PhaseID, &d.AttemptID, &d.DayIndex, &date, &d.Name, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning phase detail: %w", err)
	}
	var err error
	if d.Date, err = parseDate(date, "date"); err != nil {
		return nil, err
	}
	if d.CreatedAt, err = parseTS(createdAt, "created_at"); err != nil {
		return nil, err
	}
	return &d, nil
}
