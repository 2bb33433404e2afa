package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/alexanderramin/quitplan/internal/db"
	"github.com/alexanderramin/quitplan/internal/domain"
)

// SQLitePlanRepo implements PlanRepo using a SQLite database.
type SQLitePlanRepo struct {
	db db.DBTX
}

// NewSQLitePlanRepo creates a new SQLitePlanRepo.
func NewSQLitePlanRepo(db db.DBTX) *SQLitePlanRepo {
	return &SQLitePlanRepo{db: db}
}

const planColumns = `id, member_id, name, status, start_date, end_date, use_nrt, created_at, updated_at`

func (r *SQLitePlanRepo) Create(ctx context.Context, p *domain.QuitPlan) error {
	query := `INSERT INTO quit_plans (` + planColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.MemberID,
		p.Name,
		string(p.Status),
		formatDate(p.StartDate),
		nullableTimeToString(p.EndDate, domain.DateLayout),
		boolToInt(p.UseNRT),
		formatTS(p.CreatedAt),
		formatTS(p.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("member %s already has an active plan: %w", p.MemberID, domain.ErrConflict)
		}
		return fmt.Errorf("inserting plan: %w", err)
	}
	return nil
}

func (r *SQLitePlanRepo) GetByID(ctx context.Context, id string) (*domain.QuitPlan, error) {
	query := `SELECT ` + planColumns + ` FROM quit_plans WHERE id = ?`
	return r.scanPlan(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLitePlanRepo) GetActiveByMember(ctx context.Context, memberID string) (*domain.QuitPlan, error) {
	query := `SELECT ` + planColumns + ` FROM quit_plans WHERE member_id = ? AND status = 'active'`
	return r.scanPlan(r.db.QueryRowContext(ctx, query, memberID))
}

func (r *SQLitePlanRepo) ListByMember(ctx context.Context, memberID string) ([]*domain.QuitPlan, error) {
	query := `SELECT ` + planColumns + ` FROM quit_plans WHERE member_id = ? ORDER BY created_at DESC, rowid DESC`
	rows, err := r.db.QueryContext(ctx, query, memberID)
	if err != nil {
		return nil, fmt.Errorf("listing plans by member: %w", err)
	}
	defer rows.Close()
	return r.scanPlans(rows)
}

func (r *SQLitePlanRepo) ListActive(ctx context.Context) ([]*domain.QuitPlan, error) {
	query := `SELECT ` + planColumns + ` FROM quit_plans WHERE status = 'active' ORDER BY created_at, rowid`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing active plans: %w", err)
	}
	defer rows.Close()
	return r.scanPlans(rows)
}

func (r *SQLitePlanRepo) Update(ctx context.Context, p *domain.QuitPlan) error {
	query := `UPDATE quit_plans SET name = ?, status = ?, start_date = ?, end_date = ?, use_nrt = ?, updated_at = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		p.Name,
		string(p.Status),
		formatDate(p.StartDate),
		nullableTimeToString(p.EndDate, domain.DateLayout),
		boolToInt(p.UseNRT),
		formatTS(p.UpdatedAt),
		p.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("member %s already has an active plan: %w", p.MemberID, domain.ErrConflict)
		}
		return fmt.Errorf("updating plan: %w", err)
	}
	ok, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("plan %s: %w", p.ID, domain.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SQLitePlanRepo) scanPlan(row *sql.Row) (*domain.QuitPlan, error) {
	p, err := r.scanPlanRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("plan: %w", domain.ErrNotFound)
		}
		return nil, err
	}
	return p, nil
}

func (r *SQLitePlanRepo) scanPlans(rows *sql.Rows) ([]*domain.QuitPlan, error) {
	var plans []*domain.QuitPlan
	for rows.Next() {
		p, err := r.scanPlanRow(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating plans: %w", err)
	}
	return plans, nil
}

func (r *SQLitePlanRepo) scanPlanRow(row rowScanner) (*domain.QuitPlan, error) {
	var p domain.QuitPlan
	var status, startDate, createdAt, updatedAt string
	var endDate sql.NullString
	var useNRT int

	if err := row.Scan(&p.ID, &p.MemberID, &p.Name, &status, &startDate, &endDate, &useNRT, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning plan: %w", err)
	}

	var err error
	p.Status = domain.PlanStatus(status)
	p.UseNRT = intToBool(useNRT)
	p.EndDate = parseNullableTime(endDate, domain.DateLayout)
	if p.StartDate, err = parseDate(startDate, "start_date"); err != nil {
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

// isUniqueViolation matches SQLite UNIQUE and PRIMARY KEY constraint errors.
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY")
}
