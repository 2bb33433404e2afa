package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/quitplan/internal/db"
	"github.com/alexanderramin/quitplan/internal/domain"
	"github.com/google/uuid"
)

// SQLiteAccountRepo implements AccountRepo using a SQLite database.
type SQLiteAccountRepo struct {
	db db.DBTX
}

// NewSQLiteAccountRepo creates a new SQLiteAccountRepo.
func NewSQLiteAccountRepo(db db.DBTX) *SQLiteAccountRepo {
	return &SQLiteAccountRepo{db: db}
}

// Ensure returns the member's account, creating one without a push target
// when none exists.
func (r *SQLiteAccountRepo) Ensure(ctx context.Context, memberID string, now time.Time) (*domain.Account, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, member_id, created_at) VALUES (?, ?, ?) ON CONFLICT(member_id) DO NOTHING`,
		uuid.New().String(), memberID, formatTS(now))
	if err != nil {
		return nil, fmt.Errorf("ensuring account: %w", err)
	}
	return r.GetByMember(ctx, memberID)
}

func (r *SQLiteAccountRepo) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.get(ctx, `SELECT id, member_id, push_token, created_at FROM accounts WHERE id = ?`, id)
}

func (r *SQLiteAccountRepo) GetByMember(ctx context.Context, memberID string) (*domain.Account, error) {
	return r.get(ctx, `SELECT id, member_id, push_token, created_at FROM accounts WHERE member_id = ?`, memberID)
}

// SetPushToken replaces the member's push target; nil clears it.
func (r *SQLiteAccountRepo) SetPushToken(ctx context.Context, memberID string, token *string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE accounts SET push_token = ? WHERE member_id = ?`, nullableStr(token), memberID)
	if err != nil {
		return fmt.Errorf("setting push token: %w", err)
	}
	ok, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("account for member %s: %w", memberID, domain.ErrNotFound)
	}
	return nil
}

func (r *SQLiteAccountRepo) get(ctx context.Context, query string, arg string) (*domain.Account, error) {
	var a domain.Account
	var token sql.NullString
	var createdAt string
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&a.ID, &a.MemberID, &token, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scanning account: %w", err)
	}
	a.PushToken = strPtr(token)
	if a.CreatedAt, err = parseTS(createdAt, "created_at"); err != nil {
		return nil, err
	}
	return &a, nil
}
