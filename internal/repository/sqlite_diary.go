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

// SQLiteDiaryRepo implements DiaryRepo using a SQLite database.
type SQLiteDiaryRepo struct {
	db db.DBTX
}

// NewSQLiteDiaryRepo creates a new SQLiteDiaryRepo.
func NewSQLiteDiaryRepo(db db.DBTX) *SQLiteDiaryRepo {
	return &SQLiteDiaryRepo{db: db}
}

const diaryColumns = `id, member_id, log_date, cigarettes_smoked, craving_level, mood, anxiety,
	confidence, used_nrt, created_at`

// Upsert replaces the member's log for the same day, keeping the original id.
func (r *SQLiteDiaryRepo) Upsert(ctx context.Context, d *domain.DiaryLog) error {
	query := `INSERT INTO diary_logs (` + diaryColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(member_id, log_date) DO UPDATE SET
			cigarettes_smoked = excluded.cigarettes_smoked,
			craving_level = excluded.craving_level,
			mood = excluded.mood,
			anxiety = excluded.anxiety,
			confidence = excluded.confidence,
			used_nrt = excluded.used_nrt`
	_, err := r.db.ExecContext(ctx, query,
		d.ID,
		d.MemberID,
		formatDate(d.LogDate),
		nullableIntToValue(d.CigarettesSmoked),
		nullableFloatToValue(d.CravingLevel),
		nullableFloatToValue(d.Mood),
		nullableFloatToValue(d.Anxiety),
		nullableFloatToValue(d.Confidence),
		boolToInt(d.UsedNRT),
		formatTS(d.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("upserting diary log: %w", err)
	}
	return nil
}

func (r *SQLiteDiaryRepo) GetByDate(ctx context.Context, memberID string, day time.Time) (*domain.DiaryLog, error) {
	query := `SELECT ` + diaryColumns + ` FROM diary_logs WHERE member_id = ? AND log_date = ?`
	return r.getOne(r.db.QueryRowContext(ctx, query, memberID, formatDate(day)))
}

// ListByMemberRange returns logs with from <= log_date <= to, oldest first.
func (r *SQLiteDiaryRepo) ListByMemberRange(ctx context.Context, memberID string, from, to time.Time) ([]*domain.DiaryLog, error) {
	query := `SELECT ` + diaryColumns + ` FROM diary_logs
		WHERE member_id = ? AND log_date >= ? AND log_date <= ?
		ORDER BY log_date`
	rows, err := r.db.QueryContext(ctx, query, memberID, formatDate(from), formatDate(to))
	if err != nil {
		return nil, fmt.Errorf("listing diary logs: %w", err)
	}
	defer rows.Close()

	var logs []*domain.DiaryLog
	for rows.Next() {
		d, err := scanDiaryRow(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating diary logs: %w", err)
	}
	return logs, nil
}

// First returns the member's earliest log.
func (r *SQLiteDiaryRepo) First(ctx context.Context, memberID string) (*domain.DiaryLog, error) {
	query := `SELECT ` + diaryColumns + ` FROM diary_logs WHERE member_id = ? ORDER BY log_date LIMIT 1`
	return r.getOne(r.db.QueryRowContext(ctx, query, memberID))
}

func (r *SQLiteDiaryRepo) getOne(row *sql.Row) (*domain.DiaryLog, error) {
	d, err := scanDiaryRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("diary log: %w", domain.ErrNotFound)
		}
		return nil, err
	}
	return d, nil
}

func scanDiaryRow(row rowScanner) (*domain.DiaryLog, error) {
	var d domain.DiaryLog
	var logDate, createdAt string
	var cigs sql.NullInt64
	var craving, mood, anxiety, confidence sql.NullFloat64
	var usedNRT int
	if err := row.Scan(&d.ID, &d.MemberID, &logDate, &cigs, &craving, &mood, &anxiety,
		&confidence, &usedNRT, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning diary log: %w", err)
	}

	var err error
	d.CigarettesSmoked = intPtr(cigs)
	d.CravingLevel = floatPtr(craving)
	d.Mood = floatPtr(mood)
	d.Anxiety = floatPtr(anxiety)
	d.Confidence = floatPtr(confidence)
	d.UsedNRT = intToBool(usedNRT)
	if d.LogDate, err = parseDate(logDate, "log_date"); err != nil {
		return nil, err
	}
	if d.CreatedAt, err = parseTS(createdAt, "created_at"); err != nil {
		return nil, err
	}
	return &d, nil
}
