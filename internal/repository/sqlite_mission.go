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

// SQLiteMissionRepo implements MissionRepo using a SQLite database.
type SQLiteMissionRepo struct {
	db db.DBTX
}

// NewSQLiteMissionRepo creates a new SQLiteMissionRepo.
func NewSQLiteMissionRepo(db db.DBTX) *SQLiteMissionRepo {
	return &SQLiteMissionRepo{db: db}
}

const missionColumns = `code, name, description, category, mission_type_code, phase_kind,
	day_from, day_to, position, requires_nrt, updated_at`

func (r *SQLiteMissionRepo) Upsert(ctx context.Context, m *domain.Mission) error {
	query := `INSERT INTO missions (` + missionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			category = excluded.category,
			mission_type_code = excluded.mission_type_code,
			phase_kind = excluded.phase_kind,
			day_from = excluded.day_from,
			day_to = excluded.day_to,
			position = excluded.position,
			requires_nrt = excluded.requires_nrt,
			updated_at = excluded.updated_at`
	var typeCode any
	if m.MissionTypeCode != "" {
		typeCode = m.MissionTypeCode
	}
	_, err := r.db.ExecContext(ctx, query,
		m.Code,
		m.Name,
		m.Description,
		m.Category,
		typeCode,
		string(m.PhaseKind),
		m.DayFrom,
		m.DayTo,
		m.Position,
		boolToInt(m.RequiresNRT),
		formatTS(m.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upserting mission %s: %w", m.Code, err)
	}
	return nil
}

func (r *SQLiteMissionRepo) GetByCode(ctx context.Context, code string) (*domain.Mission, error) {
	query := `SELECT ` + missionColumns + ` FROM missions WHERE code = ?`
	m, err := scanMissionRow(r.db.QueryRowContext(ctx, query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("mission %s: %w", code, domain.ErrNotFound)
		}
		return nil, err
	}
	return m, nil
}

func (r *SQLiteMissionRepo) List(ctx context.Context) ([]domain.Mission, error) {
	query := `SELECT ` + missionColumns + ` FROM missions ORDER BY phase_kind, position, code`
	return r.list(ctx, query)
}

func (r *SQLiteMissionRepo) ListByPhaseKind(ctx context.Context, kind domain.PhaseKind) ([]domain.Mission, error) {
	query := `SELECT ` + missionColumns + ` FROM missions WHERE phase_kind = ? ORDER BY position, code`
	return r.list(ctx, query, string(kind))
}

func (r *SQLiteMissionRepo) list(ctx context.Context, query string, args ...any) ([]domain.Mission, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing missions: %w", err)
	}
	defer rows.Close()

	var missions []domain.Mission
	for rows.Next() {
		m, err := scanMissionRow(rows)
		if err != nil {
			return nil, err
		}
		missions = append(missions, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating missions: %w", err)
	}
	return missions, nil
}

func scanMissionRow(row rowScanner) (*domain.Mission, error) {
	var m domain.Mission
	var typeCode sql.NullString
	var kind, updatedAt string
	var requiresNRT int
	if err := row.Scan(&m.Code, &m.Name, &m.Description, &m.Category, &typeCode, &kind,
		&m.DayFrom, &m.DayTo, &m.Position, &requiresNRT, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning mission: %w", err)
	}
	var err error
	m.MissionTypeCode = typeCode.String
	m.PhaseKind = domain.PhaseKind(kind)
	m.RequiresNRT = intToBool(requiresNRT)
	if m.UpdatedAt, err = parseTS(updatedAt, "updated_at"); err != nil {
		return nil, err
	}
	return &m, nil
}

// SQLiteMissionTypeRepo implements MissionTypeRepo using a SQLite database.
type SQLiteMissionTypeRepo struct {
	db db.DBTX
}

// NewSQLiteMissionTypeRepo creates a new SQLiteMissionTypeRepo.
func NewSQLiteMissionTypeRepo(db db.DBTX) *SQLiteMissionTypeRepo {
	return &SQLiteMissionTypeRepo{db: db}
}

func (r *SQLiteMissionTypeRepo) Upsert(ctx context.Context, mt *domain.MissionType) error {
	query := `INSERT INTO mission_types (code, name, description) VALUES (?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET name = excluded.name, description = excluded.description`
	if _, err := r.db.ExecContext(ctx, query, mt.Code, mt.Name, mt.Description); err != nil {
		return fmt.Errorf("upserting mission type %s: %w", mt.Code, err)
	}
	return nil
}

func (r *SQLiteMissionTypeRepo) List(ctx context.Context) ([]domain.MissionType, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT code, name, description FROM mission_types ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("listing mission types: %w", err)
	}
	defer rows.Close()

	var types []domain.MissionType
	for rows.Next() {
		var mt domain.MissionType
		if err := rows.Scan(&mt.Code, &mt.Name, &mt.Description); err != nil {
			return nil, fmt.Errorf("scanning mission type: %w", err)
		}
		types = append(types, mt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating mission types: %w", err)
	}
	return types, nil
}

// SQLiteMissionInstanceRepo implements MissionInstanceRepo using a SQLite database.
type SQLiteMissionInstanceRepo struct {
	db db.DBTX
}

// NewSQLiteMissionInstanceRepo creates a new SQLiteMissionInstanceRepo.
func NewSQLiteMissionInstanceRepo(db db.DBTX) *SQLiteMissionInstanceRepo {
	return &SQLiteMissionInstanceRepo{db: db}
}

// instanceSelect joins the template for display fields. A template removed
// from the catalog leaves the instance readable with empty text.
const instanceSelect = `SELECT pdm.id, pdm.phase_detail_id, pdm.mission_code, pdm.position, pdm.status,
	pdm.completed_at, pdm.notes, pdm.triggers, pdm.created_at,
	COALESCE(m.name, pdm.mission_code), COALESCE(m.description, '')
	FROM phase_detail_missions pdm
	LEFT JOIN missions m ON m.code = pdm.mission_code`

// CreateBatch inserts instances, ignoring ids that already exist so that a
// concurrent materialisation of the same day converges.
func (r *SQLiteMissionInstanceRepo) CreateBatch(ctx context.Context, missions []*domain.PhaseDetailMission) error {
	query := `INSERT INTO phase_detail_missions
		(id, phase_detail_id, mission_code, position, status, completed_at, notes, triggers, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`
	for _, m := range missions {
		triggers, err := encodeList(m.Triggers)
		if err != nil {
			return err
		}
		_, err = r.db.ExecContext(ctx, query,
			m.ID,
			m.PhaseDetailID,
			m.MissionCode,
			m.Position,
			string(m.Status),
			nullableTimeToString(m.CompletedAt, time.RFC3339),
			m.Notes,
			triggers,
			formatTS(m.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("inserting mission instance %s: %w", m.MissionCode, err)
		}
	}
	return nil
}

func (r *SQLiteMissionInstanceRepo) GetByID(ctx context.Context, id string) (*domain.PhaseDetailMission, error) {
	m, err := scanInstanceRow(r.db.QueryRowContext(ctx, instanceSelect+` WHERE pdm.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("mission instance: %w", domain.ErrNotFound)
		}
		return nil, err
	}
	return m, nil
}

func (r *SQLiteMissionInstanceRepo) GetContext(ctx context.Context, id string) (*MissionContext, error) {
	query := `SELECT d.id, d.attempt_id, d.day_index, d.date, d.phase_id, p.plan_id
		FROM phase_detail_missions pdm
		JOIN phase_details d ON d.id = pdm.phase_detail_id
		JOIN phases p ON p.id = d.phase_id
		WHERE pdm.id = ?`
	var mc MissionContext
	var date string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&mc.DetailID, &mc.AttemptID, &mc.DayIndex, &date, &mc.PhaseID, &mc.PlanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("mission instance %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("loading mission context: %w", err)
	}
	if mc.Date, err = parseDate(date, "date"); err != nil {
		return nil, err
	}
	if mc.Mission, err = r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return &mc, nil
}

func (r *SQLiteMissionInstanceRepo) ListByDetail(ctx context.Context, detailID string) ([]*domain.PhaseDetailMission, error) {
	rows, err := r.db.QueryContext(ctx, instanceSelect+` WHERE pdm.phase_detail_id = ? ORDER BY pdm.position, pdm.mission_code`, detailID)
	if err != nil {
		return nil, fmt.Errorf("listing mission instances: %w", err)
	}
	defer rows.Close()

	var missions []*domain.PhaseDetailMission
	for rows.Next() {
		m, err := scanInstanceRow(rows)
		if err != nil {
			return nil, err
		}
		missions = append(missions, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating mission instances: %w", err)
	}
	return missions, nil
}

func (r *SQLiteMissionInstanceRepo) ListHistoryByPhase(ctx context.Context, phaseID string) ([]MissionHistoryRow, error) {
	query := `SELECT pdm.id, pdm.phase_detail_id, pdm.mission_code, pdm.position, pdm.status,
		pdm.completed_at, pdm.notes, pdm.triggers, pdm.created_at,
		COALESCE(m.name, pdm.mission_code), COALESCE(m.description, ''),
		a.id, a.attempt_no, d.day_index, d.date
		FROM phase_detail_missions pdm
		JOIN phase_details d ON d.id = pdm.phase_detail_id
		JOIN phase_attempts a ON a.id = d.attempt_id
		LEFT JOIN missions m ON m.code = pdm.mission_code
		WHERE d.phase_id = ?
		ORDER BY a.attempt_no, d.day_index, pdm.position, pdm.mission_code`
	rows, err := r.db.QueryContext(ctx, query, phaseID)
	if err != nil {
		return nil, fmt.Errorf("listing mission history: %w", err)
	}
	defer rows.Close()

	var history []MissionHistoryRow
	for rows.Next() {
		var h MissionHistoryRow
		var date string
		m, err := scanInstanceRow(rows, &h.AttemptID, &h.AttemptNo, &h.DayIndex, &date)
		if err != nil {
			return nil, err
		}
		h.Mission = m
		if h.Date, err = parseDate(date, "date"); err != nil {
			return nil, err
		}
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating mission history: %w", err)
	}
	return history, nil
}

// CountByAttempt tallies the attempt's instances on days up to and including through.
func (r *SQLiteMissionInstanceRepo) CountByAttempt(ctx context.Context, attemptID string, through time.Time) (MissionCounts, error) {
	query := `SELECT
			COALESCE(SUM(CASE WHEN pdm.status = 'completed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN pdm.status IN ('skipped','failed') THEN 1 ELSE 0 END), 0),
			COUNT(pdm.id)
		FROM phase_detail_missions pdm
		JOIN phase_details d ON d.id = pdm.phase_detail_id
		WHERE d.attempt_id = ? AND d.date <= ?`
	var c MissionCounts
	if err := r.db.QueryRowContext(ctx, query, attemptID, formatDate(through)).Scan(&c.Completed, &c.Missed, &c.Total); err != nil {
		return MissionCounts{}, fmt.Errorf("counting missions: %w", err)
	}
	return c, nil
}

// RecordOutcome persists a terminal outcome only while the row is still
// pending. It reports false when the instance was already recorded.
func (r *SQLiteMissionInstanceRepo) RecordOutcome(ctx context.Context, m *domain.PhaseDetailMission) (bool, error) {
	triggers, err := encodeList(m.Triggers)
	if err != nil {
		return false, err
	}
	query := `UPDATE phase_detail_missions SET status = ?, completed_at = ?, notes = ?, triggers = ?
		WHERE id = ? AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, query,
		string(m.Status),
		nullableTimeToString(m.CompletedAt, time.RFC3339),
		m.Notes,
		triggers,
		m.ID,
	)
	if err != nil {
		return false, fmt.Errorf("recording mission outcome: %w", err)
	}
	return rowsAffected(res)
}

func scanInstanceRow(row rowScanner, extra ...any) (*domain.PhaseDetailMission, error) {
	var m domain.PhaseDetailMission
	var status, triggers, createdAt string
	var completedAt sql.NullString
	dest := []any{&m.ID, &m.PhaseDetailID, &m.MissionCode, &m.Position, &status,
		&completedAt, &m.Notes, &triggers, &createdAt, &m.Name, &m.Description}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning mission instance: %w", err)
	}

	var err error
	m.Status = domain.MissionStatus(status)
	m.CompletedAt = parseNullableTime(completedAt, time.RFC3339)
	if m.Triggers, err = decodeList(triggers); err != nil {
		return nil, err
	}
	if m.CreatedAt, err = parseTS(createdAt, "created_at"); err != nil {
		return nil, err
	}
	return &m, nil
}
