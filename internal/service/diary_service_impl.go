package service

import (
	"context"
	"fmt"
	"time"

	"github.com/alexanderramin/quitplan/internal/clock"
	"github.com/alexanderramin/quitplan/internal/db"
	"github.com/alexanderramin/quitplan/internal/domain"
	"github.com/alexanderramin/quitplan/internal/repository"
	"github.com/google/uuid"
)

type diaryService struct {
	uow         db.UnitOfWork
	progression ProgressionService
	clock       clock.Clock
	observer    UseCaseObserver
}

// NewDiaryService creates the diary intake. A nil progression service stores
// logs without evaluating the member's plan.
func NewDiaryService(uow db.UnitOfWork, progression ProgressionService, c clock.Clock, observers ...UseCaseObserver) DiaryService {
	return &diaryService{
		uow:         uow,
		progression: progression,
		clock:       clock.OrSystem(c),
		observer:    useCaseObserverOrNoop(observers),
	}
}

func (s *diaryService) Record(ctx context.Context, log *domain.DiaryLog) (res *DiaryResult, err error) {
	startedAt := time.Now()
	fields := map[string]any{"member_id": log.MemberID}
	defer func() { observe(ctx, s.observer, "record-diary", startedAt, fields, err) }()

	if err := log.Validate(); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if log.LogDate.IsZero() {
		log.LogDate = now
	}
	log.LogDate = domain.DateOf(log.LogDate)
	if log.LogDate.After(domain.DateOf(now)) {
		return nil, fmt.Errorf("diary log: date %s is in the future", log.LogDate.Format(domain.DateLayout))
	}
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	log.CreatedAt = now
	fields["log_date"] = log.LogDate.Format(domain.DateLayout)

	var planID string
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		diary := repository.NewSQLiteDiaryRepo(tx)
		if err := diary.Upsert(ctx, log); err != nil {
			return err
		}
		stored, err := diary.GetByDate(ctx, log.MemberID, log.LogDate)
		if err != nil {
			return err
		}
		*log = *stored

		plan, err := repository.NewSQLitePlanRepo(tx).GetActiveByMember(ctx, log.MemberID)
		if err != nil {
			if isNotFound(err) {
				return nil
			}
			return err
		}
		planID = plan.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	res = &DiaryResult{Log: log}
	if planID == "" || s.progression == nil {
		return res, nil
	}
	res.Evaluation, err = s.progression.EvaluatePlan(ctx, planID)
	if err != nil {
		return res, fmt.Errorf("diary saved, evaluating plan %s: %w", planID, err)
	}
	fields["evaluation"] = string(res.Evaluation.Outcome)
	return res, nil
}

func (s *diaryService) List(ctx context.Context, memberID string, from, to time.Time) ([]*domain.DiaryLog, error) {
	var logs []*domain.DiaryLog
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		var err error
		logs, err = repository.NewSQLiteDiaryRepo(tx).ListByMemberRange(ctx, memberID, from, to)
		return err
	})
	return logs, err
}
