package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/quitplan/internal/clock"
	"github.com/alexanderramin/quitplan/internal/db"
	"github.com/alexanderramin/quitplan/internal/domain"
	"github.com/alexanderramin/quitplan/internal/repository"
)

type accountService struct {
	uow      db.UnitOfWork
	clock    clock.Clock
	observer UseCaseObserver
}

func NewAccountService(uow db.UnitOfWork, c clock.Clock, observers ...UseCaseObserver) AccountService {
	return &accountService{uow: uow, clock: clock.OrSystem(c), observer: useCaseObserverOrNoop(observers)}
}

func (s *accountService) SetPushToken(ctx context.Context, memberID, token string) (acct *domain.Account, err error) {
	startedAt := time.Now()
	fields := map[string]any{"member_id": memberID, "cleared": token == ""}
	defer func() { observe(ctx, s.observer, "set-push-token", startedAt, fields, err) }()

	if strings.TrimSpace(memberID) == "" {
		return nil, fmt.Errorf("account: member id is required")
	}
	var target *string
	if t := strings.TrimSpace(token); t != "" {
		target = &t
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		repo := repository.NewSQLiteAccountRepo(tx)
		if _, err := repo.Ensure(ctx, memberID, s.clock.Now()); err != nil {
			return err
		}
		if err := repo.SetPushToken(ctx, memberID, target); err != nil {
			return err
		}
		acct, err = repo.GetByMember(ctx, memberID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return acct, nil
}

func (s *accountService) GetAccount(ctx context.Context, memberID string) (*domain.Account, error) {
	var acct *domain.Account
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		var err error
		acct, err = repository.NewSQLiteAccountRepo(tx).GetByMember(ctx, memberID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return acct, nil
}
