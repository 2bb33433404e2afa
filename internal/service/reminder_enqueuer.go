package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alexanderramin/quitplan/internal/clock"
	"github.com/alexanderramin/quitplan/internal/db"
	"github.com/alexanderramin/quitplan/internal/domain"
	"github.com/alexanderramin/quitplan/internal/repository"
	"github.com/google/uuid"
)

type reminderEnqueuer struct {
	clock clock.Clock
}

// NewReminderEnqueuer creates the enqueuer. A nil clock uses the system clock.
func NewReminderEnqueuer(c clock.Clock) ReminderEnqueuer {
	return &reminderEnqueuer{clock: clock.OrSystem(c)}
}

func (e *reminderEnqueuer) Enqueue(ctx context.Context, tx db.DBTX, req EnqueueRequest) (*domain.ReminderEntry, error) {
	if req.AccountID == "" {
		return nil, fmt.Errorf("enqueue %s: account id is required", req.Selector)
	}

	tmpl, err := repository.NewSQLiteReminderTemplateRepo(tx).Find(ctx, req.Selector)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", req.Selector, domain.ErrTemplateNotFound)
		}
		return nil, err
	}

	content, err := RenderTemplate(tmpl.Content, req.Context)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", req.Selector, err)
	}

	entry := &domain.ReminderEntry{
		ID:           uuid.New().String(),
		AccountID:    req.AccountID,
		PlanID:       req.PlanID,
		PhaseID:      req.PhaseID,
		TemplateID:   &tmpl.ID,
		ReminderType: req.Selector.ReminderType,
		TriggerCode:  req.Selector.TriggerCode,
		ScheduledAt:  req.ScheduledAt.UTC(),
		Status:       domain.ReminderPending,
		Content:      content,
		CreatedAt:    e.clock.Now(),
	}
	if err := repository.NewSQLiteReminderQueueRepo(tx).Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// RenderTemplate replaces every {key} in content with vars[key]. A key
// without a value or an unclosed brace fails with domain.ErrTemplateRender.
func RenderTemplate(content string, vars map[string]string) (string, error) {
	var out strings.Builder
	i := 0
	for i < len(content) {
		if content[i] != '{' {
			out.WriteByte(content[i])
			i++
			continue
		}
		end := strings.IndexByte(content[i+1:], '}')
		if end < 0 {
			return "", fmt.Errorf("unmatched '{' at position %d: %w", i, domain.ErrTemplateRender)
		}
		key := strings.TrimSpace(content[i+1 : i+1+end])
		val, ok := vars[key]
		if !ok {
			return "", fmt.Errorf("no value for {%s}: %w", key, domain.ErrTemplateRender)
		}
		out.WriteString(val)
		i += end + 2
	}
	return out.String(), nil
}

func selectorFor(kind domain.PhaseKind, trigger domain.TriggerCode) domain.ReminderSelector {
	return domain.ReminderSelector{
		PhaseKind:    kind,
		ReminderType: trigger.ReminderType(),
		TriggerCode:  trigger,
	}
}

// isTemplateFailure reports errors that leave the triggering event intact.
func isTemplateFailure(err error) bool {
	return errors.Is(err, domain.ErrTemplateNotFound) || errors.Is(err, domain.ErrTemplateRender)
}
