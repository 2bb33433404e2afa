package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/alexanderramin/quitplan/internal/domain"
)

// Message is one push notification ready for transport.
type Message struct {
	ReminderID   string
	AccountID    string
	Target       string
	Title        string
	Body         string
	ReminderType domain.ReminderType
	TriggerCode  domain.TriggerCode
}

// Dispatcher delivers a message to its target. A returned error fails the
// reminder permanently; dispatchers do not retry.
type Dispatcher interface {
	Send(ctx context.Context, msg Message) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, msg Message) error

func (f DispatcherFunc) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }

// LogDispatcher records each message as a structured log line instead of
// calling a push provider.
type LogDispatcher struct {
	logger *slog.Logger
	mu     sync.Mutex
	sent   int
}

// NewLogDispatcher creates a LogDispatcher. A nil logger discards output.
func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("sending %s: %w", msg.ReminderID, err)
	}
	if msg.Target == "" {
		return fmt.Errorf("sending %s: %w", msg.ReminderID, domain.ErrNoTarget)
	}
	d.logger.InfoContext(ctx, "push notification",
		"reminder_id", msg.ReminderID,
		"account_id", msg.AccountID,
		"type", string(msg.ReminderType),
		"trigger", string(msg.TriggerCode),
		"title", msg.Title,
		"body", msg.Body,
	)
	d.mu.Lock()
	d.sent++
	d.mu.Unlock()
	return nil
}

// Sent returns how many messages were delivered.
func (d *LogDispatcher) Sent() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sent
}
