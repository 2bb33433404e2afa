package testutil

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alexanderramin/quitplan/internal/notify"
)

// RecordingDispatcher records every message it is asked to send. Failures
// and delays are programmable per reminder id.
type RecordingDispatcher struct {
	mu       sync.Mutex
	sent     []notify.Message
	failures map[string]error

	// Delay holds each Send for this long, or until ctx is done.
	Delay time.Duration
	// Block, when non-nil, holds each Send until the channel is closed.
	Block chan struct{}

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func NewRecordingDispatcher() *RecordingDispatcher {
	return &RecordingDispatcher{failures: map[string]error{}}
}

// FailFor makes sends of reminderID return err.
func (d *RecordingDispatcher) FailFor(reminderID string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures[reminderID] = err
}

func (d *RecordingDispatcher) Send(ctx context.Context, msg notify.Message) error {
	n := d.inFlight.Add(1)
	defer d.inFlight.Add(-1)
	for {
		prev := d.maxInFlight.Load()
		if n <= prev || d.maxInFlight.CompareAndSwap(prev, n) {
			break
		}
	}

	if d.Block != nil {
		select {
		case <-d.Block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if d.Delay > 0 {
		select {
		case <-time.After(d.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if err, ok := d.failures[msg.ReminderID]; ok {
		return err
	}
	d.sent = append(d.sent, msg)
	return nil
}

// Sent returns a copy of the delivered messages.
func (d *RecordingDispatcher) Sent() []notify.Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]notify.Message(nil), d.sent...)
}

// MaxInFlight is the highest number of concurrent Send calls observed.
func (d *RecordingDispatcher) MaxInFlight() int {
	return int(d.maxInFlight.Load())
}
