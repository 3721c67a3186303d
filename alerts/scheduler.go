package alerts

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/amonks/bandcruise/data"
)

// A Notifier delivers alerts at their fire time.
type Notifier interface {
	Notify(ctx context.Context, a Alert) error

	// CancelAll withdraws every alert that hasn't fired yet and returns
	// them.
	CancelAll() []Alert
}

// SentLog remembers which alert messages have been handed to a Notifier.
type SentLog interface {
	HasSentAlert(ctx context.Context, message string) (bool, error)
	MarkAlertSent(ctx context.Context, sent *data.SentAlert) error
	ForgetAlerts(ctx context.Context, messages []string) error
}

// Result counts what happened to a batch of alerts.
type Result struct {
	Scheduled int
	Duplicate int
	Expired   int
}

// Scheduler enqueues alerts, each message at most once.
type Scheduler struct {
	notifier Notifier
	sent     SentLog
	now      func() time.Time

	mu sync.Mutex
}

func NewScheduler(notifier Notifier, sent SentLog) *Scheduler {
	return &Scheduler{notifier: notifier, sent: sent, now: time.Now}
}

// Reschedule replaces every pending alert with the given set. Alerts that
// were withdrawn before firing are forgotten by the sent log so that they
// can be enqueued again.
func (s *Scheduler) Reschedule(ctx context.Context, alerts []Alert) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	canceled := s.notifier.CancelAll()
	if len(canceled) > 0 {
		messages := make([]string, len(canceled))
		for i, a := range canceled {
			messages[i] = a.Message
		}
		if err := s.sent.ForgetAlerts(ctx, messages); err != nil {
			return Result{}, fmt.Errorf("error forgetting %d canceled alerts: %w", len(messages), err)
		}
	}

	return s.schedule(ctx, alerts)
}

// Schedule enqueues alerts in addition to whatever is pending.
func (s *Scheduler) Schedule(ctx context.Context, alerts []Alert) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schedule(ctx, alerts)
}

func (s *Scheduler) schedule(ctx context.Context, alerts []Alert) (Result, error) {
	var res Result
	now := s.now()
	seen := map[string]struct{}{}

	for _, a := range alerts {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("canceled: %w", err)
		}

		if !Due(a.FireAt, now) {
			res.Expired++
			continue
		}

		if _, dup := seen[a.Message]; dup {
			res.Duplicate++
			continue
		}
		seen[a.Message] = struct{}{}

		sent, err := s.sent.HasSentAlert(ctx, a.Message)
		if err != nil {
			return res, err
		}
		if sent {
			res.Duplicate++
			continue
		}

		if err := s.notifier.Notify(ctx, a); err != nil {
			log.Printf("error scheduling alert '%s': %s", a.Message, err)
			continue
		}
		if err := s.sent.MarkAlertSent(ctx, &data.SentAlert{
			ID:        a.ID,
			Message:   a.Message,
			FireAt:    a.FireAt,
			CreatedAt: now,
		}); err != nil {
			return res, err
		}
		res.Scheduled++
	}

	return res, nil
}

// MemorySentLog is a SentLog that lives only as long as the process.
type MemorySentLog struct {
	mu   sync.Mutex
	sent map[string]data.SentAlert
}

func NewMemorySentLog() *MemorySentLog {
	return &MemorySentLog{sent: map[string]data.SentAlert{}}
}

func (m *MemorySentLog) HasSentAlert(ctx context.Context, message string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, has := m.sent[message]
	return has, nil
}

func (m *MemorySentLog) MarkAlertSent(ctx context.Context, sent *data.SentAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent[sent.Message] = *sent
	return nil
}

func (m *MemorySentLog) ForgetAlerts(ctx context.Context, messages []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range messages {
		delete(m.sent, msg)
	}
	return nil
}
