package alerts

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// TimerNotifier fires alerts from in-process timers.
type TimerNotifier struct {
	deliver func(Alert)
	now     func() time.Time

	mu      sync.Mutex
	pending map[string]pendingAlert
	seq     uint64
}

type pendingAlert struct {
	alert Alert
	timer *time.Timer

	// seq tells a firing timer apart from one that replaced it.
	seq uint64
}

// NewTimerNotifier calls deliver for each alert at its fire time, on its own
// goroutine.
func NewTimerNotifier(deliver func(Alert)) *TimerNotifier {
	return &TimerNotifier{
		deliver: deliver,
		now:     time.Now,
		pending: map[string]pendingAlert{},
	}
}

// LogDelivery prints an alert the way a terminal user would want to see it.
func LogDelivery(a Alert) {
	log.Printf("alert [%s]: %s", a.Sound, a.Message)
}

func (n *TimerNotifier) Notify(ctx context.Context, a Alert) error {
	delay := a.FireAt.Sub(n.now())
	if delay <= 0 {
		return fmt.Errorf("alert '%s' fire time %s has passed", a.Message, a.FireAt.Format(time.DateTime))
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if old, has := n.pending[a.ID]; has {
		old.timer.Stop()
	}
	n.seq++
	seq := n.seq
	n.pending[a.ID] = pendingAlert{
		alert: a,
		timer: time.AfterFunc(delay, func() { n.fire(a.ID, seq) }),
		seq:   seq,
	}
	return nil
}

func (n *TimerNotifier) fire(id string, seq uint64) {
	n.mu.Lock()
	p, has := n.pending[id]
	if has && p.seq == seq {
		delete(n.pending, id)
	}
	n.mu.Unlock()

	if has && p.seq == seq {
		n.deliver(p.alert)
	}
}

// CancelAll withdraws the alerts whose timers it could stop. An alert whose
// timer has already gone off stays pending until it is delivered, and is not
// returned.
func (n *TimerNotifier) CancelAll() []Alert {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cancelAll()
}

// cancelAll must be called with n.mu held.
func (n *TimerNotifier) cancelAll() []Alert {
	var canceled []Alert
	for id, p := range n.pending {
		if p.timer.Stop() {
			canceled = append(canceled, p.alert)
			delete(n.pending, id)
		}
	}
	return canceled
}

// Pending returns the alerts that haven't fired, soonest first.
func (n *TimerNotifier) Pending() []Alert {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]Alert, 0, len(n.pending))
	for _, p := range n.pending {
		out = append(out, p.alert)
	}
	sortByFireTime(out)
	return out
}
