package alerts

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/amonks/bandcruise/data"
	"github.com/amonks/bandcruise/prefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2025, 1, 30, 22, 0, 0, 0, time.UTC)

func show(band string, at time.Time) data.Event {
	return data.Event{Band: band, Start: at.Unix(), Location: "Pool Deck", Type: data.Show}
}

func TestFireTime(t *testing.T) {
	ev := show("Amorphis", start)
	assert.Equal(t, start.Add(-10*time.Minute), FireTime(ev, 10*time.Minute))

	assert.True(t, Due(start, start.Add(-time.Second)))
	assert.False(t, Due(start, start))
	assert.False(t, Due(start, start.Add(time.Second)))
}

func TestShouldAlert(t *testing.T) {
	defaults := prefs.Memory(nil)

	for _, tc := range []struct {
		name     string
		ev       data.Event
		priority data.Priority
		attended data.AttendanceStatus
		prefs    *prefs.Store
		want     bool
	}{
		{"must-see show", show("a", start), data.MustSee, "", defaults, true},
		{"might-see show", show("a", start), data.MightSee, "", defaults, true},
		{"unranked show", show("a", start), data.Unknown, "", defaults, false},
		{"wont-see show", show("a", start), data.WontSee, "", defaults, false},
		{"shows off", show("a", start), data.MustSee, "", prefs.Memory(map[string]string{prefs.AlertForShows: "false"}), false},
		{"might-see off", show("a", start), data.MightSee, "", prefs.Memory(map[string]string{prefs.MightSeeAlert: "false"}), false},
		{"meet and greet off by default", data.Event{Type: data.MeetAndGreet}, data.MustSee, "", defaults, false},
		{"meet and greet on", data.Event{Type: data.MeetAndGreet}, data.MustSee, "", prefs.Memory(map[string]string{prefs.AlertForMandG: "true"}), true},
		{"special ignores priority", data.Event{Type: data.SpecialEvent}, data.Unknown, "", defaults, true},
		{"unofficial", data.Event{Type: data.UnofficialEvent}, data.Unknown, "", defaults, true},
		{"cruiser organized off", data.Event{Type: data.CruiserOrganized}, data.Unknown, "", prefs.Memory(map[string]string{prefs.AlertForUnofficial: "false"}), false},
		{"attending overrides", show("a", start), data.Unknown, data.WillAttend, defaults, true},
		{"only attended, not attending", show("a", start), data.MustSee, data.SawNone, prefs.Memory(map[string]string{prefs.OnlyAlertForAttended: "true"}), false},
		{"only attended, attending", data.Event{Type: data.Clinic}, data.Unknown, data.PartiallyAttended, prefs.Memory(map[string]string{prefs.OnlyAlertForAttended: "true"}), true},
		{"unknown type", data.Event{Type: "Karaoke"}, data.MustSee, "", defaults, false},
	} {
		assert.Equal(t, tc.want, ShouldAlert(tc.ev, tc.priority, tc.attended, tc.prefs), tc.name)
	}
}

func TestPlan(t *testing.T) {
	sched := data.Schedule{}
	sched.Add(show("Amorphis", start))
	sched.Add(show("Amorphis", start.Add(-time.Hour)))      // already too late
	sched.Add(show("Amorphis", start.Add(-50*time.Minute))) // fires exactly now
	sched.Add(show("Nobody Cares", start))
	sched.Add(data.Event{Band: "Crew", Start: start.Add(time.Hour).Unix(), Location: "Atrium", Type: data.SpecialEvent})

	p := Planner{Prefs: prefs.Memory(map[string]string{prefs.MinBeforeAlert: "15"}), Location: time.UTC}
	now := start.Add(-65 * time.Minute)

	plan := p.Plan(sched, map[string]data.Priority{"Amorphis": data.MustSee}, nil, now)
	require.Len(t, plan, 2)

	assert.Equal(t, start.Add(-15*time.Minute), plan[0].FireAt)
	assert.Equal(t, "Amorphis will be playing the Pool Deck in 15 minutes (Thu 22:00)", plan[0].Message)
	assert.Equal(t, "default", plan[0].Sound)
	assert.NotEmpty(t, plan[0].ID)

	assert.Equal(t, "Crew Special Event is being held at the Atrium in 15 minutes (Thu 23:00)", plan[1].Message)
}

type fakeNotifier struct {
	mu      sync.Mutex
	pending []Alert
}

func (f *fakeNotifier) Notify(ctx context.Context, a Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, a)
	return nil
}

func (f *fakeNotifier) CancelAll() []Alert {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.pending
	f.pending = nil
	return out
}

func TestSchedulerDedupes(t *testing.T) {
	n := &fakeNotifier{}
	s := NewScheduler(n, NewMemorySentLog())
	s.now = func() time.Time { return start.Add(-time.Hour) }
	ctx := context.Background()

	a := Alert{ID: "1", FireAt: start.Add(-10 * time.Minute), Message: "Amorphis will be playing"}
	same := Alert{ID: "2", FireAt: start.Add(-10 * time.Minute), Message: "Amorphis will be playing"}
	late := Alert{ID: "3", FireAt: start.Add(-2 * time.Hour), Message: "too late"}

	res, err := s.Schedule(ctx, []Alert{a, same, late})
	require.NoError(t, err)
	assert.Equal(t, Result{Scheduled: 1, Duplicate: 1, Expired: 1}, res)

	res, err = s.Schedule(ctx, []Alert{a})
	require.NoError(t, err)
	assert.Equal(t, Result{Duplicate: 1}, res)
	assert.Len(t, n.pending, 1)
}

func TestRescheduleReenqueuesWithdrawn(t *testing.T) {
	n := &fakeNotifier{}
	sent := NewMemorySentLog()
	s := NewScheduler(n, sent)
	s.now = func() time.Time { return start.Add(-time.Hour) }
	ctx := context.Background()

	a := Alert{ID: "1", FireAt: start.Add(-10 * time.Minute), Message: "a"}
	b := Alert{ID: "2", FireAt: start.Add(-5 * time.Minute), Message: "b"}

	_, err := s.Schedule(ctx, []Alert{a, b})
	require.NoError(t, err)

	res, err := s.Reschedule(ctx, []Alert{a})
	require.NoError(t, err)
	assert.Equal(t, Result{Scheduled: 1}, res)
	assert.Equal(t, []Alert{a}, n.pending)

	hasB, err := sent.HasSentAlert(ctx, "b")
	require.NoError(t, err)
	assert.False(t, hasB)
}

func TestTimerNotifier(t *testing.T) {
	delivered := make(chan Alert, 4)
	n := NewTimerNotifier(func(a Alert) { delivered <- a })

	soon := Alert{ID: "soon", FireAt: time.Now().Add(20 * time.Millisecond), Message: "soon"}
	later := Alert{ID: "later", FireAt: time.Now().Add(time.Hour), Message: "later"}
	require.NoError(t, n.Notify(context.Background(), later))
	require.NoError(t, n.Notify(context.Background(), soon))
	assert.Equal(t, []Alert{soon, later}, n.Pending())

	select {
	case a := <-delivered:
		assert.Equal(t, "soon", a.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("alert never fired")
	}

	assert.Equal(t, []Alert{later}, n.CancelAll())
	assert.Empty(t, n.Pending())

	err := n.Notify(context.Background(), Alert{FireAt: time.Now().Add(-time.Minute), Message: "past"})
	assert.Error(t, err)
}

func TestCancelAllLetsFiringAlertThrough(t *testing.T) {
	delivered := make(chan Alert, 1)
	n := NewTimerNotifier(func(a Alert) { delivered <- a })

	a := Alert{ID: "due", FireAt: time.Now().Add(10 * time.Millisecond), Message: "due"}
	require.NoError(t, n.Notify(context.Background(), a))

	// the timer goes off while the lock is held, so its delivery is waiting
	// on the lock when the cancel happens
	n.mu.Lock()
	time.Sleep(100 * time.Millisecond)
	canceled := n.cancelAll()
	n.mu.Unlock()
	assert.Empty(t, canceled)

	select {
	case got := <-delivered:
		assert.Equal(t, "due", got.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("alert was dropped")
	}
	assert.Empty(t, n.Pending())
}
