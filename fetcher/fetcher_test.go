package fetcher_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amonks/bandcruise/alerts"
	"github.com/amonks/bandcruise/data"
	"github.com/amonks/bandcruise/db"
	"github.com/amonks/bandcruise/fetcher"
	"github.com/amonks/bandcruise/images"
	"github.com/amonks/bandcruise/prefs"
	"github.com/amonks/bandcruise/reachability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lineupPage = `<html><body>
<a href="/bands/amorphis/" title="Amorphis"><img src="/img/amorphis.jpg"></a>
<a href="/bands/crew/" title="Crew"></a>
</body></html>`

type site struct {
	*httptest.Server
	down  atomic.Bool
	start time.Time
}

func newSite(t *testing.T) *site {
	s := &site{start: time.Now().Add(3 * time.Hour).UTC().Truncate(time.Minute)}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.down.Load() {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		switch r.URL.Path {
		case "/bands/":
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, lineupPage)
		case "/schedule.csv":
			w.Header().Set("Content-Type", "text/csv")
			crew := s.start.Add(2 * time.Hour)
			fmt.Fprintln(w, "Band,Location,Date,Day,Start Time,End Time,Type,Description URL,Notes,ImageURL")
			fmt.Fprintf(w, "Amorphis,Pool Deck,%s,Day 1,%s,%s,Show,,,%s/img/amorphis-event.jpg\n",
				s.start.Format("1/2/2006"), s.start.Format("15:04"), s.start.Add(time.Hour).Format("15:04"), s.URL)
			fmt.Fprintf(w, "Crew,Atrium,%s,Day 1,%s,%s,Special Event,,,%s/img/crew.jpg\n",
				crew.Format("1/2/2006"), crew.Format("15:04"), crew.Add(time.Hour).Format("15:04"), s.URL)
		default:
			w.Header().Set("Content-Type", "image/jpeg")
			fmt.Fprint(w, "jpeg")
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func newFetcher(t *testing.T, s *site, online *atomic.Bool) (*fetcher.Fetcher, *alerts.TimerNotifier) {
	dir := t.TempDir()
	d, err := db.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	notifier := alerts.NewTimerNotifier(func(alerts.Alert) {})
	t.Cleanup(func() { notifier.CancelAll() })

	probe := func(ctx context.Context) error {
		if !online.Load() {
			return errors.New("offline")
		}
		return nil
	}

	return &fetcher.Fetcher{
		DB:          d,
		Client:      s.Client(),
		Network:     reachability.New(probe, 0, time.Second),
		Images:      images.NewList(filepath.Join(dir, "combinedImageList.json")),
		Planner:     alerts.Planner{Prefs: prefs.Memory(nil), Location: time.UTC},
		Scheduler:   alerts.NewScheduler(notifier, d),
		LineupURL:   s.URL + "/bands/",
		ScheduleURL: s.URL + "/schedule.csv",
		Location:    time.UTC,
	}, notifier
}

func TestRefresh(t *testing.T) {
	s := newSite(t)
	var online atomic.Bool
	online.Store(true)
	f, notifier := newFetcher(t, s, &online)
	ctx := context.Background()

	require.NoError(t, f.DB.SetPriority(ctx, "Amorphis", data.MustSee))

	report, err := f.Refresh(ctx)
	require.NoError(t, err)
	assert.NoError(t, report.LineupErr)
	assert.NoError(t, report.ScheduleErr)
	assert.True(t, report.Online)
	assert.Equal(t, 2, report.Bands)
	assert.Equal(t, 2, report.Events)

	// the lineup picture beats the event picture; Crew only has an event one
	assert.Equal(t, map[string]string{
		"Amorphis": s.URL + "/img/amorphis.jpg",
		"Crew":     s.URL + "/img/crew.jpg",
	}, f.Images.All())

	assert.Equal(t, 2, report.Planned)
	assert.Equal(t, alerts.Result{Scheduled: 2}, report.Alerts)
	pending := notifier.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, s.start.Add(-10*time.Minute), pending[0].FireAt.UTC())

	// rebuilt wholesale: the same alerts are withdrawn and enqueued again,
	// never doubled
	report, err = f.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, alerts.Result{Scheduled: 2}, report.Alerts)
	assert.Len(t, notifier.Pending(), 2)
}

func TestRefreshFallsBackToCache(t *testing.T) {
	s := newSite(t)
	var online atomic.Bool
	online.Store(true)
	f, _ := newFetcher(t, s, &online)
	ctx := context.Background()

	_, err := f.Refresh(ctx)
	require.NoError(t, err)

	s.down.Store(true)
	report, err := f.Refresh(ctx)
	require.NoError(t, err)
	assert.Error(t, report.LineupErr)
	assert.Error(t, report.ScheduleErr)
	assert.Equal(t, 2, report.Bands)
	assert.Equal(t, 2, report.Events)
	assert.Equal(t, 2, report.Images)
}

func TestRefreshOffline(t *testing.T) {
	s := newSite(t)
	var online atomic.Bool
	f, _ := newFetcher(t, s, &online)

	report, err := f.Refresh(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Online)
	assert.Equal(t, 0, report.Bands)
	assert.Contains(t, report.String(), "offline")
}

func TestUpcoming(t *testing.T) {
	s := newSite(t)
	var online atomic.Bool
	online.Store(true)
	f, _ := newFetcher(t, s, &online)
	ctx := context.Background()
	_, err := f.Refresh(ctx)
	require.NoError(t, err)

	f.Now = func() time.Time { return s.start.Add(90 * time.Minute) }
	upcoming, err := f.Upcoming(ctx, true)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, "Crew", upcoming[0].Band)

	all, err := f.Upcoming(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRefreshWithoutScheduler(t *testing.T) {
	s := newSite(t)
	var online atomic.Bool
	online.Store(true)
	f, notifier := newFetcher(t, s, &online)
	f.Scheduler = nil
	ctx := context.Background()
	require.NoError(t, f.DB.SetPriority(ctx, "Amorphis", data.MustSee))

	report, err := f.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Planned)
	assert.Equal(t, alerts.Result{}, report.Alerts)
	assert.Empty(t, notifier.Pending())

	sent, err := f.DB.CountSentAlerts(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)
}
