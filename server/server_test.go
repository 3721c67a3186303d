package server_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/amonks/bandcruise/alerts"
	"github.com/amonks/bandcruise/data"
	"github.com/amonks/bandcruise/db"
	"github.com/amonks/bandcruise/fetcher"
	"github.com/amonks/bandcruise/images"
	"github.com/amonks/bandcruise/prefs"
	"github.com/amonks/bandcruise/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*httptest.Server, *fetcher.Fetcher, *alerts.TimerNotifier, data.Event) {
	dir := t.TempDir()
	d, err := db.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	notifier := alerts.NewTimerNotifier(func(alerts.Alert) {})
	t.Cleanup(func() { notifier.CancelAll() })

	ctx := context.Background()
	start := time.Now().Add(2 * time.Hour).Truncate(time.Minute)
	ev := data.Event{
		Band:     "Amorphis",
		Start:    start.Unix(),
		End:      start.Add(time.Hour).Unix(),
		Location: "Pool Deck",
		Type:     data.Show,
		ImageURL: "https://example.com/event.jpg",
	}
	sched := data.Schedule{}
	sched.Add(ev)
	require.NoError(t, d.ReplaceSchedule(ctx, sched))
	require.NoError(t, d.ReplaceLineup(ctx, []data.Band{{Name: "Amorphis", ImageURL: "https://example.com/amorphis.jpg"}}))

	f := &fetcher.Fetcher{
		DB:        d,
		Images:    images.NewList(filepath.Join(dir, "combinedImageList.json")),
		Planner:   alerts.Planner{Prefs: prefs.Memory(map[string]string{"alertForShows": "true"}), Location: time.UTC},
		Scheduler: alerts.NewScheduler(notifier, d),
	}
	_, err = f.RebuildImages(ctx)
	require.NoError(t, err)

	srv := httptest.NewServer(server.New(f))
	t.Cleanup(srv.Close)
	return srv, f, notifier, ev
}

func get(t *testing.T, url string, v any) {
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func post(t *testing.T, url, body string) *http.Response {
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestReads(t *testing.T) {
	srv, _, _, ev := setup(t)

	var bands []server.Band
	get(t, srv.URL+"/bands", &bands)
	require.Len(t, bands, 1)
	assert.Equal(t, "Amorphis", bands[0].Name)
	assert.Equal(t, "unknown", bands[0].Priority)

	var events []server.Event
	get(t, srv.URL+"/schedule?hideExpired=true", &events)
	require.Len(t, events, 1)
	assert.Equal(t, ev.AttendanceKey(), events[0].Key)

	var imgs map[string]string
	get(t, srv.URL+"/images", &imgs)
	assert.Equal(t, map[string]string{"Amorphis": "https://example.com/amorphis.jpg"}, imgs)

	var st server.Status
	get(t, srv.URL+"/status", &st)
	assert.Equal(t, server.Status{Bands: 1, Events: 1, Images: 1}, st)
}

func TestImageRedirectsWithoutCache(t *testing.T) {
	srv, _, _, _ := setup(t)
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}

	resp, err := client.Get(srv.URL + "/images/Amorphis")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "https://example.com/amorphis.jpg", resp.Header.Get("Location"))

	resp, err = client.Get(srv.URL + "/images/Nobody")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSetPriorityReschedules(t *testing.T) {
	srv, f, notifier, _ := setup(t)
	assert.Empty(t, notifier.Pending())

	resp := post(t, srv.URL+"/priority", `{"band": "Amorphis", "priority": "must"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	p, err := f.DB.Priority(context.Background(), "Amorphis")
	require.NoError(t, err)
	assert.Equal(t, data.MustSee, p)
	assert.Len(t, notifier.Pending(), 1)

	resp = post(t, srv.URL+"/priority", `{"band": "Amorphis", "priority": "sometimes"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSetAttendance(t *testing.T) {
	srv, f, notifier, ev := setup(t)

	body, err := json.Marshal(map[string]any{"band": ev.Band, "start": ev.Start, "status": "will"})
	require.NoError(t, err)
	resp := post(t, srv.URL+"/attendance", string(body))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	attendance, err := f.DB.Attendance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, data.WillAttend, attendance[ev.AttendanceKey()])
	assert.Len(t, notifier.Pending(), 1)

	resp = post(t, srv.URL+"/attendance", `{"band": "Nobody", "start": 1, "status": "will"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestScheduleWindow(t *testing.T) {
	srv, _, _, ev := setup(t)

	var events []server.Event
	get(t, fmt.Sprintf("%s/schedule?from=%d", srv.URL, ev.Start), &events)
	assert.Len(t, events, 1)

	get(t, fmt.Sprintf("%s/schedule?from=%d&to=%d", srv.URL, ev.Start-60, ev.Start), &events)
	assert.Empty(t, events)

	get(t, fmt.Sprintf("%s/schedule?to=%d", srv.URL, ev.Start+1), &events)
	assert.Len(t, events, 1)

	resp, err := http.Get(srv.URL + "/schedule?from=soon")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
