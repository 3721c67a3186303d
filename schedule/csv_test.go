package schedule_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/amonks/bandcruise/data"
	"github.com/amonks/bandcruise/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feed = `Band,Location,Date,Day,Start Time,End Time,Type,Description URL,Notes,ImageURL
Amorphis,Pool Deck,1/30/2025,Day 1,22:30,23:45,Show,,,https://example.com/a.jpg
Amorphis,Lounge,1/31/2025,Day 2,14:00,14:30,Meet & Greet,,bring vinyl,
Dark Tranquillity,Theater,1/31/2025,Day 2,23:30,0:45,show,,,
,Theater,1/31/2025,Day 2,10:00,11:00,Show,,,
Broken,Theater,someday,Day 2,10:00,11:00,Show,,,
`

func TestParse(t *testing.T) {
	sched, err := schedule.Parse(strings.NewReader(feed), time.UTC)
	require.NoError(t, err)
	require.Equal(t, 3, sched.Len())

	show := sched["Amorphis"][time.Date(2025, 1, 30, 22, 30, 0, 0, time.UTC).Unix()]
	assert.Equal(t, data.Show, show.Type)
	assert.Equal(t, "Pool Deck", show.Location)
	assert.Equal(t, "Day 1", show.Day)
	assert.Equal(t, "https://example.com/a.jpg", show.ImageURL)
	assert.Equal(t, time.Date(2025, 1, 30, 23, 45, 0, 0, time.UTC).Unix(), show.End)

	mg := sched["Amorphis"][time.Date(2025, 1, 31, 14, 0, 0, 0, time.UTC).Unix()]
	assert.Equal(t, data.MeetAndGreet, mg.Type)
	assert.Equal(t, "bring vinyl", mg.Notes)

	late := sched["Dark Tranquillity"][time.Date(2025, 1, 31, 23, 30, 0, 0, time.UTC).Unix()]
	assert.Equal(t, data.Show, late.Type)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 45, 0, 0, time.UTC).Unix(), late.End)

	_, hasBroken := sched["Broken"]
	assert.False(t, hasBroken)
}

func TestParseReorderedColumns(t *testing.T) {
	csv := "Type,Start Time,Date,Band\nClinic,9:15 am,2/1/2025,Drummer\n"
	sched, err := schedule.Parse(strings.NewReader(csv), time.UTC)
	require.NoError(t, err)

	ev := sched["Drummer"][time.Date(2025, 2, 1, 9, 15, 0, 0, time.UTC).Unix()]
	assert.Equal(t, data.Clinic, ev.Type)
	assert.Equal(t, "", ev.Location)
	assert.Equal(t, ev.Start, ev.End)
}

func TestParseEmptyAndMissingBand(t *testing.T) {
	sched, err := schedule.Parse(strings.NewReader(""), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 0, sched.Len())

	_, err = schedule.Parse(strings.NewReader("Location,Date\nx,y\n"), time.UTC)
	assert.Error(t, err)
}

func TestFetchHTMLWrapped(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/wrapped" {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprintf(w, "<html><body><pre>%s</pre></body></html>", feed)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		fmt.Fprint(w, feed)
	}))
	defer ts.Close()

	for _, path := range []string{"/plain", "/wrapped"} {
		sched, err := schedule.Fetch(context.Background(), ts.Client(), ts.URL+path, time.UTC)
		require.NoError(t, err, path)
		assert.Equal(t, 3, sched.Len(), path)
	}
}

func TestWriteReadsBack(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	start := time.Date(2025, 1, 30, 23, 30, 0, 0, ny)
	events := []data.Event{{
		Band:     "Amorphis",
		Start:    start.Unix(),
		End:      start.Add(75 * time.Minute).Unix(),
		Location: "Pool Deck",
		Type:     data.MeetAndGreet,
		Day:      "Day 1",
		Notes:    "bring, a pen",
		ImageURL: "https://example.com/a.jpg",
	}}

	var buf bytes.Buffer
	require.NoError(t, schedule.Write(&buf, events, ny))
	assert.True(t, strings.HasPrefix(buf.String(), strings.Join(schedule.Header, ",")+"\n"))

	sched, err := schedule.Parse(&buf, ny)
	require.NoError(t, err)
	assert.Equal(t, events, sched.Sorted())
}
