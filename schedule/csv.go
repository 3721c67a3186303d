package schedule

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/amonks/bandcruise/data"
	"github.com/amonks/bandcruise/request"
)

// Column names in the schedule feed's header row.
const (
	colBand        = "band"
	colLocation    = "location"
	colDate        = "date"
	colDay         = "day"
	colStart       = "start time"
	colEnd         = "end time"
	colType        = "type"
	colDescription = "description url"
	colNotes       = "notes"
	colImage       = "imageurl"
)

var dateLayouts = []string{"1/2/2006 15:04", "1/2/2006 3:04 PM", "2006-01-02 15:04"}

// Fetch downloads the schedule feed. The feed is usually plain CSV, but some
// hosts wrap it in an HTML preview page; in that case the CSV is taken from the
// page's <pre> block, or its body text.
func Fetch(ctx context.Context, client *http.Client, feedURL string, loc *time.Location) (data.Schedule, error) {
	body, contentType, err := request.Get(ctx, client, feedURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var r io.Reader = body
	if contentType == "text/html" {
		doc, err := goquery.NewDocumentFromReader(body)
		if err != nil {
			return nil, fmt.Errorf("error parsing html schedule from '%s': %w", feedURL, err)
		}
		text := doc.Find("pre").First().Text()
		if strings.TrimSpace(text) == "" {
			text = doc.Find("body").Text()
		}
		r = strings.NewReader(strings.TrimSpace(text))
	}

	sched, err := Parse(r, loc)
	if err != nil {
		return nil, fmt.Errorf("error parsing schedule from '%s': %w", feedURL, err)
	}
	return sched, nil
}

// Parse reads a schedule CSV. The header row decides column order; unknown
// columns are ignored and missing ones leave fields empty. Rows that can't be
// placed in time are logged and skipped.
func Parse(r io.Reader, loc *time.Location) (data.Schedule, error) {
	if loc == nil {
		loc = time.Local
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return data.Schedule{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("error reading header: %w", err)
	}
	cols := map[string]int{}
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	if _, has := cols[colBand]; !has {
		return nil, fmt.Errorf("no '%s' column in header %q", colBand, header)
	}

	sched := data.Schedule{}
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, fmt.Errorf("error reading line %d: %w", line, err)
		}

		field := func(name string) string {
			i, has := cols[name]
			if !has || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		ev := data.Event{
			Band:           field(colBand),
			Location:       field(colLocation),
			Day:            field(colDay),
			Type:           eventType(field(colType)),
			Notes:          field(colNotes),
			DescriptionURL: field(colDescription),
			ImageURL:       field(colImage),
		}
		if ev.Band == "" {
			continue
		}

		start, err := parseTime(field(colDate), field(colStart), loc)
		if err != nil {
			log.Printf("skipping schedule line %d (%s): %s", line, ev.Band, err)
			continue
		}
		ev.Start = start.Unix()

		if end, err := parseTime(field(colDate), field(colEnd), loc); err == nil {
			if end.Before(start) {
				end = end.AddDate(0, 0, 1)
			}
			ev.End = end.Unix()
		} else {
			ev.End = ev.Start
		}

		sched.Add(ev)
	}

	return sched, nil
}

func parseTime(date, clock string, loc *time.Location) (time.Time, error) {
	if date == "" || clock == "" {
		return time.Time{}, fmt.Errorf("missing date or time")
	}
	value := date + " " + strings.ToUpper(clock)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("can't parse '%s'", value)
}

// eventType normalizes the feed's spelling; anything unrecognized is kept as
// written so it still shows up, and defaults to a show when blank.
func eventType(s string) data.EventType {
	if s == "" {
		return data.Show
	}
	for _, t := range data.EventTypes {
		if strings.EqualFold(s, string(t)) {
			return t
		}
	}
	if strings.EqualFold(s, "Meet & Greet") {
		return data.MeetAndGreet
	}
	return data.EventType(s)
}
