package data

import (
	"fmt"
	"sort"
	"strconv"
	"time"
)

// EventType is the kind of scheduled occurrence, spelled the way the
// schedule feed spells it.
type EventType string

const (
	Show             EventType = "Show"
	MeetAndGreet     EventType = "Meet and Greet"
	Clinic           EventType = "Clinic"
	SpecialEvent     EventType = "Special Event"
	ListeningParty   EventType = "Listening Party"
	UnofficialEvent  EventType = "Unofficial Event"
	CruiserOrganized EventType = "Cruiser Organized"
)

// EventTypes lists every type in the order the app shows them.
var EventTypes = []EventType{
	Show, MeetAndGreet, Clinic, SpecialEvent, ListeningParty, UnofficialEvent, CruiserOrganized,
}

// Event is one row of the schedule feed.
type Event struct {
	Band  string `gorm:"primaryKey"`
	Start int64  `gorm:"primaryKey"` // epoch seconds
	End   int64

	Location       string
	Type           EventType
	Day            string
	Notes          string
	DescriptionURL string
	ImageURL       string
}

func (ev Event) StartTime() time.Time { return time.Unix(ev.Start, 0) }
func (ev Event) EndTime() time.Time   { return time.Unix(ev.End, 0) }

// Fields returns the event as the field-name -> field-value map the schedule
// feed describes.
func (ev Event) Fields() map[string]string {
	return map[string]string{
		"Band":            ev.Band,
		"Location":        ev.Location,
		"Day":             ev.Day,
		"Start Time":      strconv.FormatInt(ev.Start, 10),
		"End Time":        strconv.FormatInt(ev.End, 10),
		"Type":            string(ev.Type),
		"Notes":           ev.Notes,
		"Description URL": ev.DescriptionURL,
		"ImageURL":        ev.ImageURL,
	}
}

// AttendanceKey identifies an event for attendance tracking. It includes the
// cruise year so that a band playing the same slot in different years is
// tracked separately.
func (ev Event) AttendanceKey() string {
	return fmt.Sprintf("%s:%s:%d:%s:%d", ev.Band, ev.Location, ev.Start, ev.Type, ev.StartTime().UTC().Year())
}

// Schedule maps band -> start time -> event.
type Schedule map[string]map[int64]Event

// Add puts ev in the schedule, replacing any event for the same band and
// start time.
func (s Schedule) Add(ev Event) {
	byStart, ok := s[ev.Band]
	if !ok {
		byStart = map[int64]Event{}
		s[ev.Band] = byStart
	}
	byStart[ev.Start] = ev
}

// Len counts events.
func (s Schedule) Len() int {
	n := 0
	for _, byStart := range s {
		n += len(byStart)
	}
	return n
}

// Sorted returns every event ordered by start time, then band.
func (s Schedule) Sorted() []Event {
	events := make([]Event, 0, s.Len())
	for _, byStart := range s {
		for _, ev := range byStart {
			events = append(events, ev)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].Start != events[j].Start {
			return events[i].Start < events[j].Start
		}
		return events[i].Band < events[j].Band
	})
	return events
}

// EventImages returns, for each band, the image of its earliest event that
// has one.
func (s Schedule) EventImages() map[string]string {
	images := map[string]string{}
	for _, ev := range s.Sorted() {
		if ev.ImageURL == "" {
			continue
		}
		if _, has := images[ev.Band]; has {
			continue
		}
		images[ev.Band] = ev.ImageURL
	}
	return images
}
