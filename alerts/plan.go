// Package alerts decides which scheduled events deserve a heads-up, works out
// when to fire it, and hands it to a Notifier exactly once.
package alerts

import (
	"fmt"
	"sort"
	"time"

	"github.com/amonks/bandcruise/data"
	"github.com/amonks/bandcruise/prefs"
	"github.com/google/uuid"
)

// Alert is a notification waiting to fire.
type Alert struct {
	ID      string
	Event   data.Event
	FireAt  time.Time
	Message string
	Sound   string
}

// Planner turns a schedule plus the user's choices into alerts.
type Planner struct {
	Prefs *prefs.Store

	// Location is the time zone used to print start times in messages.
	Location *time.Location
}

// Plan returns an alert for every event the user wants to hear about whose
// fire time is still ahead of now, ordered by fire time.
func (p Planner) Plan(sched data.Schedule, priorities map[string]data.Priority, attendance map[string]data.AttendanceStatus, now time.Time) []Alert {
	lead := time.Duration(p.Prefs.Int(prefs.MinBeforeAlert)) * time.Minute

	var out []Alert
	for _, ev := range sched.Sorted() {
		if !ShouldAlert(ev, priorities[ev.Band], attendance[ev.AttendanceKey()], p.Prefs) {
			continue
		}
		fireAt := FireTime(ev, lead)
		if !Due(fireAt, now) {
			continue
		}
		out = append(out, Alert{
			ID:      uuid.NewString(),
			Event:   ev,
			FireAt:  fireAt,
			Message: p.Message(ev, lead),
			Sound:   p.Prefs.String(prefs.AlertSound),
		})
	}
	return out
}

// FireTime is the event's start minus the lead time.
func FireTime(ev data.Event, lead time.Duration) time.Time {
	return ev.StartTime().Add(-lead)
}

// Due reports whether an alert firing at fireAt can still be scheduled; a
// zero or negative offset from now means it is too late.
func Due(fireAt, now time.Time) bool {
	return fireAt.Sub(now) > 0
}

// ShouldAlert applies the user's alert settings to one event.
//
// With "only alert for attended" on, attendance is the only thing that
// counts. Otherwise an event the user marked as attending always alerts;
// shows, meet and greets, clinics and listening parties need both their type
// toggle and a must-see/might-see band; special and unofficial events only
// need their toggle.
func ShouldAlert(ev data.Event, priority data.Priority, attendance data.AttendanceStatus, p *prefs.Store) bool {
	if p.Bool(prefs.OnlyAlertForAttended) {
		return attendance.Attending()
	}
	if attendance.Attending() {
		return true
	}

	switch ev.Type {
	case data.Show:
		return p.Bool(prefs.AlertForShows) && wanted(priority, p)
	case data.MeetAndGreet:
		return p.Bool(prefs.AlertForMandG) && wanted(priority, p)
	case data.Clinic:
		return p.Bool(prefs.AlertForClinics) && wanted(priority, p)
	case data.ListeningParty:
		return p.Bool(prefs.AlertForListening) && wanted(priority, p)
	case data.SpecialEvent:
		return p.Bool(prefs.AlertForSpecial)
	case data.UnofficialEvent, data.CruiserOrganized:
		return p.Bool(prefs.AlertForUnofficial)
	}
	return false
}

func wanted(priority data.Priority, p *prefs.Store) bool {
	switch priority {
	case data.MustSee:
		return p.Bool(prefs.MustSeeAlert)
	case data.MightSee:
		return p.Bool(prefs.MightSeeAlert)
	}
	return false
}

// Message is the notification text. It names the start time so a band
// playing the same stage twice gets two distinct messages.
func (p Planner) Message(ev data.Event, lead time.Duration) string {
	loc := p.Location
	if loc == nil {
		loc = time.Local
	}
	at := ev.StartTime().In(loc).Format("Mon 15:04")
	minutes := int(lead / time.Minute)

	switch ev.Type {
	case data.Show, "":
		return fmt.Sprintf("%s will be playing the %s in %d minutes (%s)", ev.Band, ev.Location, minutes, at)
	default:
		return fmt.Sprintf("%s %s is being held at the %s in %d minutes (%s)", ev.Band, ev.Type, ev.Location, minutes, at)
	}
}

func sortByFireTime(alerts []Alert) {
	sort.Slice(alerts, func(i, j int) bool {
		return alerts[i].FireAt.Before(alerts[j].FireAt)
	})
}
