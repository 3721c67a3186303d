package schedule

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/amonks/bandcruise/data"
)

// Header is the feed's column order.
var Header = []string{"Band", "Location", "Date", "Day", "Start Time", "End Time", "Type", "Description URL", "Notes", "ImageURL"}

// Write encodes events in the feed's format, so that Parse reads them back.
func Write(w io.Writer, events []data.Event, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("error writing schedule header: %w", err)
	}
	for _, ev := range events {
		fields := ev.Fields()
		start := ev.StartTime().In(loc)
		fields["Date"] = start.Format("1/2/2006")
		fields["Start Time"] = start.Format("15:04")
		fields["End Time"] = ev.EndTime().In(loc).Format("15:04")

		row := make([]string, len(Header))
		for i, col := range Header {
			row[i] = fields[col]
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("error writing event for '%s': %w", ev.Band, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
