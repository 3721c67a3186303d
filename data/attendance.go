package data

import "fmt"

type AttendanceStatus string

const (
	WillAttend        AttendanceStatus = "attended"
	PartiallyAttended AttendanceStatus = "partialyAttended"
	SawNone           AttendanceStatus = "sawNone"
)

func ParseAttendance(s string) (AttendanceStatus, error) {
	switch s {
	case "attended", "will", "yes":
		return WillAttend, nil
	case "partialyAttended", "partial", "partially":
		return PartiallyAttended, nil
	case "sawNone", "none", "no", "":
		return SawNone, nil
	}
	return SawNone, fmt.Errorf("unknown attendance status '%s'", s)
}

// Attendance records whether the user plans to attend (or attended) an event.
type Attendance struct {
	// see Event.AttendanceKey
	Key    string `gorm:"primaryKey"`
	Status AttendanceStatus
}

// Attending reports whether the status counts as going to the event.
func (s AttendanceStatus) Attending() bool {
	return s == WillAttend || s == PartiallyAttended
}
