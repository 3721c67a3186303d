package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/amonks/bandcruise/data"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (db *DB) SetPriority(ctx context.Context, band string, priority data.Priority) error {
	if band == "" {
		return fmt.Errorf("no band name")
	}
	if err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "band_name"}},
			DoUpdates: clause.AssignmentColumns([]string{"priority"}),
		}).
		Create(&data.BandPriority{BandName: band, Priority: priority}).
		Error; err != nil {
		return fmt.Errorf("error setting priority for '%s': %w", band, err)
	}
	return nil
}

// Priority returns data.Unknown for bands the user hasn't ranked.
func (db *DB) Priority(ctx context.Context, band string) (data.Priority, error) {
	var bp data.BandPriority
	err := db.WithContext(ctx).
		Where("band_name = ?", band).
		First(&bp).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return data.Unknown, nil
	} else if err != nil {
		return data.Unknown, fmt.Errorf("error getting priority for '%s': %w", band, err)
	}
	return bp.Priority, nil
}

func (db *DB) Priorities(ctx context.Context) (map[string]data.Priority, error) {
	var rows []data.BandPriority
	if err := db.WithContext(ctx).
		Find(&rows).
		Error; err != nil {
		return nil, fmt.Errorf("error getting priorities: %w", err)
	}
	out := make(map[string]data.Priority, len(rows))
	for _, row := range rows {
		out[row.BandName] = row.Priority
	}
	return out, nil
}

func (db *DB) SetAttendance(ctx context.Context, key string, status data.AttendanceStatus) error {
	if key == "" {
		return fmt.Errorf("no attendance key")
	}
	if err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"status"}),
		}).
		Create(&data.Attendance{Key: key, Status: status}).
		Error; err != nil {
		return fmt.Errorf("error setting attendance for '%s': %w", key, err)
	}
	return nil
}

func (db *DB) Attendance(ctx context.Context) (map[string]data.AttendanceStatus, error) {
	var rows []data.Attendance
	if err := db.WithContext(ctx).
		Find(&rows).
		Error; err != nil {
		return nil, fmt.Errorf("error getting attendance: %w", err)
	}
	out := make(map[string]data.AttendanceStatus, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Status
	}
	return out, nil
}
