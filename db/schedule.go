package db

import (
	"context"
	"fmt"

	"github.com/amonks/bandcruise/data"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReplaceSchedule swaps the stored schedule for sched.
func (db *DB) ReplaceSchedule(ctx context.Context, sched data.Schedule) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("1 = 1").
			Delete(&data.Event{}).
			Error; err != nil {
			return fmt.Errorf("error clearing events: %w", err)
		}
		for _, ev := range sched.Sorted() {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("canceled: %w", err)
			}
			if err := tx.
				Clauses(clause.OnConflict{DoNothing: true}).
				Create(&ev).
				Error; err != nil {
				return fmt.Errorf("error inserting event {'%s', %d}: %w", ev.Band, ev.Start, err)
			}
		}
		return nil
	})
}

// Schedule loads every stored event.
func (db *DB) Schedule(ctx context.Context) (data.Schedule, error) {
	var events []data.Event
	if err := db.WithContext(ctx).
		Order("start").
		Find(&events).
		Error; err != nil {
		return nil, fmt.Errorf("error getting events: %w", err)
	}
	sched := data.Schedule{}
	for _, ev := range events {
		sched.Add(ev)
	}
	return sched, nil
}

// EventsBetween returns events starting in [from, to), by start time.
func (db *DB) EventsBetween(ctx context.Context, from, to int64) ([]data.Event, error) {
	var events []data.Event
	if err := db.WithContext(ctx).
		Where("start >= ? and start < ?", from, to).
		Order("start, band").
		Find(&events).
		Error; err != nil {
		return nil, fmt.Errorf("error getting events between %d and %d: %w", from, to, err)
	}
	return events, nil
}

func (db *DB) CountEvents(ctx context.Context) (int, error) {
	var count int64
	if err := db.WithContext(ctx).
		Table("events").
		Count(&count).
		Error; err != nil {
		return 0, fmt.Errorf("error counting events: %w", err)
	}
	return int(count), nil
}
