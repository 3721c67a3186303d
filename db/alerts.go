package db

import (
	"context"
	"fmt"
	"time"

	"github.com/amonks/bandcruise/data"
	"gorm.io/gorm/clause"
)

func (db *DB) HasSentAlert(ctx context.Context, message string) (bool, error) {
	var count int64
	if err := db.WithContext(ctx).
		Table("sent_alerts").
		Where("message = ?", message).
		Count(&count).
		Error; err != nil {
		return false, fmt.Errorf("error checking sent alert '%s': %w", message, err)
	}
	return count > 0, nil
}

// MarkAlertSent records a message, doing nothing if it was already recorded.
func (db *DB) MarkAlertSent(ctx context.Context, sent *data.SentAlert) error {
	if sent.Message == "" {
		return fmt.Errorf("no alert message")
	}
	// stored as text; one zone keeps comparisons in order
	sent.FireAt = sent.FireAt.UTC()
	if err := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(sent).
		Error; err != nil {
		return fmt.Errorf("error marking alert '%s' as sent: %w", sent.Message, err)
	}
	return nil
}

func (db *DB) ForgetAlerts(ctx context.Context, messages []string) error {
	if len(messages) == 0 {
		return nil
	}
	if err := db.WithContext(ctx).
		Where("message in ?", messages).
		Delete(&data.SentAlert{}).
		Error; err != nil {
		return fmt.Errorf("error forgetting %d alerts: %w", len(messages), err)
	}
	return nil
}

// SentAlerts returns recorded alerts, most recent fire time first.
func (db *DB) SentAlerts(ctx context.Context, limit int) ([]data.SentAlert, error) {
	var sent []data.SentAlert
	if err := db.WithContext(ctx).
		Order("fire_at desc").
		Limit(limit).
		Find(&sent).
		Error; err != nil {
		return nil, fmt.Errorf("error getting sent alerts: %w", err)
	}
	return sent, nil
}

func (db *DB) CountSentAlerts(ctx context.Context) (int, error) {
	var count int64
	if err := db.WithContext(ctx).
		Table("sent_alerts").
		Count(&count).
		Error; err != nil {
		return 0, fmt.Errorf("error counting sent alerts: %w", err)
	}
	return int(count), nil
}

// ForgetAlertsAfter drops recorded alerts due to fire after t. A process that
// delivers alerts itself calls this at startup: alerts recorded by an earlier
// run that are still in the future were never delivered.
func (db *DB) ForgetAlertsAfter(ctx context.Context, t time.Time) (int, error) {
	res := db.WithContext(ctx).
		Where("fire_at > ?", t.UTC()).
		Delete(&data.SentAlert{})
	if res.Error != nil {
		return 0, fmt.Errorf("error forgetting alerts after %s: %w", t.Format(time.DateTime), res.Error)
	}
	return int(res.RowsAffected), nil
}
