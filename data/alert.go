package data

import "time"

// SentAlert remembers an alert message that has already been handed to the
// notifier. Message is unique: the same text is never scheduled twice.
type SentAlert struct {
	ID        string
	Message   string `gorm:"primaryKey"`
	FireAt    time.Time
	CreatedAt time.Time
}
