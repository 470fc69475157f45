package model

import "time"

// Completion records that a task was completed on one calendar day.
// Presence means complete for that day, absence means incomplete.
type Completion struct {
	TaskID    TaskID
	OwnerID   string
	Day       Day
	CreatedAt time.Time
}
