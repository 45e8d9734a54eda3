package models

import "time"

type Event struct {
	ID              int       `json:"id"`
	Title           string    `json:"title"`
	Description     *string   `json:"description,omitempty"`
	Location        *string   `json:"location,omitempty"`
	EventDate       time.Time `json:"event_date"`
	MaxAttendees    *int      `json:"max_attendees,omitempty"`
	RegisteredCount int       `json:"registered_count"`
	CreatedBy       int       `json:"created_by"`
	CreatedAt       time.Time `json:"created_at"`
}

// HasCapacity - есть ли свободные места (nil MaxAttendees означает без ограничения).
func (e *Event) HasCapacity() bool {
	return e.MaxAttendees == nil || e.RegisteredCount < *e.MaxAttendees
}
