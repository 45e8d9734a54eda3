package models

import "time"

// AttendanceStatus - статус регистрации на мероприятие.
type AttendanceStatus string

const (
	AttendanceRegistered AttendanceStatus = "REGISTERED"
	AttendanceAttended   AttendanceStatus = "ATTENDED"
	AttendanceAbsent     AttendanceStatus = "ABSENT"
)

func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceRegistered, AttendanceAttended, AttendanceAbsent:
		return true
	}
	return false
}

// Markable - статусы, которые администратор может проставить после мероприятия.
func (s AttendanceStatus) Markable() bool {
	return s == AttendanceAttended || s == AttendanceAbsent
}

type EventRegistration struct {
	EventID          int              `json:"event_id"`
	UserID           int              `json:"user_id"`
	AttendanceStatus AttendanceStatus `json:"attendance_status"`
	RegisteredAt     time.Time        `json:"registered_at"`
	MarkedAt         *time.Time       `json:"marked_at,omitempty"`
	MarkedBy         *int             `json:"marked_by,omitempty"`

	User *User `json:"user,omitempty"`
}
