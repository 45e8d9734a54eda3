package models

import "time"

type NotificationKind string

const (
	NotificationSubmissionApproved NotificationKind = "SUBMISSION_APPROVED"
	NotificationSubmissionRejected NotificationKind = "SUBMISSION_REJECTED"
	NotificationFieldAdminAssigned NotificationKind = "FIELD_ADMIN_ASSIGNED"
	NotificationFieldAdminRemoved  NotificationKind = "FIELD_ADMIN_REMOVED"
)

type Notification struct {
	ID        int              `json:"id"`
	UserID    int              `json:"user_id"`
	Kind      NotificationKind `json:"kind"`
	Message   string           `json:"message"`
	ReadAt    *time.Time       `json:"read_at,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
