package models

import "time"

// SubmissionStatus - состояние заявки на верификацию.
type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "PENDING"
	SubmissionApproved SubmissionStatus = "APPROVED"
	SubmissionRejected SubmissionStatus = "REJECTED"
)

func (s SubmissionStatus) Valid() bool {
	switch s {
	case SubmissionPending, SubmissionApproved, SubmissionRejected:
		return true
	}
	return false
}

// Terminal - APPROVED и REJECTED не меняются. После REJECTED создаётся новая заявка.
func (s SubmissionStatus) Terminal() bool {
	return s == SubmissionApproved || s == SubmissionRejected
}

// Submission - анкета выпускника, поданная на проверку.
type Submission struct {
	ID              int              `json:"id"`
	OwnerID         int              `json:"owner_id"`
	FullName        string           `json:"full_name"`
	CallingName     string           `json:"calling_name"`
	Nickname        *string          `json:"nickname,omitempty"`
	Field           Field            `json:"field"`
	Country         string           `json:"country"`
	Address         *string          `json:"address,omitempty"`
	Workplace       *string          `json:"workplace,omitempty"`
	Phone           *string          `json:"phone,omitempty"`
	ContactEmail    *string          `json:"contact_email,omitempty"`
	Batch           *int             `json:"batch,omitempty"`
	PhotoURL        *string          `json:"photo_url,omitempty"`
	PhotoKey        *string          `json:"-"`
	Status          SubmissionStatus `json:"status"`
	RejectionReason *string          `json:"rejection_reason,omitempty"`
	ReviewedBy      *int             `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time       `json:"reviewed_at,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}
