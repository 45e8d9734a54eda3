package models

import "time"

// AlumniProfile - запись справочника, создаётся при одобрении заявки.
// Справочник и отчёты читают только эту таблицу.
type AlumniProfile struct {
	UserID       int       `json:"user_id"`
	SubmissionID int       `json:"submission_id"`
	FullName     string    `json:"full_name"`
	CallingName  string    `json:"calling_name"`
	Nickname     *string   `json:"nickname,omitempty"`
	Field        Field     `json:"field"`
	Country      string    `json:"country"`
	Address      *string   `json:"address,omitempty"`
	Workplace    *string   `json:"workplace,omitempty"`
	Phone        *string   `json:"phone,omitempty"`
	ContactEmail *string   `json:"contact_email,omitempty"`
	Batch        *int      `json:"batch,omitempty"`
	PhotoURL     *string   `json:"photo_url,omitempty"`
	PhotoKey     *string   `json:"-"`
	ApprovedAt   time.Time `json:"approved_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ProfileFromSubmission копирует одобренные данные заявки в запись справочника.
func ProfileFromSubmission(s *Submission, approvedAt time.Time) *AlumniProfile {
	return &AlumniProfile{
		UserID:       s.OwnerID,
		SubmissionID: s.ID,
		FullName:     s.FullName,
		CallingName:  s.CallingName,
		Nickname:     s.Nickname,
		Field:        s.Field,
		Country:      s.Country,
		Address:      s.Address,
		Workplace:    s.Workplace,
		Phone:        s.Phone,
		ContactEmail: s.ContactEmail,
		Batch:        s.Batch,
		PhotoURL:     s.PhotoURL,
		PhotoKey:     s.PhotoKey,
		ApprovedAt:   approvedAt,
		UpdatedAt:    approvedAt,
	}
}
