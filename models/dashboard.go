package models

type DashboardStats struct {
	PendingSubmissions int `json:"pending_submissions"`
	VerifiedAlumni     int `json:"verified_alumni"`
	UpcomingEvents     int `json:"upcoming_events"`
	AssignedFields     int `json:"assigned_fields"`
}
