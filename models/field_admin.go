package models

import "time"

// FieldAdminAssignment - строка реестра: одно направление, не более одного администратора.
type FieldAdminAssignment struct {
	Field      Field      `json:"field"`
	AdminID    *int       `json:"admin_id,omitempty"`
	AssignedAt *time.Time `json:"assigned_at,omitempty"`
	Version    int        `json:"-"`

	Admin *User `json:"admin,omitempty"`
}
