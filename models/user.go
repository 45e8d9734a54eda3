package models

import "time"

// UserRole представляет роль учётной записи, соответствует колонке users.role.
type UserRole string

const (
	RoleSuperAdmin   UserRole = "SUPER_ADMIN"
	RoleFieldAdmin   UserRole = "FIELD_ADMIN"
	RoleVerifiedUser UserRole = "VERIFIED_USER"
	RoleUnverified   UserRole = "UNVERIFIED"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleFieldAdmin, RoleVerifiedUser, RoleUnverified:
		return true
	}
	return false
}

// IsAdmin - SUPER_ADMIN или FIELD_ADMIN.
func (r UserRole) IsAdmin() bool {
	return r == RoleSuperAdmin || r == RoleFieldAdmin
}

// User - учётная запись участника сети выпускников.
// AssignedField заполнено тогда и только тогда, когда Role == RoleFieldAdmin.
type User struct {
	ID            int       `json:"id"`
	Email         string    `json:"email"`
	FullName      string    `json:"full_name"`
	PasswordHash  string    `json:"-"`
	GoogleSubject *string   `json:"-"`
	Role          UserRole  `json:"role"`
	AssignedField *Field    `json:"assigned_field,omitempty"`
	IsVerified    bool      `json:"is_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

// RoleInvariantHolds проверяет связь role/assigned_field.
func (u *User) RoleInvariantHolds() bool {
	if u.Role == RoleFieldAdmin {
		return u.AssignedField != nil && u.AssignedField.Valid()
	}
	return u.AssignedField == nil
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
