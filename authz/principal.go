// Package authz решает, может ли участник выполнить действие над ресурсом.
// Решение зависит только от переданных аргументов.
package authz

import (
	"errors"
	"fmt"

	"github.com/Dosada05/alumni-network/models"
)

var ErrInvalidIdentity = errors.New("identity violates role invariant")

// Principal - закрытый набор вариантов роли. Реализации только в этом пакете.
type Principal interface {
	UserID() int
	Role() models.UserRole
	sealed()
}

type SuperAdmin struct{ ID int }

type FieldAdmin struct {
	ID    int
	Field models.Field
}

type VerifiedUser struct{ ID int }

type Unverified struct{ ID int }

func (p SuperAdmin) UserID() int   { return p.ID }
func (p FieldAdmin) UserID() int   { return p.ID }
func (p VerifiedUser) UserID() int { return p.ID }
func (p Unverified) UserID() int   { return p.ID }

func (SuperAdmin) Role() models.UserRole   { return models.RoleSuperAdmin }
func (FieldAdmin) Role() models.UserRole   { return models.RoleFieldAdmin }
func (VerifiedUser) Role() models.UserRole { return models.RoleVerifiedUser }
func (Unverified) Role() models.UserRole   { return models.RoleUnverified }

func (SuperAdmin) sealed()   {}
func (FieldAdmin) sealed()   {}
func (VerifiedUser) sealed() {}
func (Unverified) sealed()   {}

// PrincipalOf строит вариант из строки users. Нарушение связи role/assigned_field
// или VERIFIED_USER без is_verified считается ошибкой данных.
func PrincipalOf(u *models.User) (Principal, error) {
	if u == nil {
		return nil, fmt.Errorf("%w: nil user", ErrInvalidIdentity)
	}
	if !u.RoleInvariantHolds() {
		return nil, fmt.Errorf("%w: user %d role %s", ErrInvalidIdentity, u.ID, u.Role)
	}
	switch u.Role {
	case models.RoleSuperAdmin:
		return SuperAdmin{ID: u.ID}, nil
	case models.RoleFieldAdmin:
		return FieldAdmin{ID: u.ID, Field: *u.AssignedField}, nil
	case models.RoleVerifiedUser:
		if !u.IsVerified {
			return nil, fmt.Errorf("%w: user %d is %s but not verified", ErrInvalidIdentity, u.ID, u.Role)
		}
		return VerifiedUser{ID: u.ID}, nil
	case models.RoleUnverified:
		return Unverified{ID: u.ID}, nil
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidIdentity, u.Role)
	}
}
