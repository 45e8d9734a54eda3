package repositories_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Dosada05/alumni-network/db/dbtest"
	"github.com/Dosada05/alumni-network/models"
	"github.com/Dosada05/alumni-network/repositories"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db            *sql.DB
	users         repositories.UserRepository
	submissions   repositories.SubmissionRepository
	alumni        repositories.AlumniRepository
	fieldAdmins   repositories.FieldAdminRepository
	events        repositories.EventRepository
	registrations repositories.RegistrationRepository
	notifications repositories.NotificationRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.New(t)
	d := repositories.DialectSQLite
	return &fixture{
		db:            conn,
		users:         repositories.NewSQLUserRepository(conn, d),
		submissions:   repositories.NewSQLSubmissionRepository(conn, d),
		alumni:        repositories.NewSQLAlumniRepository(conn, d),
		fieldAdmins:   repositories.NewSQLFieldAdminRepository(conn, d),
		events:        repositories.NewSQLEventRepository(conn, d),
		registrations: repositories.NewSQLRegistrationRepository(conn, d),
		notifications: repositories.NewSQLNotificationRepository(conn, d),
	}
}

func (f *fixture) user(t *testing.T, email string, role models.UserRole) *models.User {
	t.Helper()
	u := &models.User{
		Email:      email,
		FullName:   "User " + email,
		Role:       role,
		IsVerified: role != models.RoleUnverified,
		CreatedAt:  testNow,
	}
	if role == models.RoleFieldAdmin {
		field := models.FieldComputer
		u.AssignedField = &field
	}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) submission(t *testing.T, ownerID int, field models.Field) *models.Submission {
	t.Helper()
	phone := "+94770000000"
	s := &models.Submission{
		OwnerID:     ownerID,
		FullName:    fmt.Sprintf("Owner %d", ownerID),
		CallingName: fmt.Sprintf("O%d", ownerID),
		Field:       field,
		Country:     "Sri Lanka",
		Phone:       &phone,
		Status:      models.SubmissionPending,
		CreatedAt:   testNow,
	}
	require.NoError(t, f.submissions.Create(context.Background(), nil, s))
	return s
}

// profile создаёт запись справочника вместе с владельцем и одобренной заявкой.
func (f *fixture) profile(t *testing.T, email, name string, field models.Field, country string, batch int) *models.AlumniProfile {
	t.Helper()
	ctx := context.Background()
	u := f.user(t, email, models.RoleVerifiedUser)
	s := f.submission(t, u.ID, field)
	require.NoError(t, f.submissions.MarkApproved(ctx, nil, s.ID, u.ID, testNow))

	s.FullName = name
	s.Country = country
	s.Batch = &batch
	p := models.ProfileFromSubmission(s, testNow)
	require.NoError(t, f.alumni.Create(ctx, nil, p))
	return p
}

func ptr[T any](v T) *T { return &v }
