package repositories_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/alumni-network/models"
	"github.com/Dosada05/alumni-network/repositories"
)

func TestRegistrationRepository_Lifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.user(t, "admin@example.com", models.RoleSuperAdmin)
	alumnus := f.user(t, "grad@example.com", models.RoleVerifiedUser)
	e := f.event(t, admin.ID, "Reunion", testNow.Add(24*time.Hour), nil)

	reg := &models.EventRegistration{
		EventID:          e.ID,
		UserID:           alumnus.ID,
		AttendanceStatus: models.AttendanceRegistered,
		RegisteredAt:     testNow,
	}
	require.NoError(t, f.registrations.Create(ctx, nil, reg))
	assert.ErrorIs(t, f.registrations.Create(ctx, nil, reg), repositories.ErrRegistrationConflict)

	byEvent, err := f.registrations.ListByEvent(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, byEvent, 1)
	require.NotNil(t, byEvent[0].User)
	assert.Equal(t, "grad@example.com", byEvent[0].User.Email)

	byUser, err := f.registrations.ListByUser(ctx, alumnus.ID)
	require.NoError(t, err)
	require.Len(t, byUser, 1)
	assert.Equal(t, e.ID, byUser[0].EventID)

	markedAt := testNow.Add(25 * time.Hour)
	require.NoError(t, f.registrations.UpdateAttendance(ctx, e.ID, alumnus.ID, models.AttendanceAttended, admin.ID, markedAt))

	got, err := f.registrations.Get(ctx, nil, e.ID, alumnus.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceAttended, got.AttendanceStatus)
	require.NotNil(t, got.MarkedBy)
	assert.Equal(t, admin.ID, *got.MarkedBy)
	require.NotNil(t, got.MarkedAt)
	assert.True(t, got.MarkedAt.Equal(markedAt))

	// отмеченную регистрацию отменить нельзя
	err = f.registrations.DeleteRegistered(ctx, nil, e.ID, alumnus.ID)
	assert.ErrorIs(t, err, repositories.ErrRegistrationNotCancelable)
}

func TestRegistrationRepository_DeleteRegistered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.user(t, "admin@example.com", models.RoleSuperAdmin)
	alumnus := f.user(t, "grad@example.com", models.RoleVerifiedUser)
	e := f.event(t, admin.ID, "Reunion", testNow.Add(24*time.Hour), nil)

	require.NoError(t, f.registrations.Create(ctx, nil, &models.EventRegistration{
		EventID: e.ID, UserID: alumnus.ID, AttendanceStatus: models.AttendanceRegistered, RegisteredAt: testNow,
	}))
	require.NoError(t, f.registrations.DeleteRegistered(ctx, nil, e.ID, alumnus.ID))

	_, err := f.registrations.Get(ctx, nil, e.ID, alumnus.ID)
	assert.ErrorIs(t, err, repositories.ErrRegistrationNotFound)
	assert.ErrorIs(t, f.registrations.DeleteRegistered(ctx, nil, e.ID, alumnus.ID), repositories.ErrRegistrationNotFound)
	assert.ErrorIs(t,
		f.registrations.UpdateAttendance(ctx, e.ID, alumnus.ID, models.AttendanceAbsent, admin.ID, testNow),
		repositories.ErrRegistrationNotFound)
}

func TestRegistrationRepository_CascadeOnEventDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.user(t, "admin@example.com", models.RoleSuperAdmin)
	alumnus := f.user(t, "grad@example.com", models.RoleVerifiedUser)
	e := f.event(t, admin.ID, "Reunion", testNow.Add(24*time.Hour), nil)
	require.NoError(t, f.registrations.Create(ctx, nil, &models.EventRegistration{
		EventID: e.ID, UserID: alumnus.ID, AttendanceStatus: models.AttendanceRegistered, RegisteredAt: testNow,
	}))

	require.NoError(t, f.events.Delete(ctx, e.ID))

	regs, err := f.registrations.ListByUser(ctx, alumnus.ID)
	require.NoError(t, err)
	assert.Empty(t, regs)
}
