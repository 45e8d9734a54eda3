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

func (f *fixture) event(t *testing.T, createdBy int, title string, at time.Time, capacity *int) *models.Event {
	t.Helper()
	e := &models.Event{
		Title:        title,
		EventDate:    at,
		MaxAttendees: capacity,
		CreatedBy:    createdBy,
		CreatedAt:    testNow,
	}
	require.NoError(t, f.events.Create(context.Background(), e))
	return e
}

func TestEventRepository_CRUD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.user(t, "admin@example.com", models.RoleSuperAdmin)
	e := f.event(t, admin.ID, "Reunion", testNow.Add(48*time.Hour), nil)

	got, err := f.events.GetByID(ctx, nil, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Reunion", got.Title)
	assert.Nil(t, got.MaxAttendees)
	assert.True(t, got.EventDate.Equal(e.EventDate))

	got.Title = "Grand Reunion"
	got.Location = ptr("Colombo")
	require.NoError(t, f.events.Update(ctx, got))

	got, err = f.events.GetByID(ctx, nil, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Grand Reunion", got.Title)
	require.NotNil(t, got.Location)
	assert.Equal(t, "Colombo", *got.Location)

	require.NoError(t, f.events.Delete(ctx, e.ID))
	_, err = f.events.GetByID(ctx, nil, e.ID)
	assert.ErrorIs(t, err, repositories.ErrEventNotFound)
	assert.ErrorIs(t, f.events.Delete(ctx, e.ID), repositories.ErrEventNotFound)
}

func TestEventRepository_ListUpcoming(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.user(t, "admin@example.com", models.RoleSuperAdmin)
	f.event(t, admin.ID, "Past", testNow.Add(-24*time.Hour), nil)
	f.event(t, admin.ID, "Later", testNow.Add(72*time.Hour), nil)
	f.event(t, admin.ID, "Soon", testNow.Add(24*time.Hour), nil)

	all, err := f.events.List(ctx, repositories.ListEventsFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Past", all[0].Title)

	from := testNow
	upcoming, err := f.events.List(ctx, repositories.ListEventsFilter{From: &from})
	require.NoError(t, err)
	require.Len(t, upcoming, 2)
	assert.Equal(t, "Soon", upcoming[0].Title)
	assert.Equal(t, "Later", upcoming[1].Title)

	n, err := f.events.CountUpcoming(ctx, testNow)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestEventRepository_Seats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.user(t, "admin@example.com", models.RoleSuperAdmin)
	e := f.event(t, admin.ID, "Workshop", testNow.Add(24*time.Hour), ptr(2))

	require.NoError(t, f.events.ReserveSeat(ctx, nil, e.ID))
	require.NoError(t, f.events.ReserveSeat(ctx, nil, e.ID))
	assert.ErrorIs(t, f.events.ReserveSeat(ctx, nil, e.ID), repositories.ErrEventFull)

	require.NoError(t, f.events.ReleaseSeat(ctx, nil, e.ID))
	got, err := f.events.GetByID(ctx, nil, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.RegisteredCount)

	assert.ErrorIs(t, f.events.ReserveSeat(ctx, nil, 9999), repositories.ErrEventNotFound)
}

func TestEventRepository_UnlimitedCapacity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.user(t, "admin@example.com", models.RoleSuperAdmin)
	e := f.event(t, admin.ID, "Open day", testNow.Add(24*time.Hour), nil)

	for i := 0; i < 5; i++ {
		require.NoError(t, f.events.ReserveSeat(ctx, nil, e.ID))
	}
	got, err := f.events.GetByID(ctx, nil, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.RegisteredCount)
}
