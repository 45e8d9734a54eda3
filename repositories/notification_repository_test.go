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

func TestNotificationRepository(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "grad@example.com", models.RoleVerifiedUser)
	other := f.user(t, "other@example.com", models.RoleVerifiedUser)

	var ids []int
	for i, kind := range []models.NotificationKind{models.NotificationSubmissionRejected, models.NotificationSubmissionApproved} {
		n := &models.Notification{
			UserID:    u.ID,
			Kind:      kind,
			Message:   string(kind),
			CreatedAt: testNow.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, f.notifications.Create(ctx, nil, n))
		ids = append(ids, n.ID)
	}

	list, err := f.notifications.ListByUser(ctx, u.ID, false, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, models.NotificationSubmissionApproved, list[0].Kind, "newest first")

	// чужое уведомление не найти
	assert.ErrorIs(t, f.notifications.MarkRead(ctx, other.ID, ids[0], testNow), repositories.ErrNotificationNotFound)

	readAt := testNow.Add(time.Hour)
	require.NoError(t, f.notifications.MarkRead(ctx, u.ID, ids[0], readAt))
	// повторная отметка не сдвигает время
	require.NoError(t, f.notifications.MarkRead(ctx, u.ID, ids[0], readAt.Add(time.Hour)))

	unread, err := f.notifications.ListByUser(ctx, u.ID, true, 10)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, ids[1], unread[0].ID)

	n, err := f.notifications.MarkAllRead(ctx, u.ID, readAt)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	list, err = f.notifications.ListByUser(ctx, u.ID, false, 10)
	require.NoError(t, err)
	for _, note := range list {
		require.NotNil(t, note.ReadAt)
		assert.True(t, note.ReadAt.Equal(readAt))
	}
}
