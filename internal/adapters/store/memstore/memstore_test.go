package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/dkeye/Lounge/internal/core"
	"github.com/dkeye/Lounge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRooms_FindDirectEitherOrder(t *testing.T) {
	ctx := context.Background()
	s := NewRooms(false)

	_, err := s.FindDirect(ctx, "a", "b")
	require.ErrorIs(t, err, core.ErrNotFound)

	room, _ := domain.NewDirectRoom("b", "a", time.Now())
	created, err := s.Create(ctx, room)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := s.FindDirect(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	got, err = s.FindDirect(ctx, "b", "a")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestRooms_UniqueDirect(t *testing.T) {
	ctx := context.Background()
	for _, tc := range []struct {
		name   string
		unique bool
		count  int
	}{
		{"duplicates allowed", false, 2},
		{"unique pair", true, 1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := NewRooms(tc.unique)
			r1, _ := domain.NewDirectRoom("a", "b", time.Now())
			r2, _ := domain.NewDirectRoom("b", "a", time.Now())
			first, err := s.Create(ctx, r1)
			require.NoError(t, err)
			second, err := s.Create(ctx, r2)
			require.NoError(t, err)

			assert.Equal(t, tc.count, s.Count())
			if tc.unique {
				assert.Equal(t, first.ID, second.ID)
			}
		})
	}
}

func TestNotifications_ReadAndList(t *testing.T) {
	ctx := context.Background()
	s := NewNotifications()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var ids []domain.NotificationID
	for i := 0; i < 3; i++ {
		n, err := s.Create(ctx, &domain.Notification{
			SenderID:    "s",
			ReceiverIDs: []domain.UserID{"u"},
			Type:        "like",
			URL:         string(rune('a' + i)),
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
		ids = append(ids, n.ID)
	}

	page, total, err := s.ListForReceiver(ctx, "u", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 2)
	assert.Equal(t, ids[2], page[0].ID)
	assert.Equal(t, ids[1], page[1].ID)

	require.NoError(t, s.MarkRead(ctx, ids[0], "u"))
	require.NoError(t, s.MarkRead(ctx, ids[0], "u"))
	n, err := s.FindByID(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, []domain.UserID{"u"}, n.ReadBy)

	require.NoError(t, s.BulkMarkRead(ctx, []domain.NotificationID{ids[1], "missing"}, "u"))
	n, _ = s.FindByID(ctx, ids[1])
	assert.True(t, n.IsReadBy("u"))

	require.NoError(t, s.Delete(ctx, ids[2]))
	assert.ErrorIs(t, s.Delete(ctx, ids[2]), core.ErrNotFound)
	_, total, _ = s.ListForReceiver(ctx, "u", 10, 0)
	assert.Equal(t, 2, total)
}

func TestNotifications_FindDuplicate(t *testing.T) {
	ctx := context.Background()
	s := NewNotifications()
	orig, err := s.Create(ctx, &domain.Notification{
		SenderID: "s", ReceiverIDs: []domain.UserID{"a", "b"}, Type: "follow", URL: "/u/s",
	})
	require.NoError(t, err)

	got, err := s.FindDuplicate(ctx, &domain.Notification{
		SenderID: "s", ReceiverIDs: []domain.UserID{"b", "a"}, Type: "follow", URL: "/u/s",
	})
	require.NoError(t, err)
	assert.Equal(t, orig.ID, got.ID)

	_, err = s.FindDuplicate(ctx, &domain.Notification{
		SenderID: "s", ReceiverIDs: []domain.UserID{"a"}, Type: "follow", URL: "/u/s",
	})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestNotifications_DeleteForReceiver(t *testing.T) {
	ctx := context.Background()
	s := NewNotifications()
	shared, err := s.Create(ctx, &domain.Notification{SenderID: "s", ReceiverIDs: []domain.UserID{"a", "b"}, Type: "like"})
	require.NoError(t, err)
	own, err := s.Create(ctx, &domain.Notification{SenderID: "s", ReceiverIDs: []domain.UserID{"a"}, Type: "like", URL: "/x"})
	require.NoError(t, err)
	require.NoError(t, s.MarkRead(ctx, shared.ID, "a"))

	n, err := s.DeleteForReceiver(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = s.FindByID(ctx, own.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	left, err := s.FindByID(ctx, shared.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.UserID{"b"}, left.ReceiverIDs)
	assert.Empty(t, left.ReadBy)

	n, err = s.DeleteForReceiver(ctx, "a")
	require.NoError(t, err)
	assert.Zero(t, n)
}
