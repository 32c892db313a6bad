package core

//go:generate mockgen -source=stores.go -destination=mocks/stores_mock.go -package=mocks

import (
	"context"
	"errors"

	"github.com/dkeye/Lounge/internal/domain"
)

// ErrNotFound is returned by stores when a record does not exist.
var ErrNotFound = errors.New("not found")

type RoomStore interface {
	FindByID(ctx context.Context, id domain.RoomID) (*domain.Room, error)
	// FindDirect looks up the direct room of a pair, in either order.
	FindDirect(ctx context.Context, a, b domain.UserID) (*domain.Room, error)
	// Create persists room and returns it with its assigned ID.
	Create(ctx context.Context, room *domain.Room) (*domain.Room, error)
}

type MessageStore interface {
	Create(ctx context.Context, msg *domain.Message) (*domain.Message, error)
}

type NotificationStore interface {
	Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error)
	FindByID(ctx context.Context, id domain.NotificationID) (*domain.Notification, error)
	// FindDuplicate finds a stored notification with the same sender,
	// receivers, type and url as n.
	FindDuplicate(ctx context.Context, n *domain.Notification) (*domain.Notification, error)
	// MarkRead adds uid to the read set; adding twice is harmless.
	MarkRead(ctx context.Context, id domain.NotificationID, uid domain.UserID) error
	BulkMarkRead(ctx context.Context, ids []domain.NotificationID, uid domain.UserID) error
	// ListForReceiver returns a page newest first and the total count.
	ListForReceiver(ctx context.Context, uid domain.UserID, limit, offset int) ([]domain.Notification, int, error)
	Delete(ctx context.Context, id domain.NotificationID) error
	// DeleteForReceiver drops uid from every receiver set and removes
	// notifications left without receivers. It returns how many
	// notifications uid lost.
	DeleteForReceiver(ctx context.Context, uid domain.UserID) (int, error)
}

type UserStore interface {
	FindByID(ctx context.Context, id domain.UserID) (*domain.User, error)
}
