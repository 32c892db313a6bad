package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/Lounge/internal/core"
	"github.com/dkeye/Lounge/internal/domain"
	"github.com/rs/zerolog/log"
)

var (
	ErrNoReceivers = errors.New("notification has no receivers")
	ErrNotReceiver = errors.New("user is not a receiver of the notification")
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// NotificationFanout persists notifications and pushes them to online
// receivers. Offline receivers read them later through List.
type NotificationFanout struct {
	store    core.NotificationStore
	users    core.UserStore
	registry *Registry
	now      func() time.Time
}

func NewNotificationFanout(store core.NotificationStore, users core.UserStore, registry *Registry) *NotificationFanout {
	return &NotificationFanout{store: store, users: users, registry: registry, now: time.Now}
}

// Create stores a notification and delivers it. A notification already
// stored with the same sender, receivers, type and url is returned as is
// and not delivered again.
func (f *NotificationFanout) Create(ctx context.Context, senderID domain.UserID, receiverIDs []domain.UserID, typ, url string, payload map[string]any) (*domain.Notification, error) {
	receivers := domain.UniqueUserIDs(receiverIDs)
	if len(receivers) == 0 {
		return nil, ErrNoReceivers
	}
	n := &domain.Notification{
		SenderID:    senderID,
		ReceiverIDs: receivers,
		Type:        typ,
		URL:         url,
		Payload:     payload,
		CreatedAt:   f.now().UTC(),
		ReadBy:      []domain.UserID{},
	}

	dup, err := f.store.FindDuplicate(ctx, n)
	switch {
	case err == nil:
		log.Debug().Str("module", "app.notifications").Str("id", string(dup.ID)).Msg("duplicate notification")
		return dup, nil
	case !errors.Is(err, core.ErrNotFound):
		return nil, fmt.Errorf("find duplicate notification: %w", err)
	}

	saved, err := f.store.Create(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("save notification: %w", err)
	}
	saved.Sender = expandUser(ctx, f.users, senderID)

	delivered := 0
	for _, uid := range saved.ReceiverIDs {
		if f.registry.SendTo(uid, core.EventNotificationNew, core.NotificationNew{Notification: saved}) {
			delivered++
		}
	}
	log.Info().Str("module", "app.notifications").
		Str("id", string(saved.ID)).
		Str("type", typ).
		Int("delivered", delivered).
		Msg("notification created")
	return saved, nil
}

// MarkRead adds uid to the readers of id. Already read is a no-op.
func (f *NotificationFanout) MarkRead(ctx context.Context, uid domain.UserID, id domain.NotificationID) error {
	n, err := f.store.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("find notification %s: %w", id, err)
	}
	if !n.HasReceiver(uid) {
		return ErrNotReceiver
	}
	if n.IsReadBy(uid) {
		return nil
	}
	if err := f.store.MarkRead(ctx, id, uid); err != nil {
		return fmt.Errorf("mark notification %s read: %w", id, err)
	}
	return nil
}

// MarkReadBulk marks a batch in one store write and reports one error for
// the whole batch.
func (f *NotificationFanout) MarkReadBulk(ctx context.Context, uid domain.UserID, ids []domain.NotificationID) error {
	ids = uniqueNotificationIDs(ids)
	if len(ids) == 0 {
		return nil
	}
	if err := f.store.BulkMarkRead(ctx, ids, uid); err != nil {
		return fmt.Errorf("mark %d notifications read: %w", len(ids), err)
	}
	return nil
}

// List returns a page of uid's notifications, newest first, and the total.
func (f *NotificationFanout) List(ctx context.Context, uid domain.UserID, limit, offset int) ([]domain.Notification, int, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	limit = min(limit, MaxPageSize)
	offset = max(offset, 0)
	items, total, err := f.store.ListForReceiver(ctx, uid, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	return items, total, nil
}

// Delete removes a notification uid sent or received.
func (f *NotificationFanout) Delete(ctx context.Context, uid domain.UserID, id domain.NotificationID) error {
	n, err := f.store.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("find notification %s: %w", id, err)
	}
	if n.SenderID != uid && !n.HasReceiver(uid) {
		return ErrNotReceiver
	}
	if err := f.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete notification %s: %w", id, err)
	}
	return nil
}

// DeleteAll clears uid's notifications. Other receivers keep theirs.
func (f *NotificationFanout) DeleteAll(ctx context.Context, uid domain.UserID) (int, error) {
	n, err := f.store.DeleteForReceiver(ctx, uid)
	if err != nil {
		return 0, fmt.Errorf("delete notifications of %s: %w", uid, err)
	}
	log.Info().Str("module", "app.notifications").Str("user", string(uid)).Int("count", n).Msg("notifications cleared")
	return n, nil
}

func uniqueNotificationIDs(ids []domain.NotificationID) []domain.NotificationID {
	seen := make(map[domain.NotificationID]struct{}, len(ids))
	out := make([]domain.NotificationID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
