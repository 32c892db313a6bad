package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dkeye/Lounge/internal/core"
	"github.com/dkeye/Lounge/internal/domain"
	gojson "github.com/goccy/go-json"
	"github.com/google/uuid"
)

var _ core.NotificationStore = (*Notifications)(nil)

type Notifications struct{ d *DB }

func (s *Notifications) Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	cp := *n
	cp.Sender = nil
	cp.ReceiverIDs = domain.UniqueUserIDs(n.ReceiverIDs)
	cp.ReadBy = []domain.UserID{}
	if cp.ID == "" {
		cp.ID = domain.NotificationID(uuid.NewString())
	}
	payload, err := gojson.Marshal(cp.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	err = s.d.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.d.exec(ctx, tx,
			`INSERT INTO notifications (id, sender_id, type, url, payload, receivers_key, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			string(cp.ID), string(cp.SenderID), cp.Type, cp.URL, string(payload), domain.ReceiversKey(cp.ReceiverIDs), millis(cp.CreatedAt),
		); err != nil {
			return fmt.Errorf("insert notification: %w", err)
		}
		for _, uid := range cp.ReceiverIDs {
			if _, err := s.d.exec(ctx, tx,
				`INSERT INTO notification_receivers (notification_id, user_id) VALUES (?, ?)`, string(cp.ID), string(uid),
			); err != nil {
				return fmt.Errorf("insert receiver: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	cp.CreatedAt = fromMillis(millis(cp.CreatedAt))
	return &cp, nil
}

const notificationCols = `n.id, n.sender_id, n.type, n.url, n.payload, n.created_at`

func scanNotification(row interface{ Scan(...any) error }) (*domain.Notification, error) {
	var (
		n       domain.Notification
		payload string
		ts      int64
	)
	if err := row.Scan(&n.ID, &n.SenderID, &n.Type, &n.URL, &payload, &ts); err != nil {
		return nil, err
	}
	if payload != "" && payload != "null" {
		if err := gojson.Unmarshal([]byte(payload), &n.Payload); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
	}
	n.CreatedAt = fromMillis(ts)
	return &n, nil
}

// fill loads the receiver and reader sets of n.
func (s *Notifications) fill(ctx context.Context, n *domain.Notification) error {
	var err error
	if n.ReceiverIDs, err = s.userIDs(ctx, `SELECT user_id FROM notification_receivers WHERE notification_id = ? ORDER BY user_id`, n.ID); err != nil {
		return err
	}
	if n.ReadBy, err = s.userIDs(ctx, `SELECT user_id FROM notification_reads WHERE notification_id = ? ORDER BY user_id`, n.ID); err != nil {
		return err
	}
	return nil
}

func (s *Notifications) userIDs(ctx context.Context, query string, id domain.NotificationID) ([]domain.UserID, error) {
	rows, err := s.d.db.QueryContext(ctx, s.d.rebind(query), string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.UserID{}
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		out = append(out, domain.UserID(uid))
	}
	return out, rows.Err()
}

func (s *Notifications) findOne(ctx context.Context, where string, args ...any) (*domain.Notification, error) {
	row := s.d.db.QueryRowContext(ctx, s.d.rebind(`SELECT `+notificationCols+` FROM notifications n WHERE `+where+` ORDER BY n.created_at, n.id LIMIT 1`), args...)
	n, err := scanNotification(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select notification: %w", err)
	}
	if err := s.fill(ctx, n); err != nil {
		return nil, fmt.Errorf("select notification sets: %w", err)
	}
	return n, nil
}

func (s *Notifications) FindByID(ctx context.Context, id domain.NotificationID) (*domain.Notification, error) {
	return s.findOne(ctx, `n.id = ?`, string(id))
}

func (s *Notifications) FindDuplicate(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	return s.findOne(ctx, `n.sender_id = ? AND n.type = ? AND n.url = ? AND n.receivers_key = ?`,
		string(n.SenderID), n.Type, n.URL, domain.ReceiversKey(n.ReceiverIDs))
}

func (s *Notifications) MarkRead(ctx context.Context, id domain.NotificationID, uid domain.UserID) error {
	res, err := s.d.exec(ctx, s.d.db,
		`INSERT INTO notification_reads (notification_id, user_id) SELECT id, CAST(? AS TEXT) FROM notifications WHERE id = ? ON CONFLICT DO NOTHING`,
		string(uid), string(id))
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.FindByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// BulkMarkRead marks every existing id in one transaction.
func (s *Notifications) BulkMarkRead(ctx context.Context, ids []domain.NotificationID, uid domain.UserID) error {
	return s.d.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, s.d.rebind(
			`INSERT INTO notification_reads (notification_id, user_id) SELECT id, CAST(? AS TEXT) FROM notifications WHERE id = ? ON CONFLICT DO NOTHING`))
		if err != nil {
			return fmt.Errorf("prepare bulk read: %w", err)
		}
		defer stmt.Close()
		for _, id := range ids {
			if _, err := stmt.ExecContext(ctx, string(uid), string(id)); err != nil {
				return fmt.Errorf("bulk read: %w", err)
			}
		}
		return nil
	})
}

func (s *Notifications) ListForReceiver(ctx context.Context, uid domain.UserID, limit, offset int) ([]domain.Notification, int, error) {
	var total int
	if err := s.d.db.QueryRowContext(ctx,
		s.d.rebind(`SELECT COUNT(*) FROM notification_receivers WHERE user_id = ?`), string(uid),
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	rows, err := s.d.db.QueryContext(ctx, s.d.rebind(`SELECT `+notificationCols+`
		FROM notifications n JOIN notification_receivers r ON r.notification_id = n.id
		WHERE r.user_id = ? ORDER BY n.created_at DESC, n.id DESC LIMIT ? OFFSET ?`),
		string(uid), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("select notifications: %w", err)
	}
	var out []domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			rows.Close()
			return nil, 0, err
		}
		out = append(out, *n)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for i := range out {
		if err := s.fill(ctx, &out[i]); err != nil {
			return nil, 0, err
		}
	}
	if out == nil {
		out = []domain.Notification{}
	}
	return out, total, nil
}

func (s *Notifications) Delete(ctx context.Context, id domain.NotificationID) error {
	return s.d.withTx(ctx, func(tx *sql.Tx) error {
		res, err := s.d.exec(ctx, tx, `DELETE FROM notifications WHERE id = ?`, string(id))
		if err != nil {
			return fmt.Errorf("delete notification: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return core.ErrNotFound
		}
		for _, q := range []string{
			`DELETE FROM notification_receivers WHERE notification_id = ?`,
			`DELETE FROM notification_reads WHERE notification_id = ?`,
		} {
			if _, err := s.d.exec(ctx, tx, q, string(id)); err != nil {
				return fmt.Errorf("delete notification sets: %w", err)
			}
		}
		return nil
	})
}

func (s *Notifications) DeleteForReceiver(ctx context.Context, uid domain.UserID) (int, error) {
	var removed int
	err := s.d.withTx(ctx, func(tx *sql.Tx) error {
		ids, err := s.txStrings(ctx, tx, `SELECT notification_id FROM notification_receivers WHERE user_id = ?`, string(uid))
		if err != nil {
			return fmt.Errorf("select receiver rows: %w", err)
		}
		for _, id := range ids {
			for _, q := range []string{
				`DELETE FROM notification_receivers WHERE notification_id = ? AND user_id = ?`,
				`DELETE FROM notification_reads WHERE notification_id = ? AND user_id = ?`,
			} {
				if _, err := s.d.exec(ctx, tx, q, id, string(uid)); err != nil {
					return fmt.Errorf("drop receiver: %w", err)
				}
			}
			left, err := s.txStrings(ctx, tx, `SELECT user_id FROM notification_receivers WHERE notification_id = ?`, id)
			if err != nil {
				return fmt.Errorf("select receivers: %w", err)
			}
			if len(left) == 0 {
				if _, err := s.d.exec(ctx, tx, `DELETE FROM notification_reads WHERE notification_id = ?`, id); err != nil {
					return fmt.Errorf("delete reads: %w", err)
				}
				if _, err := s.d.exec(ctx, tx, `DELETE FROM notifications WHERE id = ?`, id); err != nil {
					return fmt.Errorf("delete notification: %w", err)
				}
				continue
			}
			receivers := make([]domain.UserID, len(left))
			for i, r := range left {
				receivers[i] = domain.UserID(r)
			}
			if _, err := s.d.exec(ctx, tx, `UPDATE notifications SET receivers_key = ? WHERE id = ?`,
				domain.ReceiversKey(receivers), id); err != nil {
				return fmt.Errorf("update receivers key: %w", err)
			}
		}
		removed = len(ids)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// txStrings reads a single text column inside tx.
func (s *Notifications) txStrings(ctx context.Context, tx *sql.Tx, query string, args ...any) ([]string, error) {
	rows, err := tx.QueryContext(ctx, s.d.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
