package sqlstore

import (
	"context"
	"fmt"

	"github.com/dkeye/Lounge/internal/core"
	"github.com/dkeye/Lounge/internal/domain"
	"github.com/google/uuid"
)

var _ core.MessageStore = (*Messages)(nil)

type Messages struct{ d *DB }

func (s *Messages) Create(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	cp := *msg
	cp.Author = nil
	if cp.ID == "" {
		cp.ID = domain.MessageID(uuid.NewString())
	}
	if _, err := s.d.exec(ctx, s.d.db,
		`INSERT INTO messages (id, room_id, author_id, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		string(cp.ID), string(cp.RoomID), string(cp.AuthorID), cp.Content, millis(cp.CreatedAt),
	); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	cp.CreatedAt = fromMillis(millis(cp.CreatedAt))
	return &cp, nil
}

// InRoom returns the messages of room, oldest first.
func (s *Messages) InRoom(ctx context.Context, room domain.RoomID, limit int) ([]domain.Message, error) {
	rows, err := s.d.db.QueryContext(ctx, s.d.rebind(
		`SELECT id, room_id, author_id, content, created_at FROM messages WHERE room_id = ? ORDER BY created_at, id LIMIT ?`),
		string(room), limit)
	if err != nil {
		return nil, fmt.Errorf("select messages: %w", err)
	}
	defer rows.Close()
	var out []domain.Message
	for rows.Next() {
		var (
			m  domain.Message
			ts int64
		)
		if err := rows.Scan(&m.ID, &m.RoomID, &m.AuthorID, &m.Content, &ts); err != nil {
			return nil, err
		}
		m.CreatedAt = fromMillis(ts)
		out = append(out, m)
	}
	return out, rows.Err()
}
