package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dkeye/Lounge/internal/core"
	"github.com/dkeye/Lounge/internal/domain"
	"github.com/google/uuid"
)

var _ core.RoomStore = (*Rooms)(nil)

type Rooms struct{ d *DB }

func (s *Rooms) FindByID(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	var (
		room     domain.Room
		isDirect int
		created  int64
	)
	err := s.d.db.QueryRowContext(ctx,
		s.d.rebind(`SELECT id, name, is_direct, created_at FROM rooms WHERE id = ?`), string(id),
	).Scan(&room.ID, &room.Name, &isDirect, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select room: %w", err)
	}
	room.IsDirect = isDirect == 1
	room.CreatedAt = fromMillis(created)

	rows, err := s.d.db.QueryContext(ctx,
		s.d.rebind(`SELECT user_id FROM room_members WHERE room_id = ? ORDER BY user_id`), string(id))
	if err != nil {
		return nil, fmt.Errorf("select members: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		room.MemberIDs = append(room.MemberIDs, domain.UserID(uid))
	}
	return &room, rows.Err()
}

// FindDirect returns the oldest direct room of the pair.
func (s *Rooms) FindDirect(ctx context.Context, a, b domain.UserID) (*domain.Room, error) {
	var id string
	err := s.d.db.QueryRowContext(ctx,
		s.d.rebind(`SELECT id FROM rooms WHERE direct_key = ? ORDER BY created_at, id LIMIT 1`),
		domain.DirectKey(a, b),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select direct room: %w", err)
	}
	return s.FindByID(ctx, domain.RoomID(id))
}

// Create inserts the room. When the unique index rejects a second direct
// room for a pair, the existing room is returned.
func (s *Rooms) Create(ctx context.Context, room *domain.Room) (*domain.Room, error) {
	cp := room.Clone()
	if cp.ID == "" {
		cp.ID = domain.RoomID(uuid.NewString())
	}
	var key sql.NullString
	if cp.IsDirect && len(cp.MemberIDs) == 2 {
		key = sql.NullString{String: domain.DirectKey(cp.MemberIDs[0], cp.MemberIDs[1]), Valid: true}
	}
	isDirect := 0
	if cp.IsDirect {
		isDirect = 1
	}

	inserted := true
	err := s.d.withTx(ctx, func(tx *sql.Tx) error {
		res, err := s.d.exec(ctx, tx,
			`INSERT INTO rooms (id, name, is_direct, direct_key, created_at) VALUES (?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`,
			string(cp.ID), cp.Name, isDirect, key, millis(cp.CreatedAt))
		if err != nil {
			return fmt.Errorf("insert room: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			inserted = false
			return nil
		}
		for _, uid := range domain.UniqueUserIDs(cp.MemberIDs) {
			if _, err := s.d.exec(ctx, tx,
				`INSERT INTO room_members (room_id, user_id) VALUES (?, ?)`, string(cp.ID), string(uid)); err != nil {
				return fmt.Errorf("insert member: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !inserted && key.Valid {
		return s.FindDirect(ctx, cp.MemberIDs[0], cp.MemberIDs[1])
	}
	return s.FindByID(ctx, cp.ID)
}
