package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dkeye/Lounge/internal/core"
	"github.com/dkeye/Lounge/internal/domain"
)

var _ core.UserStore = (*Users)(nil)

type Users struct{ d *DB }

func (s *Users) FindByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	var u domain.User
	err := s.d.db.QueryRowContext(ctx,
		s.d.rebind(`SELECT id, username, name, avatar FROM users WHERE id = ?`), string(id),
	).Scan(&u.ID, &u.Username, &u.Name, &u.Avatar)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &u, nil
}

// Put upserts the display fields of u.
func (s *Users) Put(ctx context.Context, u domain.User) error {
	_, err := s.d.exec(ctx, s.d.db,
		`INSERT INTO users (id, username, name, avatar) VALUES (?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET username = excluded.username, name = excluded.name, avatar = excluded.avatar`,
		string(u.ID), u.Username, u.Name, u.Avatar)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}
