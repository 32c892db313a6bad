// Package store selects the persistence backend named by config.
package store

import (
	"context"
	"fmt"

	"github.com/dkeye/Lounge/internal/adapters/store/memstore"
	"github.com/dkeye/Lounge/internal/adapters/store/mongostore"
	"github.com/dkeye/Lounge/internal/adapters/store/sqlstore"
	"github.com/dkeye/Lounge/internal/config"
	"github.com/dkeye/Lounge/internal/core"
)

// Set is one backend's stores plus the function releasing it.
type Set struct {
	Rooms         core.RoomStore
	Messages      core.MessageStore
	Notifications core.NotificationStore
	Users         core.UserStore
	Close         func() error
}

func Open(ctx context.Context, cfg config.Store) (*Set, error) {
	switch cfg.Driver {
	case "memory", "":
		return &Set{
			Rooms:         memstore.NewRooms(cfg.UniqueDirect),
			Messages:      memstore.NewMessages(),
			Notifications: memstore.NewNotifications(),
			Users:         memstore.NewUsers(),
			Close:         func() error { return nil },
		}, nil
	case "sqlite", "postgres":
		dialect := sqlstore.SQLite
		if cfg.Driver == "postgres" {
			dialect = sqlstore.Postgres
		}
		dsn := cfg.DSN
		if dsn == "" && dialect == sqlstore.SQLite {
			dsn = "lounge.db"
		}
		db, err := sqlstore.Open(ctx, dialect, dsn, cfg.UniqueDirect)
		if err != nil {
			return nil, err
		}
		return &Set{
			Rooms:         db.Rooms(),
			Messages:      db.Messages(),
			Notifications: db.Notifications(),
			Users:         db.Users(),
			Close:         db.Close,
		}, nil
	case "mongo":
		db, err := mongostore.Open(ctx, cfg.DSN, cfg.Database, cfg.UniqueDirect)
		if err != nil {
			return nil, err
		}
		return &Set{
			Rooms:         db.Rooms(),
			Messages:      db.Messages(),
			Notifications: db.Notifications(),
			Users:         db.Users(),
			Close:         db.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
