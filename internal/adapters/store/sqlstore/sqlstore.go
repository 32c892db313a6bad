// Package sqlstore implements the core stores on database/sql for
// PostgreSQL (lib/pq) and SQLite (modernc.org/sqlite).
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) driver() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

// DB owns the connection pool shared by the stores.
type DB struct {
	db      *sql.DB
	dialect Dialect
	unique  bool
}

// Open connects and migrates. With uniqueDirect the schema allows one
// direct room per user pair.
func Open(ctx context.Context, dialect Dialect, dsn string, uniqueDirect bool) (*DB, error) {
	db, err := sql.Open(dialect.driver(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect.driver(), err)
	}
	if dialect == SQLite {
		// one writer at a time
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect.driver(), err)
	}
	d := &DB{db: db, dialect: dialect, unique: uniqueDirect}
	if err := d.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Info().Str("module", "store.sql").Str("driver", dialect.driver()).Bool("unique_direct", uniqueDirect).Msg("store ready")
	return d, nil
}

func (d *DB) Close() error { return d.db.Close() }

func (d *DB) Rooms() *Rooms                 { return &Rooms{d} }
func (d *DB) Messages() *Messages           { return &Messages{d} }
func (d *DB) Notifications() *Notifications { return &Notifications{d} }
func (d *DB) Users() *Users                 { return &Users{d} }

var schema = []string{
	`CREATE TABLE IF NOT EXISTS rooms (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		is_direct INTEGER NOT NULL DEFAULT 0,
		direct_key TEXT,
		created_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS room_members (
		room_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		PRIMARY KEY (room_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		room_id TEXT NOT NULL,
		author_id TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS messages_room ON messages (room_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		sender_id TEXT NOT NULL,
		type TEXT NOT NULL,
		url TEXT NOT NULL DEFAULT '',
		payload TEXT NOT NULL DEFAULT '{}',
		receivers_key TEXT NOT NULL,
		created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS notifications_dup ON notifications (sender_id, type, url, receivers_key)`,
	`CREATE TABLE IF NOT EXISTS notification_receivers (
		notification_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		PRIMARY KEY (notification_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS notification_receivers_user ON notification_receivers (user_id)`,
	`CREATE TABLE IF NOT EXISTS notification_reads (
		notification_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		PRIMARY KEY (notification_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		avatar TEXT NOT NULL DEFAULT ''
	)`,
}

func (d *DB) migrate(ctx context.Context) error {
	stmts := schema
	if d.unique {
		stmts = append(stmts, `CREATE UNIQUE INDEX IF NOT EXISTS rooms_direct_key ON rooms (direct_key)`)
	} else {
		stmts = append(stmts, `CREATE INDEX IF NOT EXISTS rooms_direct_key_lookup ON rooms (direct_key)`)
	}
	for _, s := range stmts {
		if _, err := d.db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders into $n for postgres.
func (d *DB) rebind(q string) string {
	if d.dialect != Postgres {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

func (d *DB) exec(ctx context.Context, q execer, query string, args ...any) (sql.Result, error) {
	return q.ExecContext(ctx, d.rebind(query), args...)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// withTx runs fn in a transaction, rolling back on error.
func (d *DB) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func millis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }
