// Package mongostore implements the core stores on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/Lounge/internal/core"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	roomsColl         = "rooms"
	messagesColl      = "messages"
	notificationsColl = "notifications"
	usersColl         = "users"
)

type DB struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open connects to uri, pings the primary and ensures indexes. With
// uniqueDirect the rooms collection allows one direct room per pair.
func Open(ctx context.Context, uri, database string, uniqueDirect bool) (*DB, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	d := &DB{client: client, db: client.Database(database)}
	if err := d.ensureIndexes(ctx, uniqueDirect); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, err
	}
	log.Info().Str("module", "store.mongo").Str("database", database).Bool("unique_direct", uniqueDirect).Msg("store ready")
	return d, nil
}

func (d *DB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return d.client.Disconnect(ctx)
}

func (d *DB) Rooms() *Rooms                 { return &Rooms{d.db.Collection(roomsColl)} }
func (d *DB) Messages() *Messages           { return &Messages{d.db.Collection(messagesColl)} }
func (d *DB) Notifications() *Notifications { return &Notifications{d.db.Collection(notificationsColl)} }
func (d *DB) Users() *Users                 { return &Users{d.db.Collection(usersColl)} }

func (d *DB) ensureIndexes(ctx context.Context, uniqueDirect bool) error {
	directKey := options.Index().
		SetPartialFilterExpression(bson.D{{Key: "directKey", Value: bson.D{{Key: "$exists", Value: true}}}})
	if uniqueDirect {
		directKey.SetUnique(true)
	}
	indexes := map[string][]mongo.IndexModel{
		roomsColl: {
			{Keys: bson.D{{Key: "directKey", Value: 1}}, Options: directKey},
		},
		messagesColl: {
			{Keys: bson.D{{Key: "roomId", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
		notificationsColl: {
			{Keys: bson.D{{Key: "receiverIds", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{
				{Key: "senderId", Value: 1},
				{Key: "type", Value: 1},
				{Key: "url", Value: 1},
				{Key: "receiversKey", Value: 1},
			}},
		},
	}
	for coll, models := range indexes {
		if _, err := d.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("ensure %s indexes: %w", coll, err)
		}
	}
	return nil
}

// notFound maps the driver's empty result onto core.ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.ErrNotFound
	}
	return err
}

// stamp truncates t to the precision mongo keeps.
func stamp(t time.Time) time.Time { return time.UnixMilli(t.UnixMilli()).UTC() }
