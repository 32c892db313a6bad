package mongostore

import (
	"context"
	"fmt"
	"time"

	"github.com/dkeye/Lounge/internal/core"
	"github.com/dkeye/Lounge/internal/domain"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ core.RoomStore = (*Rooms)(nil)

type roomDoc struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name,omitempty"`
	IsDirect  bool      `bson:"isDirect"`
	DirectKey string    `bson:"directKey,omitempty"`
	MemberIDs []string  `bson:"memberIds"`
	CreatedAt time.Time `bson:"createdAt"`
}

func toRoomDoc(r *domain.Room) roomDoc {
	doc := roomDoc{
		ID:        string(r.ID),
		Name:      r.Name,
		IsDirect:  r.IsDirect,
		MemberIDs: stringsOf(domain.UniqueUserIDs(r.MemberIDs)),
		CreatedAt: stamp(r.CreatedAt),
	}
	if r.IsDirect && len(r.MemberIDs) == 2 {
		doc.DirectKey = domain.DirectKey(r.MemberIDs[0], r.MemberIDs[1])
	}
	return doc
}

func (d roomDoc) room() *domain.Room {
	return &domain.Room{
		ID:        domain.RoomID(d.ID),
		Name:      d.Name,
		IsDirect:  d.IsDirect,
		MemberIDs: userIDsOf(d.MemberIDs),
		CreatedAt: d.CreatedAt.UTC(),
	}
}

type Rooms struct{ coll *mongo.Collection }

func (s *Rooms) FindByID(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	var doc roomDoc
	if err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: string(id)}}).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	return doc.room(), nil
}

// FindDirect returns the oldest direct room of the pair.
func (s *Rooms) FindDirect(ctx context.Context, a, b domain.UserID) (*domain.Room, error) {
	var doc roomDoc
	err := s.coll.FindOne(ctx,
		bson.D{{Key: "directKey", Value: domain.DirectKey(a, b)}},
		options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}),
	).Decode(&doc)
	if err != nil {
		return nil, notFound(err)
	}
	return doc.room(), nil
}

// Create inserts the room. A duplicate direct key under the unique index
// resolves to the room already stored.
func (s *Rooms) Create(ctx context.Context, room *domain.Room) (*domain.Room, error) {
	cp := room.Clone()
	if cp.ID == "" {
		cp.ID = domain.RoomID(uuid.NewString())
	}
	doc := toRoomDoc(cp)
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) && doc.DirectKey != "" {
			return s.FindDirect(ctx, cp.MemberIDs[0], cp.MemberIDs[1])
		}
		return nil, fmt.Errorf("insert room: %w", err)
	}
	return doc.room(), nil
}

func stringsOf(ids []domain.UserID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func userIDsOf(ids []string) []domain.UserID {
	out := make([]domain.UserID, len(ids))
	for i, id := range ids {
		out[i] = domain.UserID(id)
	}
	return out
}
