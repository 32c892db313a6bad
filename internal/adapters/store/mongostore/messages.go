package mongostore

import (
	"context"
	"fmt"
	"time"

	"github.com/dkeye/Lounge/internal/core"
	"github.com/dkeye/Lounge/internal/domain"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

var _ core.MessageStore = (*Messages)(nil)

type messageDoc struct {
	ID        string    `bson:"_id"`
	RoomID    string    `bson:"roomId"`
	AuthorID  string    `bson:"authorId"`
	Content   string    `bson:"content"`
	CreatedAt time.Time `bson:"createdAt"`
}

type Messages struct{ coll *mongo.Collection }

func (s *Messages) Create(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	cp := *msg
	cp.Author = nil
	if cp.ID == "" {
		cp.ID = domain.MessageID(uuid.NewString())
	}
	cp.CreatedAt = stamp(cp.CreatedAt)
	if _, err := s.coll.InsertOne(ctx, messageDoc{
		ID:        string(cp.ID),
		RoomID:    string(cp.RoomID),
		AuthorID:  string(cp.AuthorID),
		Content:   cp.Content,
		CreatedAt: cp.CreatedAt,
	}); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return &cp, nil
}
