package mongostore

import (
	"context"
	"fmt"

	"github.com/dkeye/Lounge/internal/core"
	"github.com/dkeye/Lounge/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ core.UserStore = (*Users)(nil)

type userDoc struct {
	ID       string `bson:"_id"`
	Username string `bson:"username"`
	Name     string `bson:"name,omitempty"`
	Avatar   string `bson:"avatar,omitempty"`
}

type Users struct{ coll *mongo.Collection }

func (s *Users) FindByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	var doc userDoc
	if err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: string(id)}}).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	return &domain.User{ID: domain.UserID(doc.ID), Username: doc.Username, Name: doc.Name, Avatar: doc.Avatar}, nil
}

// Put upserts the display fields of u.
func (s *Users) Put(ctx context.Context, u domain.User) error {
	_, err := s.coll.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: string(u.ID)}},
		userDoc{ID: string(u.ID), Username: u.Username, Name: u.Name, Avatar: u.Avatar},
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}
