package mongostore

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/dkeye/Lounge/internal/core"
	"github.com/dkeye/Lounge/internal/domain"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ core.NotificationStore = (*Notifications)(nil)

type notificationDoc struct {
	ID           string         `bson:"_id"`
	SenderID     string         `bson:"senderId"`
	ReceiverIDs  []string       `bson:"receiverIds"`
	ReceiversKey string         `bson:"receiversKey"`
	Type         string         `bson:"type"`
	URL          string         `bson:"url"`
	Payload      map[string]any `bson:"payload,omitempty"`
	CreatedAt    time.Time      `bson:"createdAt"`
	ReadBy       []string       `bson:"readBy"`
}

func toNotificationDoc(n *domain.Notification) notificationDoc {
	receivers := domain.UniqueUserIDs(n.ReceiverIDs)
	return notificationDoc{
		ID:           string(n.ID),
		SenderID:     string(n.SenderID),
		ReceiverIDs:  stringsOf(receivers),
		ReceiversKey: domain.ReceiversKey(receivers),
		Type:         n.Type,
		URL:          n.URL,
		Payload:      n.Payload,
		CreatedAt:    stamp(n.CreatedAt),
		ReadBy:       stringsOf(domain.UniqueUserIDs(n.ReadBy)),
	}
}

func (d notificationDoc) notification() *domain.Notification {
	return &domain.Notification{
		ID:          domain.NotificationID(d.ID),
		SenderID:    domain.UserID(d.SenderID),
		ReceiverIDs: userIDsOf(d.ReceiverIDs),
		Type:        d.Type,
		URL:         d.URL,
		Payload:     d.Payload,
		CreatedAt:   d.CreatedAt.UTC(),
		ReadBy:      userIDsOf(d.ReadBy),
	}
}

type Notifications struct{ coll *mongo.Collection }

func (s *Notifications) Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	cp := *n
	cp.Sender = nil
	cp.ReadBy = nil
	if cp.ID == "" {
		cp.ID = domain.NotificationID(uuid.NewString())
	}
	doc := toNotificationDoc(&cp)
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	return doc.notification(), nil
}

func (s *Notifications) findOne(ctx context.Context, filter bson.D) (*domain.Notification, error) {
	var doc notificationDoc
	err := s.coll.FindOne(ctx, filter,
		options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}),
	).Decode(&doc)
	if err != nil {
		return nil, notFound(err)
	}
	return doc.notification(), nil
}

func (s *Notifications) FindByID(ctx context.Context, id domain.NotificationID) (*domain.Notification, error) {
	return s.findOne(ctx, bson.D{{Key: "_id", Value: string(id)}})
}

func (s *Notifications) FindDuplicate(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	return s.findOne(ctx, bson.D{
		{Key: "senderId", Value: string(n.SenderID)},
		{Key: "type", Value: n.Type},
		{Key: "url", Value: n.URL},
		{Key: "receiversKey", Value: domain.ReceiversKey(n.ReceiverIDs)},
	})
}

func addReader(uid domain.UserID) bson.D {
	return bson.D{{Key: "$addToSet", Value: bson.D{{Key: "readBy", Value: string(uid)}}}}
}

func (s *Notifications) MarkRead(ctx context.Context, id domain.NotificationID, uid domain.UserID) error {
	res, err := s.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: string(id)}}, addReader(uid))
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if res.MatchedCount == 0 {
		return core.ErrNotFound
	}
	return nil
}

// BulkMarkRead marks every existing id with a single update.
func (s *Notifications) BulkMarkRead(ctx context.Context, ids []domain.NotificationID, uid domain.UserID) error {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = string(id)
	}
	_, err := s.coll.UpdateMany(ctx,
		bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: keys}}}},
		addReader(uid))
	if err != nil {
		return fmt.Errorf("bulk read: %w", err)
	}
	return nil
}

func (s *Notifications) ListForReceiver(ctx context.Context, uid domain.UserID, limit, offset int) ([]domain.Notification, int, error) {
	filter := bson.D{{Key: "receiverIds", Value: string(uid)}}
	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}
	cur, err := s.coll.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit)))
	if err != nil {
		return nil, 0, fmt.Errorf("find notifications: %w", err)
	}
	var docs []notificationDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode notifications: %w", err)
	}
	out := make([]domain.Notification, 0, len(docs))
	for _, d := range docs {
		out = append(out, *d.notification())
	}
	return out, int(total), nil
}

func (s *Notifications) Delete(ctx context.Context, id domain.NotificationID) error {
	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: string(id)}})
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if res.DeletedCount == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Notifications) DeleteForReceiver(ctx context.Context, uid domain.UserID) (int, error) {
	cur, err := s.coll.Find(ctx, bson.D{{Key: "receiverIds", Value: string(uid)}})
	if err != nil {
		return 0, fmt.Errorf("find notifications: %w", err)
	}
	var docs []notificationDoc
	if err := cur.All(ctx, &docs); err != nil {
		return 0, fmt.Errorf("decode notifications: %w", err)
	}
	for _, d := range docs {
		left := slices.DeleteFunc(userIDsOf(d.ReceiverIDs), func(x domain.UserID) bool { return x == uid })
		filter := bson.D{{Key: "_id", Value: d.ID}}
		if len(left) == 0 {
			if _, err := s.coll.DeleteOne(ctx, filter); err != nil {
				return 0, fmt.Errorf("delete notification: %w", err)
			}
			continue
		}
		if _, err := s.coll.UpdateOne(ctx, filter, bson.D{
			{Key: "$set", Value: bson.D{
				{Key: "receiverIds", Value: stringsOf(left)},
				{Key: "receiversKey", Value: domain.ReceiversKey(left)},
			}},
			{Key: "$pull", Value: bson.D{{Key: "readBy", Value: string(uid)}}},
		}); err != nil {
			return 0, fmt.Errorf("drop receiver: %w", err)
		}
	}
	return len(docs), nil
}
