package domain

import (
	"slices"
	"time"
)

type NotificationID string

type Notification struct {
	ID          NotificationID `json:"id"`
	SenderID    UserID         `json:"senderId"`
	Sender      *User          `json:"sender,omitempty"`
	ReceiverIDs []UserID       `json:"receiverIds"`
	Type        string         `json:"type"`
	URL         string         `json:"url,omitempty"`
	Payload     map[string]any `json:"payload,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	ReadBy      []UserID       `json:"readBy"`
}

func (n *Notification) IsReadBy(id UserID) bool {
	return slices.Contains(n.ReadBy, id)
}

func (n *Notification) HasReceiver(id UserID) bool {
	return slices.Contains(n.ReceiverIDs, id)
}

// MarkRead adds id to ReadBy. It reports false when id was already there.
func (n *Notification) MarkRead(id UserID) bool {
	if n.IsReadBy(id) {
		return false
	}
	n.ReadBy = append(n.ReadBy, id)
	return true
}

// ReceiversKey is the order-independent identity of a receiver set.
func ReceiversKey(ids []UserID) string {
	u := UniqueUserIDs(ids)
	slices.Sort(u)
	return joinKey(u)
}
