package domain

import (
	"errors"
	"slices"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidPair = errors.New("direct room needs two distinct users")

type RoomID string

// Room is a conversation channel persisted by the room store.
// MemberIDs has set semantics and is kept sorted.
type Room struct {
	ID        RoomID    `json:"id"`
	Name      string    `json:"name,omitempty"`
	IsDirect  bool      `json:"isDirect"`
	MemberIDs []UserID  `json:"memberIds"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewDirectRoom builds an unsaved two-party room. The store assigns the ID.
func NewDirectRoom(a, b UserID, now time.Time) (*Room, error) {
	if a == "" || b == "" || a == b {
		return nil, ErrInvalidPair
	}
	return &Room{
		IsDirect:  true,
		MemberIDs: SortedPair(a, b),
		CreatedAt: now,
	}, nil
}

// SortedPair returns the pair in canonical order.
func SortedPair(a, b UserID) []UserID {
	if b < a {
		a, b = b, a
	}
	return []UserID{a, b}
}

// DirectKey is the order-independent lookup key of a user pair.
func DirectKey(a, b UserID) string {
	return joinKey(SortedPair(a, b))
}

// joinKey length-prefixes each id, so ids containing the separator
// cannot make two different lists share a key.
func joinKey(ids []UserID) string {
	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(strconv.Itoa(len(id)))
		b.WriteByte(':')
		b.WriteString(string(id))
	}
	return b.String()
}

func (r *Room) HasMember(id UserID) bool {
	return slices.Contains(r.MemberIDs, id)
}

// SameMembers reports set equality between the room members and ids.
func (r *Room) SameMembers(ids ...UserID) bool {
	want := UniqueUserIDs(ids)
	if len(want) != len(UniqueUserIDs(r.MemberIDs)) {
		return false
	}
	for _, id := range want {
		if !r.HasMember(id) {
			return false
		}
	}
	return true
}

// Clone returns a copy safe to hand out of a cache.
func (r *Room) Clone() *Room {
	cp := *r
	cp.MemberIDs = slices.Clone(r.MemberIDs)
	return &cp
}
