package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDirectRoom(t *testing.T) {
	tests := []struct {
		name    string
		a, b    UserID
		wantErr bool
	}{
		{name: "distinct pair", a: "bob", b: "alice"},
		{name: "same user", a: "bob", b: "bob", wantErr: true},
		{name: "empty side", a: "", b: "alice", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			room, err := NewDirectRoom(tt.a, tt.b, time.Unix(10, 0))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPair)
				return
			}
			require.NoError(t, err)
			assert.True(t, room.IsDirect)
			assert.Equal(t, []UserID{"alice", "bob"}, room.MemberIDs)
		})
	}
}

func TestDirectKeyIsSymmetric(t *testing.T) {
	assert.Equal(t, DirectKey("a", "b"), DirectKey("b", "a"))
	assert.NotEqual(t, DirectKey("a", "b"), DirectKey("a", "c"))
}

func TestKeysKeepIDsWithSeparatorApart(t *testing.T) {
	assert.NotEqual(t, DirectKey("a|b", "c"), DirectKey("a", "b|c"))
	assert.NotEqual(t, DirectKey("1:a", "b"), DirectKey("1", "a|1:b"))
	assert.NotEqual(t,
		ReceiversKey([]UserID{"a|b"}),
		ReceiversKey([]UserID{"a", "b"}))
	assert.NotEqual(t,
		ReceiversKey([]UserID{"a|b", "c"}),
		ReceiversKey([]UserID{"a", "b|c"}))
}

func TestRoomSameMembers(t *testing.T) {
	room := &Room{MemberIDs: []UserID{"a", "b"}}

	assert.True(t, room.SameMembers("b", "a"))
	assert.True(t, room.SameMembers("a", "b", "a"))
	assert.False(t, room.SameMembers("a"))
	assert.False(t, room.SameMembers("a", "b", "c"))
	assert.False(t, room.SameMembers("a", "c"))
}

func TestRoomCloneIsIndependent(t *testing.T) {
	room := &Room{ID: "r1", MemberIDs: []UserID{"a", "b"}}
	cp := room.Clone()
	cp.MemberIDs[0] = "z"
	assert.Equal(t, UserID("a"), room.MemberIDs[0])
}

func TestNotificationMarkReadIsIdempotent(t *testing.T) {
	n := &Notification{ReceiverIDs: []UserID{"a", "b"}}

	assert.True(t, n.MarkRead("a"))
	assert.False(t, n.MarkRead("a"))
	assert.Equal(t, []UserID{"a"}, n.ReadBy)
	assert.True(t, n.IsReadBy("a"))
	assert.False(t, n.IsReadBy("b"))
}

func TestParseUserID(t *testing.T) {
	id, err := ParseUserID("  u1 ")
	require.NoError(t, err)
	assert.Equal(t, UserID("u1"), id)

	_, err = ParseUserID("   ")
	assert.ErrorIs(t, err, ErrUserIDEmpty)

	long := make([]byte, MaxUserIDLen+1)
	for i := range long {
		long[i] = 'x'
	}
	_, err = ParseUserID(string(long))
	assert.ErrorIs(t, err, ErrUserIDTooLong)
}

func TestUniqueUserIDs(t *testing.T) {
	got := UniqueUserIDs([]UserID{"b", "", "a", "b"})
	assert.Equal(t, []UserID{"b", "a"}, got)
}

func TestReceiversKeyIgnoresOrderAndRepeats(t *testing.T) {
	assert.Equal(t, ReceiversKey([]UserID{"b", "a"}), ReceiversKey([]UserID{"a", "b", "a"}))
	assert.NotEqual(t, ReceiversKey([]UserID{"a"}), ReceiversKey([]UserID{"a", "b"}))
}
