package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dkeye/Lounge/internal/config"
	"github.com/dkeye/Lounge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		cfg     func(t *testing.T) config.Store
		wantErr bool
	}{
		{
			name: "memory",
			cfg:  func(*testing.T) config.Store { return config.Store{Driver: "memory"} },
		},
		{
			name: "sqlite",
			cfg: func(t *testing.T) config.Store {
				return config.Store{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "s.db"), UniqueDirect: true}
			},
		},
		{
			name:    "unknown",
			cfg:     func(*testing.T) config.Store { return config.Store{Driver: "redis"} },
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			set, err := Open(ctx, tt.cfg(t))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			t.Cleanup(func() { assert.NoError(t, set.Close()) })

			room, _ := domain.NewDirectRoom("a", "b", time.Now())
			created, err := set.Rooms.Create(ctx, room)
			require.NoError(t, err)
			got, err := set.Rooms.FindDirect(ctx, "b", "a")
			require.NoError(t, err)
			assert.Equal(t, created.ID, got.ID)
		})
	}
}
