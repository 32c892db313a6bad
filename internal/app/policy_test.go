package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolicyFromString(t *testing.T) {
	tests := []struct {
		in   string
		want BackpressureAction
	}{
		{"kick", KickConnection},
		{" KICK ", KickConnection},
		{"drop", DropEvent},
		{"", DropEvent},
		{"whatever", DropEvent},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, PolicyFromString(tt.in).OnBackPressure("t1", "message.new"))
		})
	}
}
