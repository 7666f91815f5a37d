package terminal

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBacklogDrainEmpties(t *testing.T) {
	b := NewBacklog(16)

	b.Write([]byte("hello "))
	b.Write([]byte("world"))
	assert.Equal(t, 11, b.Len())

	assert.Equal(t, "hello world", string(b.Drain()))
	assert.Equal(t, 0, b.Len())
	assert.Empty(t, b.Drain())
}

func TestBacklogOverflowKeepsNewest(t *testing.T) {
	tests := []struct {
		name   string
		writes []string
		want   string
	}{
		{name: "exact fit", writes: []string{"abcdefgh"}, want: "abcdefgh"},
		{name: "single oversized write", writes: []string{"0123456789"}, want: "23456789"},
		{name: "wraps across writes", writes: []string{"abcdef", "ghij"}, want: "cdefghij"},
		{name: "many small writes", writes: strings.Split("abcdefghijklm", ""), want: "fghijklm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBacklog(8)
			for _, w := range tt.writes {
				b.Write([]byte(w))
			}
			assert.Equal(t, tt.want, string(b.Drain()))
		})
	}
}

func TestBacklogReusableAfterDrain(t *testing.T) {
	b := NewBacklog(4)
	b.Write([]byte("abc"))
	b.Drain()
	b.Write([]byte("defg"))
	assert.Equal(t, "defg", string(b.Drain()))
}

func TestNewBacklogDefaultSize(t *testing.T) {
	b := NewBacklog(0)
	assert.Len(t, b.data, DefaultBacklogSize)
}
