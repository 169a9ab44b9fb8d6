package fallback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seen struct {
	mu      sync.Mutex
	reasons map[string]Reason
}

func (s *seen) observe(section string, reason Reason, _ error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reasons[section] = reason
}

func newSeen() *seen { return &seen{reasons: map[string]Reason{}} }

func TestGroup_DefaultsPerSection(t *testing.T) {
	obs := newSeen()
	g := NewGroup(context.Background(), obs.observe)

	ok := Go(g, "ok", []string{}, func(context.Context) ([]string, error) { return []string{"a"}, nil }, nil)
	failed := Go(g, "failed", []string{}, func(context.Context) ([]string, error) { return nil, errors.New("boom") }, nil)
	empty := Go(g, "empty", "none", func(context.Context) (string, error) { return "", ErrEmpty }, nil)
	blank := Go(g, "blank", "none", func(context.Context) (string, error) { return "", nil },
		func(s string) bool { return s == "" })
	panicky := Go(g, "panicky", 7, func(context.Context) (int, error) { panic("nope") }, nil)
	skipped := Skip(g, "skipped", 3)

	require.True(t, g.Wait())

	assert.Equal(t, []string{"a"}, ok.Value())
	assert.Equal(t, []string{}, failed.Value())
	assert.Equal(t, "none", empty.Value())
	assert.Equal(t, "none", blank.Value())
	assert.Equal(t, 7, panicky.Value())
	assert.Equal(t, 3, skipped.Value())

	r := failed.Result()
	assert.True(t, r.Defaulted())
	assert.EqualError(t, r.Err, "boom")

	assert.Equal(t, map[string]Reason{
		"failed": ReasonError, "empty": ReasonEmpty, "blank": ReasonEmpty,
		"panicky": ReasonError, "skipped": ReasonSkipped,
	}, obs.reasons)
}

func TestGroup_TimeoutResolvesToDefault(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	release := make(chan struct{})
	defer close(release)

	obs := newSeen()
	g := NewGroup(ctx, obs.observe)
	fast := Go(g, "fast", 0, func(context.Context) (int, error) { return 1, nil }, nil)
	slow := Go(g, "slow", -1, func(context.Context) (int, error) { <-release; return 2, nil }, nil)

	assert.False(t, g.Wait())
	assert.Equal(t, 1, fast.Value())
	assert.Equal(t, -1, slow.Value())
	assert.Equal(t, ReasonTimeout, obs.reasons["slow"])
	_, reported := obs.reasons["fast"]
	assert.False(t, reported)
}
