package recommend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubScorer struct {
	calls int
	out   []string
	err   error
	delay time.Duration
}

func (s *stubScorer) Recommend(ctx context.Context, _ []string, _ int) ([]string, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.out, s.err
}

func TestGuarded_PassesThrough(t *testing.T) {
	g := NewGuarded(&stubScorer{out: []string{"MUG"}}, time.Second, zap.NewNop())

	got, err := g.Recommend(context.Background(), []string{"KETTLE"}, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"MUG"}, got)
}

func TestGuarded_ErrorBecomesEmpty(t *testing.T) {
	g := NewGuarded(&stubScorer{err: errors.New("model offline")}, time.Second, zap.NewNop())

	got, err := g.Recommend(context.Background(), []string{"KETTLE"}, 5)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestGuarded_TimeoutBecomesEmpty(t *testing.T) {
	g := NewGuarded(&stubScorer{out: []string{"MUG"}, delay: time.Second}, 20*time.Millisecond, zap.NewNop())

	start := time.Now()
	got, err := g.Recommend(context.Background(), []string{"KETTLE"}, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestGuarded_OpenBreakerSkipsScorer(t *testing.T) {
	stub := &stubScorer{err: errors.New("down")}
	g := NewGuarded(stub, time.Second, zap.NewNop())

	for i := 0; i < 5; i++ {
		_, _ = g.Recommend(context.Background(), []string{"KETTLE"}, 5)
	}
	require.Equal(t, 5, stub.calls)

	got, err := g.Recommend(context.Background(), []string{"KETTLE"}, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 5, stub.calls)
}
