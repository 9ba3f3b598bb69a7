package replay

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	mu           sync.Mutex
	oldest       uint64
	stable       uint64
	calls        int
	failNextCall bool
}

func (f *fakeSink) SetCheckpoints(oldest, stable uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.oldest, f.stable = oldest, stable
	return nil
}

func (f *fakeSink) snapshot() (uint64, uint64, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.oldest, f.stable, f.calls
}

func TestAdvancer_AdvanceOnceMatchesMaximumCommitted(t *testing.T) {
	s := newTestScheduler(t, 4)
	w := s.NewWorker(0)
	require.False(t, s.ReplayLoopBegin(w))
	s.ReplayCommitted(w)

	sink := &fakeSink{}
	adv := NewAdvancer(s, sink, time.Hour, false)

	adv.advanceOnce(false, false)

	oldest, stable, calls := sink.snapshot()
	assert.Equal(t, 1, calls)
	assert.Equal(t, s.MaximumCommitted(), oldest)
	assert.Equal(t, s.MaximumCommitted(), stable)
}

func TestAdvancer_StopPerformsFinalPass(t *testing.T) {
	s := newTestScheduler(t, 4)
	w := s.NewWorker(0)
	require.False(t, s.ReplayLoopBegin(w))
	s.ReplayCommitted(w)

	sink := &fakeSink{}
	adv := NewAdvancer(s, sink, time.Hour, false)

	ctx, cancel := context.WithCancel(context.Background())
	adv.Start(ctx)
	cancel()
	adv.Stop()

	_, _, calls := sink.snapshot()
	assert.GreaterOrEqual(t, calls, 1, "final advance_once must run on shutdown")
}

func TestAdvancer_ChecksMonotonicity(t *testing.T) {
	s := newTestScheduler(t, 4)
	w := s.NewWorker(0)
	require.False(t, s.ReplayLoopBegin(w))
	s.ReplayCommitted(w)

	sink := &fakeSink{}
	adv := NewAdvancer(s, sink, time.Hour, false)
	adv.advanceOnce(false, false)

	assert.NotPanics(t, func() { adv.advanceOnce(false, false) })
}
