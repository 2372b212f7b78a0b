package registry

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordingRegistrar counts register/heartbeat calls and can be told to
// fail heartbeats.
type recordingRegistrar struct {
	mu            sync.Mutex
	registers     int
	heartbeats    int
	heartbeatErr  error
	heartbeatSeen chan struct{}
}

func (r *recordingRegistrar) Register(_ context.Context, _ string, _ json.RawMessage, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registers++
	return nil
}

func (r *recordingRegistrar) Heartbeat(_ context.Context, _ string, _ time.Time) error {
	r.mu.Lock()
	r.heartbeats++
	err := r.heartbeatErr
	r.mu.Unlock()
	if r.heartbeatSeen != nil {
		select {
		case r.heartbeatSeen <- struct{}{}:
		default:
		}
	}
	return err
}

func (r *recordingRegistrar) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registers, r.heartbeats
}

func TestHeartbeater_RegistersThenBeats(t *testing.T) {
	reg := &recordingRegistrar{heartbeatSeen: make(chan struct{}, 1)}
	h := &Heartbeater{
		Name:     "alpha",
		Card:     json.RawMessage(`{"name":"alpha"}`),
		Interval: 5 * time.Millisecond,
		ExpireAt: func() time.Time { return time.Now().Add(time.Minute) },
		Registry: reg,
		Logger:   zap.NewNop(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	select {
	case <-reg.heartbeatSeen:
	case <-time.After(time.Second):
		t.Fatal("no heartbeat observed")
	}
	cancel()
	require.NoError(t, <-done)

	registers, heartbeats := reg.counts()
	assert.Equal(t, 1, registers, "exactly one initial registration")
	assert.GreaterOrEqual(t, heartbeats, 1)
}

func TestHeartbeater_SurvivesHeartbeatFailures(t *testing.T) {
	reg := &recordingRegistrar{
		heartbeatErr:  errors.New("store down"),
		heartbeatSeen: make(chan struct{}, 1),
	}
	h := &Heartbeater{
		Name:     "alpha",
		Card:     json.RawMessage(`{"name":"alpha"}`),
		Interval: 5 * time.Millisecond,
		ExpireAt: func() time.Time { return time.Now().Add(time.Minute) },
		Registry: reg,
		Logger:   zap.NewNop(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	// Wait for at least two failing ticks; the loop must keep running.
	for i := 0; i < 2; i++ {
		select {
		case <-reg.heartbeatSeen:
		case <-time.After(time.Second):
			t.Fatal("heartbeat loop stopped after failure")
		}
	}
	cancel()
	require.NoError(t, <-done, "heartbeat failures are contained, never returned")
}

func TestHeartbeater_InitialRegistrationErrorSurfaces(t *testing.T) {
	dir := NewAgentDirectory(NewMemoryStore(), zap.NewNop())
	h := &Heartbeater{
		// Empty card is fine; an empty name is the precondition failure.
		Name:     "",
		Interval: time.Second,
		ExpireAt: func() time.Time { return time.Now().Add(time.Minute) },
		Registry: dir,
	}
	assert.ErrorIs(t, h.Run(context.Background()), ErrMissingName)
}

func TestHeartbeater_AgainstDirectory(t *testing.T) {
	store := NewMemoryStore()
	dir := NewAgentDirectory(store, zap.NewNop())
	h := &Heartbeater{
		Name:     "alpha",
		Card:     json.RawMessage(`{"name":"alpha"}`),
		Interval: 5 * time.Millisecond,
		ExpireAt: func() time.Time { return time.Now().Add(time.Minute) },
		Registry: dir,
		Logger:   zap.NewNop(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, h.Run(ctx))

	card, ok, err := dir.Get(context.Background(), "alpha")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"name":"alpha"}`, string(card))
}
