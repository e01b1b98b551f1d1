package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pds-auth/internal/telemetry/domain"
)

// recordingEmitter implements EventEmitter for tests.
type recordingEmitter struct {
	mu      sync.Mutex
	events  []*domain.Event
	ctxErrs []error
	emitErr error
}

func (m *recordingEmitter) Emit(ctx context.Context, event *domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	m.ctxErrs = append(m.ctxErrs, ctx.Err())
	return m.emitErr
}

func (m *recordingEmitter) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func TestEmitAsync_NilArguments(t *testing.T) {
	EmitAsync(nil, context.Background(), &domain.Event{Type: domain.EventLogin})

	emitter := &recordingEmitter{}
	EmitAsync(emitter, context.Background(), nil)
	time.Sleep(10 * time.Millisecond)
	assert.Zero(t, emitter.count())
}

func TestEmitAsync_Emits(t *testing.T) {
	emitter := &recordingEmitter{}
	EmitAsync(emitter, context.Background(), &domain.Event{Type: domain.EventLogin, AccountID: "acc-1", Outcome: domain.OutcomeSuccess})

	require.Eventually(t, func() bool { return emitter.count() == 1 }, time.Second, 5*time.Millisecond)
	emitter.mu.Lock()
	defer emitter.mu.Unlock()
	assert.Equal(t, "acc-1", emitter.events[0].AccountID)
	assert.False(t, emitter.events[0].CreatedAt.IsZero(), "CreatedAt should be stamped")
}

func TestEmitAsync_IgnoresRequestCancellation(t *testing.T) {
	emitter := &recordingEmitter{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	EmitAsync(emitter, ctx, &domain.Event{Type: domain.EventLogout})

	require.Eventually(t, func() bool { return emitter.count() == 1 }, time.Second, 5*time.Millisecond)
	emitter.mu.Lock()
	defer emitter.mu.Unlock()
	assert.NoError(t, emitter.ctxErrs[0])
}

func TestEmitAsync_ErrorDoesNotPanic(t *testing.T) {
	emitter := &recordingEmitter{emitErr: errors.New("broker down")}
	EmitAsync(emitter, context.Background(), &domain.Event{Type: domain.EventRefresh})
	require.Eventually(t, func() bool { return emitter.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestMulti(t *testing.T) {
	a, b := &recordingEmitter{}, &recordingEmitter{emitErr: errors.New("b failed")}
	m := Multi(a, nil, b)

	err := m.Emit(context.Background(), &domain.Event{Type: domain.EventLogin})
	assert.EqualError(t, err, "b failed")
	assert.Equal(t, 1, a.count())
	assert.Equal(t, 1, b.count())

	assert.NoError(t, Multi().Emit(context.Background(), &domain.Event{}))
}
