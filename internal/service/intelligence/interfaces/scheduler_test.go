package interfaces

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promo-intelligence/internal/service/intelligence/application"
	"promo-intelligence/internal/service/intelligence/domain"
)

type fakeRunner struct {
	mu      sync.Mutex
	venues  []string
	listErr error
	failing map[string]bool
	runs    []string
	thresh  []float64
}

func (f *fakeRunner) ActiveVenueIDs(context.Context) ([]string, error) {
	return f.venues, f.listErr
}

func (f *fakeRunner) RunAutomation(_ context.Context, venueID string, threshold float64) (*application.AutoPostResult, error) {
	f.mu.Lock()
	f.runs = append(f.runs, venueID)
	f.thresh = append(f.thresh, threshold)
	f.mu.Unlock()
	if f.failing[venueID] {
		return nil, errors.Wrap(domain.ErrLockNotAcquired, venueID)
	}
	return &application.AutoPostResult{
		VenueID: venueID,
		Posted:  []application.PostedPromotion{{}},
		Pending: []domain.Suggestion{{}, {}},
	}, nil
}

func (f *fakeRunner) runVenues() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.runs...)
}

func TestScheduler_RunOnceContinuesAfterFailure(t *testing.T) {
	runner := &fakeRunner{venues: []string{"a", "b", "c"}, failing: map[string]bool{"b": true}}
	s := NewAutomationScheduler(runner, time.Hour, 0.9)

	stats := s.RunOnce(context.Background())
	assert.Equal(t, []string{"a", "b", "c"}, runner.runVenues())
	assert.Equal(t, SweepStats{Venues: 3, Posted: 2, Pending: 4, Failed: 1}, stats)
	assert.Equal(t, []float64{0.9, 0.9, 0.9}, runner.thresh)
}

func TestScheduler_ListFailure(t *testing.T) {
	runner := &fakeRunner{listErr: errors.New("db down")}
	stats := NewAutomationScheduler(runner, time.Hour, 0).RunOnce(context.Background())
	assert.Zero(t, stats)
	assert.Empty(t, runner.runVenues())
}

func TestScheduler_StopsOnCancel(t *testing.T) {
	runner := &fakeRunner{venues: []string{"a"}}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewAutomationScheduler(runner, time.Hour, 0).Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(runner.runVenues()) == 1 }, time.Second, 10*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

// fakeReader 按顺序吐出预置消息，耗尽后阻塞到 ctx 取消
type fakeReader struct {
	mu        sync.Mutex
	messages  []kafka.Message
	committed []kafka.Message
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.messages) > 0 {
		msg := r.messages[0]
		r.messages = r.messages[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeReader) committedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

func TestAutomationTriggerConsumer(t *testing.T) {
	payload, err := json.Marshal(AutomationTrigger{VenueID: "v1", Threshold: 0.95})
	require.NoError(t, err)
	reader := &fakeReader{messages: []kafka.Message{
		{Value: payload},
		{Key: []byte("v2"), Value: []byte("not json")},
		{Value: []byte("garbage")},
	}}
	runner := &fakeRunner{}

	ctx, cancel := context.WithCancel(context.Background())
	consumer := NewAutomationTriggerConsumer(reader, runner)
	consumer.Start(ctx)

	require.Eventually(t, func() bool { return reader.committedCount() == 3 }, time.Second, 10*time.Millisecond)
	cancel()
	consumer.Stop()

	assert.Equal(t, []string{"v1", "v2"}, runner.runVenues())
	assert.Equal(t, []float64{0.95, 0}, runner.thresh)
	assert.True(t, reader.closed)
}
