package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "rentspace/internal/app/outbox"
)

type sliceSource struct {
	mu       sync.Mutex
	pending  []*Pending
	sent     []string
	failures map[string]int
}

func (s *sliceSource) Claim(context.Context, string) (*Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return nil, nil
	}
	p := s.pending[0]
	s.pending = s.pending[1:]
	return p, nil
}

func (s *sliceSource) MarkSent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, id)
	return nil
}

func (s *sliceSource) MarkFailed(_ context.Context, id string, _ time.Time, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures == nil {
		s.failures = map[string]int{}
	}
	s.failures[id]++
	return nil
}

type published struct {
	topic   string
	key     string
	payload []byte
	headers map[string]string
}

type captureProducer struct {
	fail error
	got  []published
}

func (p *captureProducer) Publish(_ context.Context, topic, key string, payload []byte, headers map[string]string) error {
	if p.fail != nil {
		return p.fail
	}
	p.got = append(p.got, published{topic: topic, key: key, payload: payload, headers: headers})
	return nil
}

func record(id, name, aggregate string) *Pending {
	return &Pending{Record: appoutbox.EventRecord{
		ID:         id,
		Name:       name,
		Aggregate:  aggregate,
		Payload:    []byte(`{"BookingID":"` + aggregate + `"}`),
		OccurredAt: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC),
		Headers:    map[string]string{"traceparent": "00-abc-def-01"},
	}}
}

func TestDrainPublishesCloudEvents(t *testing.T) {
	src := &sliceSource{pending: []*Pending{record("evt-1", "booking.requested", "bkg-1"), record("evt-2", "review.submitted", "rev-1")}}
	producer := &captureProducer{}
	w := &Worker{Store: src, Producer: producer, TopicPrefix: "test."}

	require.NoError(t, w.Drain(context.Background()))

	assert.Equal(t, []string{"evt-1", "evt-2"}, src.sent)
	require.Len(t, producer.got, 2)
	first := producer.got[0]
	assert.Equal(t, "test.booking.events.v1", first.topic)
	assert.Equal(t, "bkg-1", first.key)
	assert.Equal(t, "evt-1", first.headers["ce_id"])
	assert.Equal(t, "booking.requested.v1", first.headers["ce_type"])
	assert.Equal(t, "00-abc-def-01", first.headers["traceparent"])
	assert.Equal(t, "test.review.events.v1", producer.got[1].topic)

	var evt map[string]any
	require.NoError(t, json.Unmarshal(first.payload, &evt))
	assert.Equal(t, "1.0", evt["specversion"])
	assert.Equal(t, "evt-1", evt["id"])
	assert.Equal(t, "app://rentspace", evt["source"])
	assert.Equal(t, "bkg-1", evt["subject"])
	assert.Equal(t, map[string]any{"BookingID": "bkg-1"}, evt["data"])
}

func TestDrainStopsOnPublishFailure(t *testing.T) {
	src := &sliceSource{pending: []*Pending{record("evt-1", "booking.paid", "bkg-1"), record("evt-2", "booking.paid", "bkg-2")}}
	w := &Worker{Store: src, Producer: &captureProducer{fail: errors.New("broker down")}, Backoff: []time.Duration{time.Second}}

	require.NoError(t, w.Drain(context.Background()))

	assert.Empty(t, src.sent)
	assert.Equal(t, map[string]int{"evt-1": 1}, src.failures)
	assert.Len(t, src.pending, 1)
}

func TestDrainMarksUndecodablePayloadFailed(t *testing.T) {
	bad := record("evt-1", "booking.paid", "bkg-1")
	bad.Record.Payload = []byte("not json")
	src := &sliceSource{pending: []*Pending{bad, record("evt-2", "booking.paid", "bkg-2")}}
	producer := &captureProducer{}
	w := &Worker{Store: src, Producer: producer}

	require.NoError(t, w.Drain(context.Background()))

	assert.Equal(t, map[string]int{"evt-1": 1}, src.failures)
	assert.Equal(t, []string{"evt-2"}, src.sent)
}

func TestNextRetryUsesBackoffSchedule(t *testing.T) {
	w := &Worker{Backoff: []time.Duration{time.Second, time.Minute}}

	assert.WithinDuration(t, time.Now().Add(time.Second), w.nextRetry(0), 100*time.Millisecond)
	assert.WithinDuration(t, time.Now().Add(time.Minute), w.nextRetry(1), 100*time.Millisecond)
	assert.WithinDuration(t, time.Now().Add(time.Minute), w.nextRetry(7), 100*time.Millisecond)
	assert.WithinDuration(t, time.Now().Add(5*time.Second), (&Worker{}).nextRetry(0), 100*time.Millisecond)
}

func TestRunRequiresDependencies(t *testing.T) {
	assert.ErrorIs(t, (&Worker{}).Run(context.Background()), ErrWorkerNotConfigured)
}
