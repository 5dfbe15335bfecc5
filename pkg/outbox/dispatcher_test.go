package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubEventSource struct {
	pending []*Event
	sent    []int64
	failed  []int64
}

func (s *stubEventSource) GetPendingEvents(ctx context.Context, limit int) ([]*Event, error) {
	if len(s.pending) > limit {
		return s.pending[:limit], nil
	}
	return s.pending, nil
}

func (s *stubEventSource) MarkAsSent(ctx context.Context, eventID int64) error {
	s.sent = append(s.sent, eventID)
	return nil
}

func (s *stubEventSource) MarkAsFailed(ctx context.Context, eventID int64, maxRetries int) error {
	s.failed = append(s.failed, eventID)
	return nil
}

type stubPublisher struct {
	published []string
	err       error
}

func (p *stubPublisher) PublishWithContext(ctx context.Context, routingKey string, payload any) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, routingKey)
	return nil
}

func pendingEvent(id int64, routingKey string) *Event {
	return &Event{
		ID:         id,
		RoutingKey: routingKey,
		Payload:    json.RawMessage(`{"lead_id":1,"trace_id":"abc123"}`),
	}
}

func TestDispatcherPublishesAndMarksSent(t *testing.T) {
	source := &stubEventSource{pending: []*Event{
		pendingEvent(1, "lead.stage_changed"),
		pendingEvent(2, "activity.completed"),
	}}
	pub := &stubPublisher{}

	d := NewDispatcher(source, pub, zap.NewNop())
	d.ProcessPendingEvents(context.Background())

	require.Equal(t, []string{"lead.stage_changed", "activity.completed"}, pub.published)
	require.Equal(t, []int64{1, 2}, source.sent)
	require.Empty(t, source.failed)
}

func TestDispatcherMarksFailedOnPublishError(t *testing.T) {
	source := &stubEventSource{pending: []*Event{
		pendingEvent(1, "lead.stage_changed"),
	}}
	pub := &stubPublisher{err: errors.New("broker unavailable")}

	d := NewDispatcher(source, pub, zap.NewNop())
	d.ProcessPendingEvents(context.Background())

	require.Empty(t, source.sent)
	require.Equal(t, []int64{1}, source.failed)
}

func TestDispatcherRespectsBatchSize(t *testing.T) {
	source := &stubEventSource{pending: []*Event{
		pendingEvent(1, "a"),
		pendingEvent(2, "b"),
		pendingEvent(3, "c"),
	}}
	pub := &stubPublisher{}

	d := NewDispatcher(source, pub, zap.NewNop()).WithBatchSize(2)
	d.ProcessPendingEvents(context.Background())

	require.Len(t, pub.published, 2)
}
