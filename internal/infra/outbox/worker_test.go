package outbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "staysync/internal/app/outbox"
	"staysync/internal/infra/obs"
	infraoutbox "staysync/internal/infra/outbox"
	"staysync/internal/infra/storage/memory"
)

type published struct {
	topic, key string
	payload    []byte
	headers    map[string]string
}

type recordingProducer struct {
	sent []published
	err  error
}

func (p *recordingProducer) Publish(ctx context.Context, topic, key string, payload []byte, headers map[string]string) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, published{topic: topic, key: key, payload: payload, headers: headers})
	return nil
}

func addEvent(t *testing.T, box *memory.Outbox, id, name string) {
	t.Helper()
	require.NoError(t, box.Add(context.Background(), appoutbox.EventRecord{
		ID:         id,
		Name:       name,
		Payload:    []byte(`{"property_id":"p1"}`),
		OccurredAt: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		Aggregate:  "p1",
		Headers:    map[string]string{"traceparent": "00-abc-def-01"},
	}))
}

func TestWorkerRelaysCloudEvents(t *testing.T) {
	box := memory.NewOutbox()
	addEvent(t, box, "evt-1", "booking.requested")
	producer := &recordingProducer{}
	w := &infraoutbox.Worker{Queue: box, Producer: producer, TopicPrefix: "stage.", Logger: obs.Discard()}

	sent, err := w.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, sent)
	require.Len(t, producer.sent, 1)

	msg := producer.sent[0]
	assert.Equal(t, "stage.booking.events.v1", msg.topic)
	assert.Equal(t, "p1", msg.key)
	assert.Equal(t, "application/cloudevents+json", msg.headers["content-type"])
	assert.Equal(t, "00-abc-def-01", msg.headers["traceparent"])

	var evt map[string]any
	require.NoError(t, json.Unmarshal(msg.payload, &evt))
	assert.Equal(t, "evt-1", evt["id"])
	assert.Equal(t, "booking.requested.v1", evt["type"])
	assert.Equal(t, "app://staysync", evt["source"])
	assert.Equal(t, map[string]any{"property_id": "p1"}, evt["data"])
	assert.Empty(t, box.Pending())

	sent, err = w.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, sent)
}

func TestWorkerBacksOffAfterPublishFailure(t *testing.T) {
	box := memory.NewOutbox()
	addEvent(t, box, "evt-1", "calendar.blocked")
	producer := &recordingProducer{err: errors.New("broker down")}
	w := &infraoutbox.Worker{Queue: box, Producer: producer, Backoff: []time.Duration{time.Hour}, Logger: obs.Discard()}

	sent, err := w.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Len(t, box.Pending(), 1)

	producer.err = nil
	sent, err = w.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, sent, "failed event waits for its backoff")
	assert.Empty(t, producer.sent)
}

func TestWorkerRequiresDependencies(t *testing.T) {
	err := (&infraoutbox.Worker{}).Run(context.Background())
	assert.ErrorIs(t, err, infraoutbox.ErrWorkerNotConfigured)
}
