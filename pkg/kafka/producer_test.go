package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestPublishEncodesJSON(t *testing.T) {
	w := &recordingWriter{}
	p := NewProducerWithWriter(w, "query-events")

	err := p.Publish(context.Background(), Event{Key: "701", Value: map[string]int{"hits": 3}})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "701", string(w.msgs[0].Key))
	assert.JSONEq(t, `{"hits":3}`, string(w.msgs[0].Value))
}

func TestPublishWrapsWriterError(t *testing.T) {
	boom := errors.New("broker down")
	p := NewProducerWithWriter(&recordingWriter{err: boom}, "query-events")
	assert.ErrorIs(t, p.Publish(context.Background(), Event{Key: "1", Value: 1}), boom)
}
