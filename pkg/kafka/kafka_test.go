package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *memWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *memWriter) Close() error { return nil }

func TestProducerEncodesValues(t *testing.T) {
	w := &memWriter{}
	p := NewProducerWithWriter(w, "gzip")

	err := p.PublishBatch(context.Background(), "tx", []Message{
		{Key: []byte("a"), Value: map[string]int{"500": 1}},
		{Key: []byte("b"), Value: "raw"},
		{Key: []byte("c"), Value: []byte("bytes")},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 3)
	assert.Equal(t, `{"500":1}`, string(w.msgs[0].Value))
	assert.Equal(t, "raw", string(w.msgs[1].Value))
	assert.Equal(t, "bytes", string(w.msgs[2].Value))
	assert.Equal(t, "tx", w.msgs[0].Topic)

	assert.NoError(t, p.PublishBatch(context.Background(), "tx", nil))
}

func TestProducerPropagatesWriteError(t *testing.T) {
	p := NewProducerWithWriter(&memWriter{err: errors.New("down")}, "gzip")
	assert.Error(t, p.Publish(context.Background(), "tx", nil, "x"))
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer()
	assert.Error(t, err)
	_, err = NewConsumer()
	assert.Error(t, err)
}

func TestParseCompression(t *testing.T) {
	assert.Equal(t, kafka.Snappy, parseCompression("snappy"))
	assert.Equal(t, kafka.Lz4, parseCompression("lz4"))
	assert.Equal(t, kafka.Zstd, parseCompression("zstd"))
	assert.Equal(t, kafka.Gzip, parseCompression(""))
}

func TestBackoffWithJitterBounds(t *testing.T) {
	min, max := 10*time.Millisecond, 80*time.Millisecond
	for attempt := 1; attempt <= 6; attempt++ {
		d := backoffWithJitter(min, max, attempt)
		assert.GreaterOrEqual(t, d, min)
		assert.LessOrEqual(t, d, max+max/5)
	}
}

func TestTraceID(t *testing.T) {
	msg := kafka.Message{Headers: []kafka.Header{{Key: TraceHeader, Value: []byte("abc")}}}
	ctx := WithTraceID(context.Background(), ExtractTraceID(msg))
	assert.Equal(t, "abc", TraceID(ctx))
	assert.Equal(t, "", TraceID(context.Background()))
}

func TestHookFuncsDefaults(t *testing.T) {
	var h ConsumerHook = HookFuncs{}
	ctx, data, err := h.BeforeHandle(context.Background(), "t", []byte("x"))
	require.NoError(t, err)
	assert.NotNil(t, ctx)
	assert.Equal(t, []byte("x"), data)

	called := false
	h = HookFuncs{After: func(context.Context, string, []byte, error) { panic("boom") },
		Error: func(context.Context, string, []byte, error) { called = true }}
	assert.NotPanics(t, func() { safeAfter(h, context.Background(), "t", nil, nil) })
	safeOnError(h, context.Background(), "t", nil, errors.New("x"))
	assert.True(t, called)
}
