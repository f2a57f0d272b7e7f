package kafka

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// ConsumerHook runs around message handling. BeforeHandle may rewrite the
// payload or reject it; a rejected message skips the handler.
type ConsumerHook interface {
	BeforeHandle(ctx context.Context, topic string, data []byte) (context.Context, []byte, error)
	AfterHandle(ctx context.Context, topic string, data []byte, err error)
	OnError(ctx context.Context, topic string, data []byte, err error)
}

// NoopHook does nothing.
type NoopHook struct{}

func (NoopHook) BeforeHandle(ctx context.Context, _ string, data []byte) (context.Context, []byte, error) {
	return ctx, data, nil
}

func (NoopHook) AfterHandle(context.Context, string, []byte, error) {}

func (NoopHook) OnError(context.Context, string, []byte, error) {}

// HookFuncs adapts optional functions to ConsumerHook.
type HookFuncs struct {
	Before func(ctx context.Context, topic string, data []byte) (context.Context, []byte, error)
	After  func(ctx context.Context, topic string, data []byte, err error)
	Error  func(ctx context.Context, topic string, data []byte, err error)
}

func (h HookFuncs) BeforeHandle(ctx context.Context, topic string, data []byte) (context.Context, []byte, error) {
	if h.Before == nil {
		return ctx, data, nil
	}
	return h.Before(ctx, topic, data)
}

func (h HookFuncs) AfterHandle(ctx context.Context, topic string, data []byte, err error) {
	if h.After != nil {
		h.After(ctx, topic, data, err)
	}
}

func (h HookFuncs) OnError(ctx context.Context, topic string, data []byte, err error) {
	if h.Error != nil {
		h.Error(ctx, topic, data, err)
	}
}

type ctxKey string

const traceIDKey ctxKey = "trace_id"

// TraceHeader is the message header carrying a trace id.
const TraceHeader = "trace-id"

// WithTraceID stores id in ctx. Empty ids are ignored.
func WithTraceID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, traceIDKey, id)
}

// TraceID returns the trace id stored in ctx, if any.
func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey).(string)
	return id
}

// ExtractTraceID reads the trace header from msg.
func ExtractTraceID(msg kafka.Message) string {
	for _, h := range msg.Headers {
		if h.Key == TraceHeader {
			return string(h.Value)
		}
	}
	return ""
}

func safeAfter(h ConsumerHook, ctx context.Context, topic string, data []byte, err error) {
	defer func() { _ = recover() }()
	h.AfterHandle(ctx, topic, data, err)
}

func safeOnError(h ConsumerHook, ctx context.Context, topic string, data []byte, err error) {
	defer func() { _ = recover() }()
	h.OnError(ctx, topic, data, err)
}

// RejectError marks a payload the hook refused; the handler is not retried.
type RejectError struct {
	Topic string
	Err   error
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("kafka hook rejected message on %s: %v", e.Topic, e.Err)
}

func (e *RejectError) Unwrap() error { return e.Err }
