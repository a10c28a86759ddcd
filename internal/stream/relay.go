package stream

import (
	"context"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/xxxsen/tribute/internal/pkg/errors"
)

// Relay forwards events to a sink in order and lets exactly one terminal
// event through.
type Relay struct {
	mu     sync.Mutex
	sink   Sink
	closed bool
}

func NewRelay(sink Sink) *Relay {
	return &Relay{sink: sink}
}

func (r *Relay) Emit(ev Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return appErr.ErrStreamClosed
	}
	if ev.Terminal() {
		r.closed = true
	}
	return r.sink.Emit(ev)
}

func (r *Relay) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// ProduceFunc generates the body of a stream through emit and returns the
// final result. A nil result finishes with an empty done event.
type ProduceFunc func(ctx context.Context, emit func(Event) error) (*Result, error)

// ErrorText maps a produce failure to the message shown to the client.
type ErrorText func(err error) string

// Run emits start, runs produce and closes the stream with done or error.
// A canceled ctx means the client went away: no terminal event is sent and
// nothing is reported.
func Run(ctx context.Context, sink Sink, produce ProduceFunc, errText ErrorText) {
	logger := logutil.GetLogger(ctx)
	r := NewRelay(sink)
	if err := r.Emit(Start()); err != nil {
		logger.Debug("stream start failed", zap.Error(err))
		return
	}
	res, err := produce(ctx, r.Emit)
	if ctx.Err() != nil {
		logger.Debug("stream aborted by client")
		return
	}
	if r.Closed() {
		return
	}
	if err != nil {
		msg := "stream failed"
		if errText != nil {
			msg = errText(err)
		}
		logger.Error("stream failed", zap.Error(err))
		if emitErr := r.Emit(Fail(msg)); emitErr != nil {
			logger.Debug("emit error event failed", zap.Error(emitErr))
		}
		return
	}
	if emitErr := r.Emit(Done(res)); emitErr != nil {
		logger.Debug("emit done event failed", zap.Error(emitErr))
		return
	}
	logger.Debug("stream finished")
}
