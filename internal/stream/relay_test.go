package stream

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/tribute/internal/pkg/errors"
)

func countTerminal(events []Event) int {
	n := 0
	for _, ev := range events {
		if ev.Terminal() {
			n++
		}
	}
	return n
}

func TestRunSuccessEmitsOneDone(t *testing.T) {
	rec := NewRecorder()
	Run(context.Background(), rec, func(ctx context.Context, emit func(Event) error) (*Result, error) {
		for _, p := range []string{"a", "b", "c"} {
			require.NoError(t, emit(Delta(p)))
		}
		return &Result{Message: "ok", Document: "abc"}, nil
	}, nil)
	require.Equal(t, []Kind{KindStart, KindDelta, KindDelta, KindDelta, KindDone}, rec.Kinds())
	require.Equal(t, 1, countTerminal(rec.Events()))
}

func TestRunFailureEmitsOneError(t *testing.T) {
	rec := NewRecorder()
	Run(context.Background(), rec, func(ctx context.Context, emit func(Event) error) (*Result, error) {
		_ = emit(Delta("a"))
		return nil, errors.New("gateway exploded")
	}, func(error) string { return "generation failed" })
	events := rec.Events()
	require.Equal(t, 1, countTerminal(events))
	last := events[len(events)-1]
	require.Equal(t, KindError, last.Kind)
	require.Equal(t, "generation failed", last.Error)
}

func TestRunCanceledEmitsNoTerminal(t *testing.T) {
	rec := NewRecorder()
	ctx, cancel := context.WithCancel(context.Background())
	Run(ctx, rec, func(ctx context.Context, emit func(Event) error) (*Result, error) {
		_ = emit(Delta("a"))
		cancel()
		return nil, ctx.Err()
	}, nil)
	require.Zero(t, countTerminal(rec.Events()))
}

func TestRunProducerTerminalIsNotDuplicated(t *testing.T) {
	rec := NewRecorder()
	Run(context.Background(), rec, func(ctx context.Context, emit func(Event) error) (*Result, error) {
		require.NoError(t, emit(Done(nil)))
		require.ErrorIs(t, emit(Delta("late")), appErr.ErrStreamClosed)
		return &Result{Document: "x"}, nil
	}, nil)
	require.Equal(t, []Kind{KindStart, KindDone}, rec.Kinds())
}

func TestSSEWriterHeadersAndBody(t *testing.T) {
	w := httptest.NewRecorder()
	sink := NewSSEWriter(w)
	Run(context.Background(), sink, func(ctx context.Context, emit func(Event) error) (*Result, error) {
		return nil, emit(Delta("hi"))
	}, nil)
	require.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/event-stream"))
	require.Equal(t, "no", w.Header().Get("X-Accel-Buffering"))
	require.Equal(t, "event:start\ndata:{}\n\nevent:delta\ndata:{\"text\":\"hi\"}\n\nevent:done\ndata:null\n\n", w.Body.String())
	require.True(t, w.Flushed)
}
