package stream

import (
	"io"
	"net/http"
	"sync"

	"github.com/gin-contrib/sse"

	appErr "github.com/xxxsen/tribute/internal/pkg/errors"
)

// Sink receives the events of one stream. Implementations serialize writes.
type Sink interface {
	Emit(ev Event) error
}

// Encode writes one event block: "event:<kind>\ndata:<json>\n\n".
func Encode(w io.Writer, ev Event) error {
	data, err := ev.MarshalData()
	if err != nil {
		return err
	}
	return sse.Encode(w, sse.Event{Event: string(ev.Kind), Data: data})
}

type SSEWriter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter sends the event-stream headers and returns a sink over w.
func NewSSEWriter(w http.ResponseWriter) *SSEWriter {
	h := w.Header()
	h.Set("Content-Type", sse.ContentType)
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	s := &SSEWriter{w: w, flusher: flusher}
	s.flush()
	return s
}

func (s *SSEWriter) Emit(ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := Encode(s.w, ev); err != nil {
		return err
	}
	s.flush()
	return nil
}

func (s *SSEWriter) flush() {
	if s.flusher != nil {
		s.flusher.Flush()
	}
}

// Recorder keeps events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Emit(ev Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return appErr.ErrStreamClosed
	}
	r.events = append(r.events, ev)
	if ev.Terminal() {
		r.closed = true
	}
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *Recorder) Kinds() []Kind {
	events := r.Events()
	out := make([]Kind, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Kind)
	}
	return out
}
