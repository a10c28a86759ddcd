package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/tribute/internal/model"
	"github.com/xxxsen/tribute/internal/stream"
)

const (
	structuredPath = "/api/v1/artifact/stream"
	modePath       = "/api/v1/artifact/ui"
)

type Config struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// StartParams describes one exchange. With Mode set the mode endpoint is
// used and Prompt becomes the description.
type StartParams struct {
	Prompt   string
	Document string
	History  []model.ChatMessage
	EntryID  string
	DocType  model.DocType
	Mode     string
	Title    string
	Context  string
}

// State is a copy of the live view of a stream.
type State struct {
	Assistant   string
	Document    string
	Suggestions []stream.Suggestion
	Error       string
	Done        bool
	Running     bool
}

// Stream consumes one server stream at a time. OnUpdate fires after every
// event that changed the texts; OnDone fires once, on the server's done
// event only.
type Stream struct {
	cfg Config

	OnUpdate func(assistant, document string)
	OnDone   func(message, document string)

	mu      sync.Mutex
	acc     stream.Accumulator
	running bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(cfg Config) *Stream {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Stream{cfg: cfg}
}

// Start begins a stream and returns false without doing anything when one
// is already running.
func (s *Stream) Start(ctx context.Context, p StartParams) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	ctx, cancel := context.WithCancel(ctx)
	s.acc = stream.Accumulator{}
	s.running = true
	s.stopped = false
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx, p, s.done)
	return true
}

// Stop aborts the running stream. Text received so far stays visible and no
// error is recorded.
func (s *Stream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.stopped = true
	s.cancel()
}

// Wait blocks until the current stream has settled.
func (s *Stream) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (s *Stream) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	suggestions := make([]stream.Suggestion, len(s.acc.Suggestions))
	copy(suggestions, s.acc.Suggestions)
	return State{
		Assistant:   s.acc.Assistant,
		Document:    s.acc.Document,
		Suggestions: suggestions,
		Error:       s.acc.Error,
		Done:        s.acc.Done,
		Running:     s.running,
	}
}

func (s *Stream) run(ctx context.Context, p StartParams, done chan struct{}) {
	defer close(done)
	defer func() {
		s.mu.Lock()
		s.running = false
		s.cancel()
		s.mu.Unlock()
	}()
	err := s.consume(ctx, p)
	if err == nil || ctx.Err() != nil {
		return
	}
	logutil.GetLogger(ctx).Warn("stream consume failed", zap.Error(err))
	s.mu.Lock()
	if s.acc.Error == "" && !s.acc.Done {
		s.acc.Error = err.Error()
	}
	s.mu.Unlock()
}

func (s *Stream) consume(ctx context.Context, p StartParams) error {
	path, body := requestBody(p)
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if s.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	}
	resp, err := s.cfg.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType != "text/event-stream" {
		return rejection(resp.Body)
	}
	err = stream.Scan(resp.Body, s.apply)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return errors.New("stream interrupted")
	}
	return err
}

func (s *Stream) apply(ev stream.Event) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return context.Canceled
	}
	s.acc.Apply(ev)
	assistant, document := s.acc.Assistant, s.acc.Document
	s.mu.Unlock()

	switch ev.Kind {
	case stream.KindClear, stream.KindDelta, stream.KindSnapshot:
		if s.OnUpdate != nil {
			s.OnUpdate(assistant, document)
		}
	case stream.KindDone:
		if s.OnDone != nil {
			s.OnDone(assistant, document)
		}
	}
	return nil
}

type envelope struct {
	Code    int    `json:"code"`
	Msg     string `json:"msg"`
	Message string `json:"message"`
}

// rejection turns a JSON error envelope sent before the stream into an error.
func rejection(r io.Reader) error {
	var env envelope
	if err := json.NewDecoder(io.LimitReader(r, 1<<20)).Decode(&env); err != nil {
		return fmt.Errorf("unexpected response: %w", err)
	}
	msg := env.Msg
	if msg == "" {
		msg = env.Message
	}
	if msg == "" {
		msg = "request rejected"
	}
	return fmt.Errorf("%s (code %d)", msg, env.Code)
}

func requestBody(p StartParams) (string, interface{}) {
	var entryID *string
	if p.EntryID != "" {
		id := p.EntryID
		entryID = &id
	}
	if p.Mode != "" {
		return modePath, map[string]interface{}{
			"mode":        p.Mode,
			"title":       p.Title,
			"context":     p.Context,
			"description": p.Prompt,
			"entry_id":    entryID,
			"doc_type":    string(p.DocType),
		}
	}
	history := p.History
	if history == nil {
		history = []model.ChatMessage{}
	}
	return structuredPath, map[string]interface{}{
		"prompt":   p.Prompt,
		"document": p.Document,
		"history":  history,
		"entry_id": entryID,
		"doc_type": string(p.DocType),
	}
}
