package service

import (
	"context"
	"strings"
	"sync"

	"github.com/xxxsen/tribute/internal/ai"
	"github.com/xxxsen/tribute/internal/model"
	appErr "github.com/xxxsen/tribute/internal/pkg/errors"
	"github.com/xxxsen/tribute/internal/repo"
)

type memDocs struct {
	mu        sync.Mutex
	rows      map[string]*model.Document
	insertErr error
	updateErr error
	// beforeInsert runs inside Insert, used to simulate a racing writer.
	beforeInsert func(m *memDocs)
}

func newMemDocs() *memDocs {
	return &memDocs{rows: map[string]*model.Document{}}
}

func (m *memDocs) put(doc model.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[doc.ID] = &doc
}

func (m *memDocs) live() []model.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Document
	for _, d := range m.rows {
		if d.State == repo.DocumentStateNormal {
			out = append(out, *d)
		}
	}
	return out
}

func (m *memDocs) findLocked(userID, entryID string, docType model.DocType) *model.Document {
	for _, d := range m.rows {
		if d.UserID == userID && d.EntryID == entryID && d.DocType == docType && d.State == repo.DocumentStateNormal {
			return d
		}
	}
	return nil
}

func (m *memDocs) Find(ctx context.Context, userID, entryID string, docType model.DocType) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.findLocked(userID, entryID, docType)
	if d == nil {
		return nil, appErr.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *memDocs) Insert(ctx context.Context, doc *model.Document) error {
	if m.beforeInsert != nil {
		m.beforeInsert(m)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	if m.findLocked(doc.UserID, doc.EntryID, doc.DocType) != nil {
		return appErr.ErrConflict
	}
	cp := *doc
	m.rows[doc.ID] = &cp
	return nil
}

func (m *memDocs) UpdateContent(ctx context.Context, docID, title, content string, mtime int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	d, ok := m.rows[docID]
	if !ok || d.State != repo.DocumentStateNormal {
		return appErr.ErrNotFound
	}
	d.Title, d.Content, d.Mtime = title, content, mtime
	return nil
}

func (m *memDocs) GetByID(ctx context.Context, userID, docID string) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.rows[docID]
	if !ok || d.UserID != userID || d.State != repo.DocumentStateNormal {
		return nil, appErr.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *memDocs) GetByShareToken(ctx context.Context, token string) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.rows {
		if token != "" && d.ShareToken == token && d.IsPublic == 1 && d.State == repo.DocumentStateNormal {
			cp := *d
			return &cp, nil
		}
	}
	return nil, appErr.ErrNotFound
}

func (m *memDocs) SetShare(ctx context.Context, userID, docID string, isPublic int, token, passwordHash string, mtime int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.rows[docID]
	if !ok || d.UserID != userID || d.State != repo.DocumentStateNormal {
		return appErr.ErrNotFound
	}
	d.IsPublic, d.ShareToken, d.SharePasswordHash, d.Mtime = isPublic, token, passwordHash, mtime
	return nil
}

func (m *memDocs) ListByUser(ctx context.Context, userID string) ([]model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Document, 0)
	for _, d := range m.rows {
		if d.UserID == userID && d.State == repo.DocumentStateNormal {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *memDocs) SoftDelete(ctx context.Context, userID, docID string, mtime int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.rows[docID]
	if !ok || d.UserID != userID || d.State != repo.DocumentStateNormal {
		return appErr.ErrNotFound
	}
	d.State = repo.DocumentStateDeleted
	d.Mtime = mtime
	return nil
}

type memMsgs struct {
	mu   sync.Mutex
	seq  int64
	rows []model.Message
	err  error
}

func (m *memMsgs) Append(ctx context.Context, docID string, msgs []model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, msg := range msgs {
		m.seq++
		msg.DocumentID = docID
		msg.Seq = m.seq
		m.rows = append(m.rows, msg)
	}
	return nil
}

func (m *memMsgs) ListByDocument(ctx context.Context, docID string) ([]model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Message, 0)
	for _, msg := range m.rows {
		if msg.DocumentID == docID {
			out = append(out, msg)
		}
	}
	return out, nil
}

type memSuggestions struct {
	mu   sync.Mutex
	rows []model.Suggestion
}

func (m *memSuggestions) SaveBatch(ctx context.Context, items []model.Suggestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, items...)
	return nil
}

func (m *memSuggestions) ListByDocument(ctx context.Context, userID, docID string) ([]model.Suggestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Suggestion, 0)
	for _, s := range m.rows {
		if s.UserID == userID && s.DocumentID == docID {
			out = append(out, s)
		}
	}
	return out, nil
}

type memEntries struct {
	mu   sync.Mutex
	rows map[string]*model.Entry
}

func newMemEntries() *memEntries {
	return &memEntries{rows: map[string]*model.Entry{}}
}

func (m *memEntries) Create(ctx context.Context, entry *model.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *entry
	m.rows[entry.ID] = &cp
	return nil
}

func (m *memEntries) GetByID(ctx context.Context, userID, entryID string) (*model.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[entryID]
	if !ok || e.UserID != userID || e.State != repo.EntryStateNormal {
		return nil, appErr.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memEntries) ListByUser(ctx context.Context, userID string) ([]model.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Entry, 0)
	for _, e := range m.rows {
		if e.UserID == userID && e.State == repo.EntryStateNormal {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *memEntries) Update(ctx context.Context, entry *model.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[entry.ID]
	if !ok || e.UserID != entry.UserID || e.State != repo.EntryStateNormal {
		return appErr.ErrNotFound
	}
	cp := *entry
	m.rows[entry.ID] = &cp
	return nil
}

func (m *memEntries) SoftDelete(ctx context.Context, userID, entryID string, mtime int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[entryID]
	if !ok || e.UserID != userID || e.State != repo.EntryStateNormal {
		return appErr.ErrNotFound
	}
	e.State = repo.EntryStateDeleted
	e.Mtime = mtime
	return nil
}

// fakeGateway replays chunks; failAt >= 0 makes it fail before that chunk.
type fakeGateway struct {
	mu              sync.Mutex
	calls           int
	object          *ai.ObjectResult
	chunks          []string
	failAt          int
	err             error
	suggestions     []ai.SuggestionResult
	lastCurrent     *string
	lastInstruction string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{failAt: -1}
}

func (g *fakeGateway) called() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func (g *fakeGateway) record(current *string, instruction string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.lastCurrent = current
	g.lastInstruction = instruction
}

func (g *fakeGateway) GenerateObject(ctx context.Context, history []model.ChatMessage, prompt, document string) (*ai.ObjectResult, error) {
	g.record(&document, prompt)
	if g.err != nil {
		return nil, g.err
	}
	cp := *g.object
	return &cp, nil
}

func (g *fakeGateway) StreamObject(ctx context.Context, history []model.ChatMessage, prompt, document string, onPartial func(ai.ObjectResult) error) (*ai.ObjectResult, error) {
	g.record(&document, prompt)
	var doc strings.Builder
	for i, c := range g.chunks {
		if i == g.failAt {
			return nil, g.err
		}
		doc.WriteString(c)
		if err := onPartial(ai.ObjectResult{Document: doc.String()}); err != nil {
			return nil, err
		}
	}
	if g.err != nil {
		return nil, g.err
	}
	cp := *g.object
	return &cp, nil
}

func (g *fakeGateway) StreamText(ctx context.Context, current *string, instruction string, onDelta ai.DeltaFunc) (string, error) {
	g.record(current, instruction)
	var out strings.Builder
	for i, c := range g.chunks {
		if i == g.failAt {
			return "", g.err
		}
		out.WriteString(c)
		if err := onDelta(c); err != nil {
			return "", err
		}
	}
	if g.err != nil {
		return "", g.err
	}
	return out.String(), nil
}

func (g *fakeGateway) GenerateSuggestions(ctx context.Context, content string) ([]ai.SuggestionResult, error) {
	g.record(&content, "")
	if g.err != nil {
		return nil, g.err
	}
	return g.suggestions, nil
}
