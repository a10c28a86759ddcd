package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/tribute/internal/ai"
	"github.com/xxxsen/tribute/internal/filestore"
	"github.com/xxxsen/tribute/internal/model"
	appErr "github.com/xxxsen/tribute/internal/pkg/errors"
	"github.com/xxxsen/tribute/internal/pkg/timeutil"
	"github.com/xxxsen/tribute/internal/repo"
)

var ErrAIUnavailable = ai.ErrUnavailable

var errEmptyResponse = errors.New("empty ai response")

const (
	defaultTitle = "Document"

	msgCreated     = "A document was created and is now visible to the user."
	msgUpdated     = "The document has been updated successfully."
	msgSuggestions = "Suggestions have been added to the document"
)

type ArtifactConfig struct {
	MaxInputChars int
	CacheSize     int
	CacheTTL      time.Duration
}

// Target names the single live document of a (user, entry, doc type) slot.
// An empty EntryID is the "no entry" scope.
type Target struct {
	UserID  string
	EntryID string
	DocType model.DocType
}

type UpdateInput struct {
	Target
	Prompt   string
	Document string
	History  []model.ChatMessage
}

type UpdateResult struct {
	Message  string `json:"message"`
	Document string `json:"document"`
}

type ArtifactView struct {
	Document *model.Document `json:"document"`
	Messages []model.Message `json:"messages"`
}

type ArtifactService struct {
	docs        DocumentStore
	msgs        MessageStore
	suggestions SuggestionStore
	entries     EntryStore
	gateway     Gateway
	files       filestore.Store
	cache       *expirable.LRU[string, UpdateResult]
	cfg         ArtifactConfig
	now         func() int64
}

func NewArtifactService(
	docs DocumentStore,
	msgs MessageStore,
	suggestions SuggestionStore,
	entries EntryStore,
	gateway Gateway,
	files filestore.Store,
	cfg ArtifactConfig,
) *ArtifactService {
	if cfg.MaxInputChars <= 0 {
		cfg.MaxInputChars = 4000
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 1024
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	return &ArtifactService{
		docs:        docs,
		msgs:        msgs,
		suggestions: suggestions,
		entries:     entries,
		gateway:     gateway,
		files:       files,
		cache:       expirable.NewLRU[string, UpdateResult](cfg.CacheSize, nil, cfg.CacheTTL),
		cfg:         cfg,
		now:         timeutil.NowUnix,
	}
}

// Update is the plain request/response path.
func (s *ArtifactService) Update(ctx context.Context, in UpdateInput) (*UpdateResult, error) {
	if err := s.validateUpdate(ctx, &in); err != nil {
		return nil, err
	}
	existing, err := s.find(ctx, in.Target)
	if err != nil {
		return nil, err
	}
	current := currentText(in.Document, existing)

	key := s.cacheKey(in.Target, in.Prompt, current, in.History)
	res, ok := s.cache.Get(key)
	if !ok {
		out, err := s.gateway.GenerateObject(ctx, in.History, in.Prompt, current)
		if err != nil {
			logutil.GetLogger(ctx).Error("generate document update failed", zap.String("user_id", in.UserID), zap.Error(err))
			return nil, err
		}
		res = UpdateResult{Message: out.Message, Document: out.Document}
		if strings.TrimSpace(res.Document) == "" {
			if strings.TrimSpace(current) == "" {
				return nil, errEmptyResponse
			}
			res.Document = current
		}
		s.cache.Add(key, res)
	}
	s.persist(ctx, in.Target, existing, "", res.Document, in.Prompt, res.Message)
	return &res, nil
}

// Get returns the live document of a slot with its conversation.
func (s *ArtifactService) Get(ctx context.Context, t Target) (*ArtifactView, error) {
	if err := s.validateTarget(ctx, &t); err != nil {
		return nil, err
	}
	doc, err := s.docs.Find(ctx, t.UserID, t.EntryID, t.DocType)
	if err != nil {
		return nil, err
	}
	msgs, err := s.msgs.ListByDocument(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	return &ArtifactView{Document: doc, Messages: msgs}, nil
}

// List returns the user's live documents, most recently changed first.
func (s *ArtifactService) List(ctx context.Context, userID string) ([]model.Document, error) {
	if userID == "" {
		return nil, appErr.ErrUnauthorized
	}
	return s.docs.ListByUser(ctx, userID)
}

// Delete soft-deletes a document. Its share link is revoked by the share
// cleanup job.
func (s *ArtifactService) Delete(ctx context.Context, userID, docID string) error {
	if userID == "" {
		return appErr.ErrUnauthorized
	}
	return s.docs.SoftDelete(ctx, userID, docID, s.now())
}

func (s *ArtifactService) ListSuggestions(ctx context.Context, userID, docID string) ([]model.Suggestion, error) {
	if userID == "" {
		return nil, appErr.ErrUnauthorized
	}
	if _, err := s.docs.GetByID(ctx, userID, docID); err != nil {
		return nil, err
	}
	return s.suggestions.ListByDocument(ctx, userID, docID)
}

func (s *ArtifactService) validateTarget(ctx context.Context, t *Target) error {
	if strings.TrimSpace(t.UserID) == "" {
		return appErr.ErrUnauthorized
	}
	t.EntryID = strings.TrimSpace(t.EntryID)
	if t.EntryID != "" && !isUUID(t.EntryID) {
		return fmt.Errorf("entry_id must be a uuid: %w", appErr.ErrInvalid)
	}
	docType, ok := model.ParseDocType(string(t.DocType))
	if !ok {
		return fmt.Errorf("unsupported doc_type %q: %w", t.DocType, appErr.ErrInvalid)
	}
	t.DocType = docType
	if t.EntryID == "" {
		return nil
	}
	if _, err := s.entries.GetByID(ctx, t.UserID, t.EntryID); err != nil {
		return err
	}
	return nil
}

func (s *ArtifactService) validateText(name, v string, required bool) error {
	if required && strings.TrimSpace(v) == "" {
		return fmt.Errorf("%s is required: %w", name, appErr.ErrInvalid)
	}
	if len([]rune(v)) > s.cfg.MaxInputChars {
		return fmt.Errorf("%s exceeds %d characters: %w", name, s.cfg.MaxInputChars, appErr.ErrInvalid)
	}
	return nil
}

func (s *ArtifactService) validateUpdate(ctx context.Context, in *UpdateInput) error {
	if strings.TrimSpace(in.UserID) == "" {
		return appErr.ErrUnauthorized
	}
	if err := s.validateText("prompt", in.Prompt, true); err != nil {
		return err
	}
	for i, h := range in.History {
		if !h.Role.Valid() {
			return fmt.Errorf("history[%d] has invalid role %q: %w", i, h.Role, appErr.ErrInvalid)
		}
	}
	return s.validateTarget(ctx, &in.Target)
}

func (s *ArtifactService) find(ctx context.Context, t Target) (*model.Document, error) {
	doc, err := s.docs.Find(ctx, t.UserID, t.EntryID, t.DocType)
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return doc, nil
}

// currentText prefers the text the client is looking at and falls back to
// the stored copy.
func currentText(requested string, existing *model.Document) string {
	if requested == "" && existing != nil {
		return existing.Content
	}
	return requested
}

// persist stores the exchange. Failures are logged only; the caller has
// already got its result. An empty title keeps the stored one.
func (s *ArtifactService) persist(ctx context.Context, t Target, existing *model.Document, title, content, userText, assistantText string) *model.Document {
	logger := logutil.GetLogger(ctx).With(
		zap.String("user_id", t.UserID),
		zap.String("entry_id", t.EntryID),
		zap.String("doc_type", string(t.DocType)),
	)
	now := s.now()
	doc := existing
	inserted := false
	if doc == nil {
		created := &model.Document{
			ID:      newID(),
			UserID:  t.UserID,
			EntryID: t.EntryID,
			DocType: t.DocType,
			Title:   orDefault(title, defaultTitle),
			Content: content,
			State:   repo.DocumentStateNormal,
			Ctime:   now,
			Mtime:   now,
		}
		err := s.docs.Insert(ctx, created)
		switch {
		case err == nil:
			doc = created
			inserted = true
		case appErr.IsConflict(err):
			found, ferr := s.docs.Find(ctx, t.UserID, t.EntryID, t.DocType)
			if ferr != nil {
				logger.Error("load document after insert conflict failed", zap.Error(ferr))
				return nil
			}
			doc = found
		default:
			logger.Error("insert document failed", zap.Error(err))
			return nil
		}
	}
	logger = logger.With(zap.String("document_id", doc.ID))
	if !inserted {
		title = orDefault(title, doc.Title)
		if err := s.docs.UpdateContent(ctx, doc.ID, title, content, now); err != nil {
			logger.Error("update document content failed", zap.Error(err))
			return nil
		}
		doc.Title = title
		doc.Content = content
		doc.Mtime = now
	}
	msgs := []model.Message{
		{ID: newID(), DocumentID: doc.ID, Role: model.RoleUser, Content: userText, Ctime: now},
		{ID: newID(), DocumentID: doc.ID, Role: model.RoleAssistant, Content: assistantText, Ctime: now},
	}
	if err := s.msgs.Append(ctx, doc.ID, msgs); err != nil {
		logger.Error("append messages failed", zap.Error(err))
	}
	return doc
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}

func (s *ArtifactService) cacheKey(t Target, prompt, document string, history []model.ChatMessage) string {
	raw, _ := json.Marshal(history)
	h := sha256.New()
	for _, part := range []string{t.UserID, t.EntryID, string(t.DocType), prompt, document, string(raw)} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// StreamErrorText is the client facing message of a failed stream.
func StreamErrorText(err error) string {
	switch {
	case errors.Is(err, ai.ErrUnavailable):
		return "ai service unavailable"
	case errors.Is(err, errEmptyResponse):
		return errEmptyResponse.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "ai request timed out"
	default:
		return "stream failed"
	}
}
