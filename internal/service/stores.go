package service

import (
	"context"

	"github.com/xxxsen/tribute/internal/ai"
	"github.com/xxxsen/tribute/internal/model"
)

// DocumentStore is satisfied by repo.DocumentRepo. Lookups never return
// soft-deleted rows.
type DocumentStore interface {
	Find(ctx context.Context, userID, entryID string, docType model.DocType) (*model.Document, error)
	Insert(ctx context.Context, doc *model.Document) error
	UpdateContent(ctx context.Context, docID, title, content string, mtime int64) error
	GetByID(ctx context.Context, userID, docID string) (*model.Document, error)
	GetByShareToken(ctx context.Context, token string) (*model.Document, error)
	SetShare(ctx context.Context, userID, docID string, isPublic int, token, passwordHash string, mtime int64) error
	ListByUser(ctx context.Context, userID string) ([]model.Document, error)
	SoftDelete(ctx context.Context, userID, docID string, mtime int64) error
}

type MessageStore interface {
	Append(ctx context.Context, docID string, msgs []model.Message) error
	ListByDocument(ctx context.Context, docID string) ([]model.Message, error)
}

type SuggestionStore interface {
	SaveBatch(ctx context.Context, items []model.Suggestion) error
	ListByDocument(ctx context.Context, userID, docID string) ([]model.Suggestion, error)
}

type EntryStore interface {
	Create(ctx context.Context, entry *model.Entry) error
	GetByID(ctx context.Context, userID, entryID string) (*model.Entry, error)
	ListByUser(ctx context.Context, userID string) ([]model.Entry, error)
	Update(ctx context.Context, entry *model.Entry) error
	SoftDelete(ctx context.Context, userID, entryID string, mtime int64) error
}

// Gateway is the LLM side of an exchange, implemented by ai.Manager.
type Gateway interface {
	GenerateObject(ctx context.Context, history []model.ChatMessage, prompt, document string) (*ai.ObjectResult, error)
	StreamObject(ctx context.Context, history []model.ChatMessage, prompt, document string, onPartial func(ai.ObjectResult) error) (*ai.ObjectResult, error)
	StreamText(ctx context.Context, current *string, instruction string, onDelta ai.DeltaFunc) (string, error)
	GenerateSuggestions(ctx context.Context, content string) ([]ai.SuggestionResult, error)
}
