package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/tribute/internal/ai"
	"github.com/xxxsen/tribute/internal/model"
	appErr "github.com/xxxsen/tribute/internal/pkg/errors"
	"github.com/xxxsen/tribute/internal/stream"
)

type Mode string

const (
	ModeCreate      Mode = "create"
	ModeUpdate      Mode = "update"
	ModeSuggestions Mode = "suggestions"
)

type RunInput struct {
	Target
	Mode        Mode
	Title       string
	Context     string
	Description string
}

// PrepareStreamUpdate validates the request and returns the producer of a
// structured update stream: snapshots of the growing {message, document}
// object, then the final pair.
func (s *ArtifactService) PrepareStreamUpdate(ctx context.Context, in UpdateInput) (stream.ProduceFunc, error) {
	if err := s.validateUpdate(ctx, &in); err != nil {
		return nil, err
	}
	return func(ctx context.Context, emit func(stream.Event) error) (*stream.Result, error) {
		existing, err := s.find(ctx, in.Target)
		if err != nil {
			return nil, err
		}
		current := currentText(in.Document, existing)
		out, err := s.gateway.StreamObject(ctx, in.History, in.Prompt, current, func(p ai.ObjectResult) error {
			return emit(stream.Snapshot(stream.Result{Message: p.Message, Document: p.Document}))
		})
		if err != nil {
			return nil, err
		}
		doc := out.Document
		if strings.TrimSpace(doc) == "" {
			if strings.TrimSpace(current) == "" {
				return nil, errEmptyResponse
			}
			doc = current
		}
		s.persist(ctx, in.Target, existing, "", doc, in.Prompt, out.Message)
		return &stream.Result{Message: out.Message, Document: doc}, nil
	}, nil
}

// PrepareRun validates a mode request and returns its producer. Update on an
// empty slot falls back to create.
func (s *ArtifactService) PrepareRun(ctx context.Context, in RunInput) (stream.ProduceFunc, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return nil, appErr.ErrUnauthorized
	}
	switch in.Mode {
	case ModeCreate:
		// the title stands in for a missing context
		if err := s.validateText("context", in.Context, in.EntryID == "" && strings.TrimSpace(in.Title) == ""); err != nil {
			return nil, err
		}
	case ModeUpdate:
		if err := s.validateText("description", in.Description, in.EntryID == "" && in.Context == ""); err != nil {
			return nil, err
		}
		if err := s.validateText("context", in.Context, false); err != nil {
			return nil, err
		}
	case ModeSuggestions:
	default:
		return nil, fmt.Errorf("unsupported mode %q: %w", in.Mode, appErr.ErrInvalid)
	}
	if err := s.validateText("title", in.Title, false); err != nil {
		return nil, err
	}
	if err := s.validateTarget(ctx, &in.Target); err != nil {
		return nil, err
	}
	return func(ctx context.Context, emit func(stream.Event) error) (*stream.Result, error) {
		existing, err := s.find(ctx, in.Target)
		if err != nil {
			return nil, err
		}
		switch in.Mode {
		case ModeCreate:
			instruction := in.Context
			if strings.TrimSpace(instruction) == "" && in.EntryID == "" {
				instruction = in.Title
			}
			return s.runCreate(ctx, emit, in, existing, instruction)
		case ModeUpdate:
			if existing == nil {
				instruction := in.Description
				if instruction == "" {
					instruction = in.Context
				}
				return s.runCreate(ctx, emit, in, nil, instruction)
			}
			return s.runUpdate(ctx, emit, in, existing)
		default:
			if existing == nil || existing.Content == "" {
				return nil, nil
			}
			return s.runSuggestions(ctx, emit, in, existing)
		}
	}, nil
}

func (s *ArtifactService) runCreate(ctx context.Context, emit func(stream.Event) error, in RunInput, existing *model.Document, instruction string) (*stream.Result, error) {
	if in.EntryID != "" {
		entry, err := s.entries.GetByID(ctx, in.UserID, in.EntryID)
		if err != nil {
			return nil, err
		}
		instruction = entryContext(entry, instruction)
	}
	if err := emit(stream.Clear()); err != nil {
		return nil, err
	}
	draft, err := s.gateway.StreamText(ctx, nil, instruction, func(delta string) error {
		return emit(stream.Delta(delta))
	})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(draft) == "" {
		return nil, errEmptyResponse
	}
	s.persist(ctx, in.Target, existing, in.Title, draft, instruction, msgCreated)
	return &stream.Result{Message: msgCreated, Document: draft}, nil
}

func (s *ArtifactService) runUpdate(ctx context.Context, emit func(stream.Event) error, in RunInput, existing *model.Document) (*stream.Result, error) {
	current := existing.Content
	draft, err := s.gateway.StreamText(ctx, &current, in.Description, func(delta string) error {
		return emit(stream.Delta(delta))
	})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(draft) == "" {
		draft = current
	}
	s.persist(ctx, in.Target, existing, "", draft, in.Description, msgUpdated)
	return &stream.Result{Message: msgUpdated, Document: draft}, nil
}

func (s *ArtifactService) runSuggestions(ctx context.Context, emit func(stream.Event) error, in RunInput, doc *model.Document) (*stream.Result, error) {
	items, err := s.gateway.GenerateSuggestions(ctx, doc.Content)
	if err != nil {
		return nil, err
	}
	now := s.now()
	saved := make([]model.Suggestion, 0, len(items))
	for _, item := range items {
		sug := model.Suggestion{
			ID:            newID(),
			DocumentID:    doc.ID,
			DocumentCtime: doc.Ctime,
			UserID:        in.UserID,
			OriginalText:  item.OriginalText,
			SuggestedText: item.SuggestedText,
			Description:   item.Description,
			Ctime:         now,
		}
		if err := emit(stream.SuggestionEvent(stream.Suggestion{
			ID:            sug.ID,
			DocumentID:    sug.DocumentID,
			OriginalText:  sug.OriginalText,
			SuggestedText: sug.SuggestedText,
			Description:   sug.Description,
		})); err != nil {
			return nil, err
		}
		saved = append(saved, sug)
	}
	if err := s.suggestions.SaveBatch(ctx, saved); err != nil {
		logutil.GetLogger(ctx).Error("save suggestions failed",
			zap.String("user_id", in.UserID), zap.String("document_id", doc.ID), zap.Error(err))
	}
	return &stream.Result{Message: msgSuggestions, Document: doc.Content}, nil
}

func entryContext(entry *model.Entry, extra string) string {
	var b strings.Builder
	b.WriteString("Write an obituary for the following person:\n\n")
	fmt.Fprintf(&b, "Deceased Name: %s\n", entry.Name)
	if entry.DateOfBirth != "" {
		fmt.Fprintf(&b, "Born: %s\n", entry.DateOfBirth)
	}
	if entry.DateOfDeath != "" {
		fmt.Fprintf(&b, "Died: %s\n", entry.DateOfDeath)
	}
	if entry.PlaceOfBirth != "" {
		fmt.Fprintf(&b, "Place of birth: %s\n", entry.PlaceOfBirth)
	}
	if entry.PlaceOfDeath != "" {
		fmt.Fprintf(&b, "Place of death: %s\n", entry.PlaceOfDeath)
	}
	if strings.TrimSpace(extra) != "" {
		fmt.Fprintf(&b, "\n%s\n", strings.TrimSpace(extra))
	}
	return b.String()
}
