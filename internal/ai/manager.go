package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/tribute/internal/model"
)

type ManagerConfig struct {
	Temperature   float64
	Timeout       int
	MaxInputChars int
}

// ObjectResult is the structured {message, document} pair.
type ObjectResult struct {
	Message  string `json:"message"`
	Document string `json:"document"`
}

type SuggestionResult struct {
	OriginalText  string `json:"originalText"`
	SuggestedText string `json:"suggestedText"`
	Description   string `json:"description"`
}

type Manager struct {
	chat IChatModel
	cfg  ManagerConfig
}

func NewManager(chat IChatModel, cfg ManagerConfig) *Manager {
	return &Manager{chat: chat, cfg: cfg}
}

func (m *Manager) MaxInputChars() int {
	return m.cfg.MaxInputChars
}

func (m *Manager) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, time.Duration(m.cfg.Timeout)*time.Second)
	}
	return ctx, func() {}
}

func (m *Manager) updateRequest(history []model.ChatMessage, prompt, document string) *ChatRequest {
	msgs := make([]Message, 0, len(history)+1)
	for _, h := range history {
		msgs = append(msgs, Message{Role: string(h.Role), Content: h.Content})
	}
	msgs = append(msgs, Message{Role: RoleUser, Content: UpdateTurn(prompt, document)})
	return &ChatRequest{
		System:      updateSystemPrompt,
		Messages:    msgs,
		Temperature: m.cfg.Temperature,
		Schema:      documentSchema,
	}
}

// GenerateObject runs a blocking structured update.
func (m *Manager) GenerateObject(ctx context.Context, history []model.ChatMessage, prompt, document string) (*ObjectResult, error) {
	if m.chat == nil {
		return nil, ErrUnavailable
	}
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	raw, err := m.chat.Chat(ctx, m.updateRequest(history, prompt, document))
	if err != nil {
		return nil, err
	}
	return decodeObject(raw)
}

// StreamObject streams a structured update. onPartial sees every new
// prefix-consistent view of the object; the returned result is the final one.
func (m *Manager) StreamObject(ctx context.Context, history []model.ChatMessage, prompt, document string, onPartial func(ObjectResult) error) (*ObjectResult, error) {
	if m.chat == nil {
		return nil, ErrUnavailable
	}
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	var buf strings.Builder
	var last ObjectResult
	err := m.chat.ChatStream(ctx, m.updateRequest(history, prompt, document), func(delta string) error {
		buf.WriteString(delta)
		fields := parsePartialObject(buf.String())
		next := ObjectResult{Message: fields["message"], Document: fields["document"]}
		if next == last {
			return nil
		}
		last = next
		return onPartial(next)
	})
	if err != nil {
		return nil, err
	}
	return decodeObject(buf.String())
}

// StreamText streams free-form prose. Create runs without a current
// document; update embeds it in a targeted-edit instruction.
func (m *Manager) StreamText(ctx context.Context, current *string, instruction string, onDelta DeltaFunc) (string, error) {
	if m.chat == nil {
		return "", ErrUnavailable
	}
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	system := createSystemPrompt()
	if current != nil {
		system = targetedUpdatePrompt(*current)
	}
	req := &ChatRequest{
		System:      system,
		Messages:    []Message{{Role: RoleUser, Content: instruction}},
		Temperature: m.cfg.Temperature,
	}
	var buf strings.Builder
	err := m.chat.ChatStream(ctx, req, func(delta string) error {
		buf.WriteString(delta)
		return onDelta(delta)
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (m *Manager) GenerateSuggestions(ctx context.Context, content string) ([]SuggestionResult, error) {
	if m.chat == nil {
		return nil, ErrUnavailable
	}
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	raw, err := m.chat.Chat(ctx, &ChatRequest{
		System:      suggestionsSystemPrompt,
		Messages:    []Message{{Role: RoleUser, Content: content}},
		Temperature: m.cfg.Temperature,
		Schema:      suggestionSchema,
	})
	if err != nil {
		return nil, err
	}
	return parseSuggestions(raw)
}

func decodeObject(raw string) (*ObjectResult, error) {
	clean := stripFence(raw)
	start := strings.Index(clean, "{")
	end := strings.LastIndex(clean, "}")
	if start >= 0 && end > start {
		clean = clean[start : end+1]
	}
	var out ObjectResult
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		return nil, fmt.Errorf("decode ai object: %w", err)
	}
	return &out, nil
}

func parseSuggestions(raw string) ([]SuggestionResult, error) {
	clean := stripFence(raw)
	var wrapped struct {
		Items []SuggestionResult `json:"items"`
	}
	if err := json.Unmarshal([]byte(clean), &wrapped); err != nil {
		var bare []SuggestionResult
		if err2 := json.Unmarshal([]byte(clean), &bare); err2 != nil {
			return nil, fmt.Errorf("parse suggestions: %w", err)
		}
		wrapped.Items = bare
	}
	out := make([]SuggestionResult, 0, len(wrapped.Items))
	for _, item := range wrapped.Items {
		if strings.TrimSpace(item.OriginalText) == "" || strings.TrimSpace(item.SuggestedText) == "" {
			continue
		}
		out = append(out, item)
		if len(out) >= MaxSuggestions {
			break
		}
	}
	return out, nil
}
