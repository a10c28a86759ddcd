package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrUnavailable = errors.New("ai provider unavailable")

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string
	Content string
}

// ChatRequest is provider neutral. Schema, when set, asks the provider for a
// JSON object matching it.
type ChatRequest struct {
	Model       string
	System      string
	Messages    []Message
	Temperature float64
	Schema      *Schema
}

// DeltaFunc receives generated text in production order. Returning an error
// stops the stream.
type DeltaFunc func(delta string) error

type IProvider interface {
	Name() string
	Chat(ctx context.Context, req *ChatRequest) (string, error)
	ChatStream(ctx context.Context, req *ChatRequest, onDelta DeltaFunc) error
}

// IChatModel is a provider bound to one model.
type IChatModel interface {
	Chat(ctx context.Context, req *ChatRequest) (string, error)
	ChatStream(ctx context.Context, req *ChatRequest, onDelta DeltaFunc) error
}

type chatModel struct {
	provider IProvider
	model    string
}

func NewChatModel(p IProvider, model string) IChatModel {
	return &chatModel{provider: p, model: model}
}

func (c *chatModel) bind(req *ChatRequest) *ChatRequest {
	cp := *req
	cp.Model = c.model
	return &cp
}

func (c *chatModel) Chat(ctx context.Context, req *ChatRequest) (string, error) {
	return c.provider.Chat(ctx, c.bind(req))
}

func (c *chatModel) ChatStream(ctx context.Context, req *ChatRequest, onDelta DeltaFunc) error {
	return c.provider.ChatStream(ctx, c.bind(req), onDelta)
}

type ProviderFactory func(args interface{}) (IProvider, error)

var registry = map[string]ProviderFactory{}

func Register(name string, factory ProviderFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func NewProvider(name string, args interface{}) (IProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported ai provider: %s", name)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("ai provider config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode ai provider config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode ai provider config: %w", err)
	}
	return nil
}
