package ai

import (
	"fmt"

	"github.com/xxxsen/tribute/internal/config"
)

// BuildChatModel wires the primary provider and its fallbacks into one chat model.
func BuildChatModel(cfg config.AIConfig) (IChatModel, error) {
	entries := make([]ChatModelEntry, 0, 1+len(cfg.Fallbacks))
	primary, err := NewProvider(cfg.Provider, cfg.Data)
	if err != nil {
		return nil, err
	}
	entries = append(entries, ChatModelEntry{
		Name:  primary.Name() + ":" + cfg.Model,
		Model: NewChatModel(primary, cfg.Model),
	})
	for i, fb := range cfg.Fallbacks {
		p, err := NewProvider(fb.Provider, fb.Data)
		if err != nil {
			return nil, fmt.Errorf("init ai fallback %d: %w", i, err)
		}
		modelName := fb.Model
		if modelName == "" {
			modelName = cfg.Model
		}
		entries = append(entries, ChatModelEntry{
			Name:  p.Name() + ":" + modelName,
			Model: NewChatModel(p, modelName),
		})
	}
	return NewGroupChatModel(entries), nil
}
