package ai

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type ChatModelEntry struct {
	Name  string
	Model IChatModel
}

type groupChatModel struct {
	items []ChatModelEntry
}

// NewGroupChatModel tries each entry in order until one succeeds.
func NewGroupChatModel(items []ChatModelEntry) IChatModel {
	if len(items) == 0 {
		return nil
	}
	return &groupChatModel{items: items}
}

func (g *groupChatModel) Chat(ctx context.Context, req *ChatRequest) (string, error) {
	var lastErr error
	for i, item := range g.items {
		if item.Model == nil {
			continue
		}
		res, err := item.Model.Chat(ctx, req)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		logutil.GetLogger(ctx).Warn("chat model failed", zap.Int("index", i), zap.String("name", item.Name), zap.Error(err))
	}
	if lastErr == nil {
		return "", fmt.Errorf("chat model not configured")
	}
	return "", lastErr
}

// ChatStream only falls back while nothing has been emitted; once a delta
// reached the caller the failure is returned as is.
func (g *groupChatModel) ChatStream(ctx context.Context, req *ChatRequest, onDelta DeltaFunc) error {
	var lastErr error
	for i, item := range g.items {
		if item.Model == nil {
			continue
		}
		emitted := false
		err := item.Model.ChatStream(ctx, req, func(delta string) error {
			emitted = true
			return onDelta(delta)
		})
		if err == nil {
			return nil
		}
		lastErr = err
		if emitted || ctx.Err() != nil {
			return err
		}
		logutil.GetLogger(ctx).Warn("chat model stream failed", zap.Int("index", i), zap.String("name", item.Name), zap.Error(err))
	}
	if lastErr == nil {
		return fmt.Errorf("chat model not configured")
	}
	return lastErr
}
