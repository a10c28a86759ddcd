package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/tribute/internal/model"
)

type scriptedChat struct {
	reply  string
	chunks []string
	err    error
	last   *ChatRequest
}

func (s *scriptedChat) Chat(ctx context.Context, req *ChatRequest) (string, error) {
	s.last = req
	return s.reply, s.err
}

func (s *scriptedChat) ChatStream(ctx context.Context, req *ChatRequest, onDelta DeltaFunc) error {
	s.last = req
	for _, c := range s.chunks {
		if err := onDelta(c); err != nil {
			return err
		}
	}
	return s.err
}

func TestManagerGenerateObjectBuildsTurns(t *testing.T) {
	chat := &scriptedChat{reply: `{"message":"ok","document":"new"}`}
	m := NewManager(chat, ManagerConfig{Temperature: 0.2})
	history := []model.ChatMessage{{Role: model.RoleUser, Content: "first"}, {Role: model.RoleAssistant, Content: "reply"}}
	res, err := m.GenerateObject(context.Background(), history, "Add gardening", "Jane Doe was born in 1950.")
	require.NoError(t, err)
	require.Equal(t, "new", res.Document)
	require.Len(t, chat.last.Messages, 3)
	require.Equal(t, "User request:\nAdd gardening\n\nCurrent document:\nJane Doe was born in 1950.", chat.last.Messages[2].Content)
	require.Equal(t, documentSchema, chat.last.Schema)
	require.Equal(t, updateSystemPrompt, chat.last.System)
}

func TestManagerStreamObjectEmitsGrowingPartials(t *testing.T) {
	full := `{"message":"done","document":"Jane loved roses."}`
	var chunks []string
	for i := 0; i < len(full); i += 7 {
		chunks = append(chunks, full[i:min(i+7, len(full))])
	}
	chat := &scriptedChat{chunks: chunks}
	m := NewManager(chat, ManagerConfig{})
	var partials []ObjectResult
	res, err := m.StreamObject(context.Background(), nil, "p", "", func(p ObjectResult) error {
		partials = append(partials, p)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, "Jane loved roses.", res.Document)
	require.NotEmpty(t, partials)
	for i := 1; i < len(partials); i++ {
		require.True(t, strings.HasPrefix(partials[i].Document, partials[i-1].Document))
	}
	require.Equal(t, *res, partials[len(partials)-1])
}

func TestManagerStreamTextPropagatesFailure(t *testing.T) {
	boom := errors.New("model down")
	chat := &scriptedChat{chunks: []string{"Jane"}, err: boom}
	m := NewManager(chat, ManagerConfig{})
	var got string
	_, err := m.StreamText(context.Background(), nil, "Write a bio", func(d string) error {
		got += d
		return nil
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, "Jane", got)
}

func TestManagerStreamTextUsesTargetedPromptForUpdates(t *testing.T) {
	chat := &scriptedChat{chunks: []string{"a", "b"}}
	m := NewManager(chat, ManagerConfig{})
	current := "Jane Doe was born in 1950."
	out, err := m.StreamText(context.Background(), &current, "Add gardening", func(string) error { return nil })
	require.NoError(t, err)
	require.Equal(t, "ab", out)
	require.Contains(t, chat.last.System, current)
}

func TestManagerWithoutChatModel(t *testing.T) {
	m := NewManager(nil, ManagerConfig{})
	_, err := m.GenerateObject(context.Background(), nil, "p", "")
	require.ErrorIs(t, err, ErrUnavailable)
}
