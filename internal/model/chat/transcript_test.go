package chat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/science-tutor/backend/internal/model/chat"
)

func TestTranscriptAppendKeepsOrder(t *testing.T) {
	tr := chat.NewTranscript()
	tr.Append(chat.UserTurn("first"))
	tr.Append(chat.AssistantTurn("second"))
	tr.Append(chat.UserTurn("first"))

	turns := tr.All()
	require.Len(t, turns, 3)
	assert.Equal(t, "first", turns[0].Content)
	assert.Equal(t, chat.RoleAssistant, turns[1].Role)
	// duplicates are kept as-is
	assert.Equal(t, "first", turns[2].Content)
}

func TestTranscriptAllIsIdempotent(t *testing.T) {
	tr := chat.NewTranscript()
	tr.Append(chat.UserTurn("What is photosynthesis?"))
	tr.Append(chat.AssistantTurn("Photosynthesis is..."))

	first := tr.All()
	second := tr.All()
	assert.Equal(t, first, second)
	assert.Equal(t, 2, tr.Len())
}

func TestTranscriptAllReturnsCopy(t *testing.T) {
	tr := chat.NewTranscript()
	tr.Append(chat.UserTurn("hello"))

	turns := tr.All()
	turns[0].Content = "mutated"

	last, ok := tr.Last()
	require.True(t, ok)
	assert.Equal(t, "hello", last.Content)
}

func TestTranscriptLastOnEmpty(t *testing.T) {
	tr := chat.NewTranscript()
	_, ok := tr.Last()
	assert.False(t, ok)
	assert.Empty(t, tr.All())
}

func TestRoleValid(t *testing.T) {
	assert.True(t, chat.RoleUser.Valid())
	assert.True(t, chat.RoleAssistant.Valid())
	assert.False(t, chat.Role("system").Valid())
}
