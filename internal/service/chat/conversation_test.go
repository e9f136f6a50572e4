package chat_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/zhouzirui/science-tutor/backend/internal/model/chat"
	chat "github.com/zhouzirui/science-tutor/backend/internal/service/chat"
	"github.com/zhouzirui/science-tutor/backend/internal/service/completion"
)

type stubClient struct {
	mu      sync.Mutex
	replies []string
	err     error
	prompts []string
}

func (s *stubClient) Complete(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	if len(s.replies) == 0 {
		return "echo: " + prompt, nil
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply, nil
}

// blockingClient holds every call until release is closed.
type blockingClient struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingClient) Complete(ctx context.Context, prompt string) (string, error) {
	close(b.entered)
	<-b.release
	return "done", nil
}

func TestSubmitAppendsUserAndAssistantTurns(t *testing.T) {
	stub := &stubClient{replies: []string{"Photosynthesis is…"}}
	conv := chat.NewConversation("s1", stub)

	ex, err := conv.Submit(context.Background(), "What is photosynthesis?")
	require.NoError(t, err)
	assert.Equal(t, "Photosynthesis is…", ex.Assistant.Content)

	turns := conv.Transcript()
	require.Len(t, turns, 2)
	assert.Equal(t, model.RoleUser, turns[0].Role)
	assert.Equal(t, "What is photosynthesis?", turns[0].Content)
	assert.Equal(t, model.RoleAssistant, turns[1].Role)
	assert.Equal(t, "Photosynthesis is…", turns[1].Content)
	assert.Equal(t, []string{"What is photosynthesis?"}, stub.prompts)
}

func TestSubmitManyAlternatesInOrder(t *testing.T) {
	conv := chat.NewConversation("s1", &stubClient{})

	const n = 5
	for i := 0; i < n; i++ {
		_, err := conv.Submit(context.Background(), fmt.Sprintf("question %d", i))
		require.NoError(t, err)
	}

	turns := conv.Transcript()
	require.Len(t, turns, 2*n)
	for i := 0; i < n; i++ {
		user, assistant := turns[2*i], turns[2*i+1]
		assert.Equal(t, model.RoleUser, user.Role)
		assert.Equal(t, fmt.Sprintf("question %d", i), user.Content)
		assert.Equal(t, model.RoleAssistant, assistant.Role)
		assert.Equal(t, fmt.Sprintf("echo: question %d", i), assistant.Content)
	}
}

func TestSubmitUpstreamFailureKeepsUserTurn(t *testing.T) {
	stub := &stubClient{err: errors.New("API key not valid")}
	conv := chat.NewConversation("s1", stub)

	before := len(conv.Transcript())
	ex, err := conv.Submit(context.Background(), "Why is the sky blue?")

	var upstream *completion.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, completion.KindAuth, upstream.Kind)
	assert.Equal(t, "Why is the sky blue?", ex.User.Content)

	turns := conv.Transcript()
	require.Len(t, turns, before+1)
	assert.Equal(t, model.RoleUser, turns[0].Role)
	assert.False(t, conv.Busy())

	// the session stays usable after a failure
	stub.err = nil
	_, err = conv.Submit(context.Background(), "Why is the sky blue?")
	require.NoError(t, err)
	assert.Len(t, conv.Transcript(), 3)
}

func TestSubmitRejectsEmptyPrompt(t *testing.T) {
	stub := &stubClient{}
	conv := chat.NewConversation("s1", stub)

	_, err := conv.Submit(context.Background(), "   \n")
	require.ErrorIs(t, err, chat.ErrEmptyPrompt)
	assert.Empty(t, conv.Transcript())
	assert.Empty(t, stub.prompts)
}

func TestSubmitRejectsOverlappingRequests(t *testing.T) {
	client := &blockingClient{entered: make(chan struct{}), release: make(chan struct{})}
	conv := chat.NewConversation("s1", client)

	done := make(chan error, 1)
	go func() {
		_, err := conv.Submit(context.Background(), "first")
		done <- err
	}()

	<-client.entered
	assert.True(t, conv.Busy())

	_, err := conv.Submit(context.Background(), "second")
	require.ErrorIs(t, err, chat.ErrSessionBusy)
	assert.Len(t, conv.Transcript(), 1)

	close(client.release)
	require.NoError(t, <-done)
	assert.False(t, conv.Busy())
	assert.Len(t, conv.Transcript(), 2)
}

func TestTranscriptIsIdempotent(t *testing.T) {
	conv := chat.NewConversation("s1", &stubClient{})
	_, err := conv.Submit(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, conv.Transcript(), conv.Transcript())
	snap := conv.Snapshot()
	assert.Equal(t, "s1", snap.ID)
	assert.Len(t, snap.Turns, 2)
}
