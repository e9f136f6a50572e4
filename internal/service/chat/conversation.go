package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/qmuntal/stateless"

	"github.com/zhouzirui/science-tutor/backend/internal/logger"
	"github.com/zhouzirui/science-tutor/backend/internal/model/chat"
	"github.com/zhouzirui/science-tutor/backend/internal/service/completion"
)

var (
	ErrEmptyPrompt = errors.New("prompt is empty")
	ErrSessionBusy = errors.New("session is waiting for a reply")
)

type exchangeState string

type exchangeTrigger string

const (
	stateIdle          exchangeState = "Idle"
	stateAwaitingReply exchangeState = "AwaitingReply"

	triggerSubmit        exchangeTrigger = "Submit"
	triggerReplyReceived exchangeTrigger = "ReplyReceived"
	triggerReplyFailed   exchangeTrigger = "ReplyFailed"
)

// Exchange is the outcome of one successful submission.
type Exchange struct {
	User      chat.Turn `json:"user"`
	Assistant chat.Turn `json:"assistant"`
}

// Conversation is the per-session context: it owns one transcript and
// serializes the request/response exchanges made against it.
type Conversation struct {
	id        string
	createdAt time.Time
	client    completion.Client

	mu         sync.Mutex
	transcript *chat.Transcript
	fsm        *stateless.StateMachine
}

// NewConversation creates an empty conversation bound to client.
func NewConversation(id string, client completion.Client) *Conversation {
	fsm := stateless.NewStateMachine(stateIdle)
	fsm.Configure(stateIdle).
		Permit(triggerSubmit, stateAwaitingReply)
	fsm.Configure(stateAwaitingReply).
		Permit(triggerReplyReceived, stateIdle).
		Permit(triggerReplyFailed, stateIdle)

	return &Conversation{
		id:         id,
		createdAt:  time.Now().UTC(),
		client:     client,
		transcript: chat.NewTranscript(),
		fsm:        fsm,
	}
}

// ID returns the session identifier.
func (c *Conversation) ID() string { return c.id }

// Submit records text as a user turn, asks the completion client for a reply
// and records the reply as an assistant turn. When the client fails the user
// turn stays in the transcript, no assistant turn is added and the returned
// error is a *completion.UpstreamError.
func (c *Conversation) Submit(ctx context.Context, text string) (Exchange, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Exchange{}, ErrEmptyPrompt
	}

	c.mu.Lock()
	if err := c.fsm.Fire(triggerSubmit); err != nil {
		c.mu.Unlock()
		return Exchange{}, ErrSessionBusy
	}
	userTurn := chat.UserTurn(text)
	c.transcript.Append(userTurn)
	c.mu.Unlock()

	reply, err := c.client.Complete(ctx, text)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.fire(triggerReplyFailed)
		err = completion.Classify(err)
		logger.L.Warn("completion failed", "session", c.id, "error", err)
		return Exchange{User: userTurn}, err
	}

	assistantTurn := chat.AssistantTurn(reply)
	c.transcript.Append(assistantTurn)
	c.fire(triggerReplyReceived)
	logger.L.Info("exchange completed", "session", c.id, "turns", c.transcript.Len(), "reply_len", len(reply))

	return Exchange{User: userTurn, Assistant: assistantTurn}, nil
}

// fire moves the exchange state machine; the caller holds c.mu.
func (c *Conversation) fire(trigger exchangeTrigger) {
	if err := c.fsm.Fire(trigger); err != nil {
		logger.L.Error("invalid exchange transition", "session", c.id, "trigger", string(trigger), "error", err)
	}
}

// Transcript returns the turns recorded so far in conversation order.
func (c *Conversation) Transcript() []chat.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript.All()
}

// Busy reports whether a submission is waiting for its reply.
func (c *Conversation) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fsm.MustState() == stateAwaitingReply
}

// Snapshot returns a rendering view of the conversation.
func (c *Conversation) Snapshot() chat.Session {
	return chat.Session{
		ID:        c.id,
		CreatedAt: c.createdAt,
		Turns:     c.Transcript(),
	}
}
