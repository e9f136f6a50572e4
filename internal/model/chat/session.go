package chat

import "time"

// Session is a point-in-time view of a conversation, used for rendering.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Turns     []Turn    `json:"turns"`
}
