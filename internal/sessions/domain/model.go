package domain

import "time"

// Defaults applied when a session is created without explicit routing.
const (
	DefaultChannel = "webchat"
	DefaultAgentID = "main"
)

// Session binds a chat conversation to a project. SessionKey is the stable
// identifier shared with the agent gateway; the numeric ID is internal.
type Session struct {
	ID         int64      `json:"id"`
	ProjectID  int64      `json:"project_id"`
	SessionKey string     `json:"session_key"`
	Label      string     `json:"label"`
	Archived   bool       `json:"archived"`
	Scope      *string    `json:"scope,omitempty"`
	Channel    string     `json:"channel"`
	AgentID    string     `json:"agent_id"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// Message is one turn in a session. Image holds base64 data when the user
// attached one.
type Message struct {
	ID        int64     `json:"id"`
	SessionID int64     `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Image     *string   `json:"image,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
