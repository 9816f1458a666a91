package model

import "time"

// Role identifies which side of the conversation produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in a conversation log. The JSON tags define the
// export/import document format.
type Message struct {
	ID          string    `json:"id"`
	Role        Role      `json:"role"`
	Content     string    `json:"content"`
	ImageBase64 string    `json:"imageBase64,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// GenerationConfig holds the per-session AI settings. A turn is one
// user message plus the assistant message answering it.
type GenerationConfig struct {
	HistoryEnabled      bool
	MaxHistoryTurns     int
	Model               string
	Temperature         float64
	MaxTokens           int
	SystemPrompt        string
	StreamingEnabled    bool
	StreamingUpdateRate int // seconds between client polls
}

// DefaultGenerationConfig mirrors the settings a fresh session starts with.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		HistoryEnabled:      true,
		MaxHistoryTurns:     10,
		Model:               "google/gemini-flash-1.5-8b",
		Temperature:         0.7,
		MaxTokens:           4096,
		StreamingEnabled:    false,
		StreamingUpdateRate: 1,
	}
}

// LinkToken is a one-time, time-limited login credential.
type LinkToken struct {
	Value     string    `json:"token"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Used      bool      `json:"used"`
	SessionID string    `json:"sessionId,omitempty"`
}

// Expired reports whether the token's validity window has passed at t.
func (lt LinkToken) Expired(t time.Time) bool {
	return lt.ExpiresAt.Before(t)
}
