// Package types defines the wire types for the relay API.
package types

// Message is a single chat message as sent to and from the upstream model.
type Message struct {
	Role    string `json:"role"` // user, assistant, system
	Content string `json:"content"`
}

// ChatCompletionRequest is the inbound relay request.
type ChatCompletionRequest struct {
	Messages       []Message `json:"messages"`
	Model          string    `json:"model"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Module         string    `json:"module,omitempty"`
	Temperature    *float64  `json:"temperature,omitempty"`
	TopP           *float64  `json:"top_p,omitempty"`
	MaxTokens      int       `json:"max_tokens,omitempty"`
	Reasoning      bool      `json:"reasoning,omitempty"`
	Stream         bool      `json:"stream,omitempty"`
	IsFirstMessage bool      `json:"is_first_message,omitempty"`
}

// ChatCompletionResponse is the non-streaming reply.
type ChatCompletionResponse struct {
	ConversationID string `json:"conversation_id"`
	Model          string `json:"model"`
	Answer         string `json:"answer"`
	Reasoning      string `json:"reasoning,omitempty"`
	Compressed     bool   `json:"compressed"`
}

// StreamDelta is one SSE chunk of a streaming reply.
type StreamDelta struct {
	Answer    string `json:"answer,omitempty"`
	Reasoning string `json:"reasoning,omitempty"`
	Done      bool   `json:"done,omitempty"`
	Error     string `json:"error,omitempty"`
}

// CreateConversationRequest creates a conversation ahead of chatting.
type CreateConversationRequest struct {
	Title  string `json:"title,omitempty"`
	Module string `json:"module,omitempty"`
}

// Conversation is the API view of a stored conversation.
type Conversation struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Module    string `json:"module"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// Turn is the API view of a stored conversation turn.
type Turn struct {
	ID        int64  `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Reasoning string `json:"reasoning,omitempty"`
	CreatedAt string `json:"created_at"`
}

// ListTurnsRequest fetches the ordered turns of one conversation.
type ListTurnsRequest struct {
	ConversationID string `path:"id"`
	Limit          int    `form:"limit"`
}

// Memory is the API view of a stored memory.
type Memory struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// ExtractMemoriesRequest triggers an extraction run over a conversation.
type ExtractMemoriesRequest struct {
	ConversationID string `json:"conversation_id"`
	Window         int    `json:"window,omitempty"`
}

// ExtractMemoriesResponse reports the outcome of an extraction run.
type ExtractMemoriesResponse struct {
	InsertedCount int `json:"inserted_count"`
	SkippedCount  int `json:"skipped_count"`
}

// HealthResponse is the health check reply.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}
