package domain

import (
	"context"
	"time"
)

// Provider abstracts the chat LLM backend. Sessions are opened per call with
// the caller's own key and model, so nothing about the provider is global.
type Provider interface {
	OpenSession(ctx context.Context, cfg ProviderConfig, history []HistoryEntry) (ChatSession, error)
}

// ModelLister lists the models a key may call for text generation.
type ModelLister interface {
	ListModels(ctx context.Context, apiKey string) ([]ModelInfo, error)
}

type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// ChatSession is a single conversation seeded with prior turns.
type ChatSession interface {
	SendMessage(ctx context.Context, message string) (string, error)
}

type Role string

const (
	UserRole      Role = "user"
	AssistantRole Role = "assistant"
	// ModelRole is the provider's name for assistant turns.
	ModelRole Role = "model"
)

// Turn is one persisted message of a chat session.
type Turn struct {
	ID        int64     `json:"id"`
	SessionID int64     `json:"session_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryEntry is a turn in provider shape.
type HistoryEntry struct {
	Role  Role     `json:"role"`
	Parts []string `json:"parts"`
}

// PromptRequest is everything needed for one provider call.
type PromptRequest struct {
	SystemInstruction string
	ContextText       string
	History           []HistoryEntry
	UserMessage       string
	// ConversationID is only used for log correlation.
	ConversationID string
}

type ProviderConfig struct {
	APIKey    string
	ModelName string
}

const DefaultModel = "gemini-1.5-flash"
