package domain

import (
	"context"
	"time"
)

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type Profile struct {
	UserID         int64  `json:"user_id"`
	FullName       string `json:"full_name"`
	GeminiAPIKey   string `json:"-"`
	ProfileImage   string `json:"profile_image"`
	PreferredModel string `json:"preferred_model"`
	OnboardingData string `json:"onboarding_data,omitempty"`
}

type TemplateType string

const (
	TemplateChat      TemplateType = "chat"
	TemplateELI5      TemplateType = "eli5"
	TemplateSummarize TemplateType = "summarize"
)

func (t TemplateType) Valid() bool {
	switch t {
	case TemplateChat, TemplateELI5, TemplateSummarize:
		return true
	}
	return false
}

type PromptTemplate struct {
	ID        int64        `json:"id"`
	UserID    int64        `json:"-"`
	Name      string       `json:"name"`
	Type      TemplateType `json:"type"`
	Content   string       `json:"content"`
	Model     string       `json:"model,omitempty"`
	IsActive  bool         `json:"is_active"`
	CreatedAt time.Time    `json:"created_at"`
}

type Collection struct {
	ID          int64            `json:"id"`
	UserID      int64            `json:"-"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	Items       []CollectionItem `json:"items"`
}

type CollectionItem struct {
	ID           int64     `json:"id"`
	CollectionID int64     `json:"-"`
	PaperID      string    `json:"paper_id"`
	PaperTitle   string    `json:"paper_title"`
	PaperSummary string    `json:"paper_summary"`
	AddedAt      time.Time `json:"added_at"`
}

type ChatSessionRecord struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"-"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  []Turn    `json:"messages"`
}

type UserStore interface {
	CreateUser(ctx context.Context, email, passwordHash string, profile Profile) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	GetProfile(ctx context.Context, userID int64) (*Profile, error)
	UpdateProfile(ctx context.Context, p *Profile) error
	RecordPaperView(ctx context.Context, userID int64, paperID string) error
	// PaperViews returns viewed paper ids, newest first.
	PaperViews(ctx context.Context, userID int64) ([]string, error)
}

// TemplateStore holds prompt templates; at most one per (user, type) is active.
type TemplateStore interface {
	ActiveTemplate(ctx context.Context, userID int64, t TemplateType) (*PromptTemplate, error)
	ListTemplates(ctx context.Context, userID int64) ([]PromptTemplate, error)
	GetTemplate(ctx context.Context, userID, id int64) (*PromptTemplate, error)
	CreateTemplate(ctx context.Context, t *PromptTemplate) error
	UpdateTemplate(ctx context.Context, t *PromptTemplate) error
	DeleteTemplate(ctx context.Context, userID, id int64) error
}

type CollectionStore interface {
	CreateCollection(ctx context.Context, c *Collection) error
	ListCollections(ctx context.Context, userID int64) ([]Collection, error)
	GetCollection(ctx context.Context, userID, id int64) (*Collection, error)
	DeleteCollection(ctx context.Context, userID, id int64) error
	AddItem(ctx context.Context, item *CollectionItem) error
	RemoveItem(ctx context.Context, collectionID, itemID int64) error
	// ItemsByPaperIDs returns the user's saved items for the given papers.
	ItemsByPaperIDs(ctx context.Context, userID int64, paperIDs []string) ([]CollectionItem, error)
}

// MessageStore is the persisted chat history.
type MessageStore interface {
	CreateSession(ctx context.Context, s *ChatSessionRecord) error
	ListSessions(ctx context.Context, userID int64) ([]ChatSessionRecord, error)
	GetSession(ctx context.Context, userID, id int64) (*ChatSessionRecord, error)
	DeleteSession(ctx context.Context, userID, id int64) error
	TouchSession(ctx context.Context, id int64) error
	// RecentMessages returns up to limit turns, newest first.
	RecentMessages(ctx context.Context, sessionID int64, limit int) ([]Turn, error)
	AppendMessage(ctx context.Context, t *Turn) error
}
