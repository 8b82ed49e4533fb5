package usecase

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/synapse/domain"
	"github.com/satriahrh/synapse/utils/log"
)

type ChatServiceDeps struct {
	Messages    domain.MessageStore
	Users       domain.UserStore
	Templates   domain.TemplateStore
	Collections domain.CollectionStore
	Generator   Generator
	// Broker is optional; when set every answered turn pair is published
	// on domain.TurnTopic.
	Broker domain.MessageBroker
}

type ChatService struct {
	ChatServiceDeps
	resolver providerResolver
	window   HistoryWindow
	locks    *SessionLocks
}

func NewChatService(deps ChatServiceDeps, historyCutoff int, fallbackKey string) *ChatService {
	return &ChatService{
		ChatServiceDeps: deps,
		resolver: providerResolver{
			users:       deps.Users,
			templates:   deps.Templates,
			fallbackKey: fallbackKey,
		},
		window: HistoryWindow{Cutoff: historyCutoff},
		locks:  NewSessionLocks(),
	}
}

func (s *ChatService) CreateSession(ctx context.Context, userID int64, title string) (*domain.ChatSessionRecord, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, domain.InvalidError("title is required")
	}
	rec := &domain.ChatSessionRecord{UserID: userID, Title: title, Messages: []domain.Turn{}}
	if err := s.Messages.CreateSession(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *ChatService) ListSessions(ctx context.Context, userID int64) ([]domain.ChatSessionRecord, error) {
	return s.Messages.ListSessions(ctx, userID)
}

func (s *ChatService) GetSession(ctx context.Context, userID, sessionID int64) (*domain.ChatSessionRecord, error) {
	rec, err := s.Messages.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.NotFoundError("Session")
	}
	return rec, nil
}

func (s *ChatService) DeleteSession(ctx context.Context, userID, sessionID int64) error {
	if _, err := s.GetSession(ctx, userID, sessionID); err != nil {
		return err
	}
	return s.Messages.DeleteSession(ctx, userID, sessionID)
}

// SendMessage answers message within a session. The user turn is stored
// before the provider call; the assistant turn only on success. Calls for
// the same session run one at a time.
func (s *ChatService) SendMessage(ctx context.Context, userID, sessionID int64, message string, paperIDs []string) (string, error) {
	ctx = log.WithSessionID(ctx, sessionID)
	logger := log.WithCtx(ctx)

	if strings.TrimSpace(message) == "" {
		return "", domain.InvalidError("message is required")
	}
	if _, err := s.GetSession(ctx, userID, sessionID); err != nil {
		return "", err
	}

	cfg, instruction, err := s.resolver.resolve(ctx, userID, domain.TemplateChat)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return "", domain.ConfigurationError("Gemini API key not configured. Please add it in Settings.")
	}

	unlock, err := s.locks.Lock(ctx, sessionID)
	if err != nil {
		return "", err
	}
	defer unlock()

	userTurn := &domain.Turn{SessionID: sessionID, Role: domain.UserRole, Content: message}
	if err := s.Messages.AppendMessage(ctx, userTurn); err != nil {
		return "", err
	}

	recent, err := s.Messages.RecentMessages(ctx, sessionID, s.cutoff()+1)
	if err != nil {
		return "", err
	}
	history := s.window.Build(recent, userTurn.ID)

	contextText, err := s.papersContext(ctx, userID, paperIDs)
	if err != nil {
		return "", err
	}

	req := NewPromptRequest(message, contextText, instruction, history)
	req.ConversationID = strconv.FormatInt(sessionID, 10)

	logger.Info("sending message to provider", zap.Int("history_len", len(history)), zap.Int("papers", len(paperIDs)))
	reply, err := s.Generator.Generate(ctx, req, cfg)
	if err != nil {
		return "", err
	}

	assistantTurn := &domain.Turn{SessionID: sessionID, Role: domain.AssistantRole, Content: reply}
	if err := s.Messages.AppendMessage(ctx, assistantTurn); err != nil {
		return "", err
	}
	if err := s.Messages.TouchSession(ctx, sessionID); err != nil {
		logger.Warn("updating session timestamp", zap.Error(err))
	}

	s.publish(ctx, domain.TurnEvent{
		UserID:    userID,
		SessionID: sessionID,
		Turns:     []domain.Turn{*userTurn, *assistantTurn},
		Timestamp: time.Now(),
	})
	return reply, nil
}

func (s *ChatService) cutoff() int {
	if s.window.Cutoff <= 0 {
		return DefaultHistoryCutoff
	}
	return s.window.Cutoff
}

func (s *ChatService) papersContext(ctx context.Context, userID int64, paperIDs []string) (string, error) {
	if len(paperIDs) == 0 || s.Collections == nil {
		return "", nil
	}
	items, err := s.Collections.ItemsByPaperIDs(ctx, userID, paperIDs)
	if err != nil {
		return "", err
	}
	return PapersContext(items), nil
}

func (s *ChatService) publish(ctx context.Context, ev domain.TurnEvent) {
	if s.Broker == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		log.WithCtx(ctx).Error("marshaling turn event", zap.Error(err))
		return
	}
	routingKey := strconv.FormatInt(ev.UserID, 10)
	if err := s.Broker.Publish(ctx, domain.TurnTopic, routingKey, payload); err != nil {
		log.WithCtx(ctx).Warn("publishing turn event", zap.Error(err))
	}
}
