package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satriahrh/synapse/domain"
)

type chatFixture struct {
	store   *memStore
	gen     *recordingGenerator
	broker  *recordingBroker
	svc     *ChatService
	userID  int64
	session int64
}

func newChatFixture(t *testing.T, apiKey, fallbackKey string) *chatFixture {
	t.Helper()
	store := newMemStore()
	gen := &recordingGenerator{reply: "answer"}
	broker := &recordingBroker{}
	svc := NewChatService(ChatServiceDeps{
		Messages:    store,
		Users:       store,
		Templates:   store,
		Collections: store,
		Generator:   gen,
		Broker:      broker,
	}, 10, fallbackKey)

	ctx := context.Background()
	u, err := store.CreateUser(ctx, "ada@example.com", "h", domain.Profile{GeminiAPIKey: apiKey, PreferredModel: "gemini-1.5-pro"})
	require.NoError(t, err)
	s, err := svc.CreateSession(ctx, u.ID, "papers")
	require.NoError(t, err)
	return &chatFixture{store: store, gen: gen, broker: broker, svc: svc, userID: u.ID, session: s.ID}
}

func TestSendMessageStoresTurnsAndPublishes(t *testing.T) {
	f := newChatFixture(t, "key", "")

	reply, err := f.svc.SendMessage(context.Background(), f.userID, f.session, "hello", nil)

	require.NoError(t, err)
	assert.Equal(t, "answer", reply)
	turns := f.store.sessionTurns(f.session)
	require.Len(t, turns, 2)
	assert.Equal(t, domain.UserRole, turns[0].Role)
	assert.Equal(t, "hello", turns[0].Content)
	assert.Equal(t, domain.AssistantRole, turns[1].Role)

	require.Len(t, f.gen.reqs, 1)
	req := f.gen.reqs[0]
	assert.Empty(t, req.History)
	assert.Equal(t, "hello", req.UserMessage)
	assert.Equal(t, DefaultPersona, req.SystemInstruction)
	assert.Equal(t, fmt.Sprint(f.session), req.ConversationID)
	assert.Equal(t, domain.ProviderConfig{APIKey: "key", ModelName: "gemini-1.5-pro"}, f.gen.cfgs[0])

	require.Len(t, f.broker.messages, 1)
	msg := f.broker.messages[0]
	assert.Equal(t, domain.TurnTopic, msg.Topic)
	assert.Equal(t, fmt.Sprint(f.userID), msg.RoutingKey)
	var ev domain.TurnEvent
	require.NoError(t, json.Unmarshal(msg.Payload, &ev))
	assert.Equal(t, f.session, ev.SessionID)
	assert.Len(t, ev.Turns, 2)
}

func TestSendMessageHistoryWindow(t *testing.T) {
	f := newChatFixture(t, "key", "")
	ctx := context.Background()
	for i := 1; i <= 6; i++ {
		_, err := f.svc.SendMessage(ctx, f.userID, f.session, fmt.Sprintf("q%d", i), nil)
		require.NoError(t, err)
	}

	_, err := f.svc.SendMessage(ctx, f.userID, f.session, "q7", nil)
	require.NoError(t, err)

	history := f.gen.reqs[len(f.gen.reqs)-1].History
	require.Len(t, history, 10)
	assert.Equal(t, []string{"q2"}, history[0].Parts)
	assert.Equal(t, domain.ModelRole, history[9].Role)
	for _, h := range history {
		assert.NotEqual(t, []string{"q7"}, h.Parts)
	}
}

func TestSendMessageFailureKeepsOnlyUserTurn(t *testing.T) {
	f := newChatFixture(t, "key", "")
	f.gen.err = domain.TimeoutError(30 * time.Second)

	_, err := f.svc.SendMessage(context.Background(), f.userID, f.session, "hello", nil)

	require.Error(t, err)
	assert.Equal(t, domain.KindTimeout, domain.KindOf(err))
	turns := f.store.sessionTurns(f.session)
	require.Len(t, turns, 1)
	assert.Equal(t, domain.UserRole, turns[0].Role)
	assert.Empty(t, f.broker.messages)
}

func TestSendMessageWithoutKey(t *testing.T) {
	f := newChatFixture(t, "", "")

	_, err := f.svc.SendMessage(context.Background(), f.userID, f.session, "hello", nil)

	assert.Equal(t, domain.KindConfiguration, domain.KindOf(err))
	assert.Empty(t, f.store.sessionTurns(f.session))
	assert.Empty(t, f.gen.reqs)
}

func TestSendMessageUsesServerKeyFallback(t *testing.T) {
	f := newChatFixture(t, "", "server-key")

	_, err := f.svc.SendMessage(context.Background(), f.userID, f.session, "hello", nil)

	require.NoError(t, err)
	assert.Equal(t, "server-key", f.gen.cfgs[0].APIKey)
}

func TestSendMessageValidation(t *testing.T) {
	f := newChatFixture(t, "key", "")
	ctx := context.Background()

	_, err := f.svc.SendMessage(ctx, f.userID, f.session, "   ", nil)
	assert.Equal(t, domain.KindInvalid, domain.KindOf(err))

	_, err = f.svc.SendMessage(ctx, f.userID, f.session+100, "hi", nil)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	_, err = f.svc.SendMessage(ctx, f.userID+100, f.session, "hi", nil)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestSendMessageWithPaperContextAndTemplate(t *testing.T) {
	f := newChatFixture(t, "key", "")
	ctx := context.Background()
	f.store.items = []domain.CollectionItem{{PaperID: "p1", PaperTitle: "Attention", PaperSummary: "Transformers."}}
	require.NoError(t, f.store.CreateTemplate(ctx, &domain.PromptTemplate{
		UserID: f.userID, Type: domain.TemplateChat, Content: "You are terse.", Model: "models/gemini-2.0-flash", IsActive: true,
	}))

	_, err := f.svc.SendMessage(ctx, f.userID, f.session, "summarize", []string{"p1"})

	require.NoError(t, err)
	req := f.gen.reqs[0]
	assert.Equal(t, "Title: Attention\nSummary: Transformers.", req.ContextText)
	assert.Equal(t, "You are terse.", req.SystemInstruction)
	assert.Equal(t, "models/gemini-2.0-flash", f.gen.cfgs[0].ModelName)
}

func TestSendMessageSerializesPerSession(t *testing.T) {
	f := newChatFixture(t, "key", "")
	f.gen.block = make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.SendMessage(context.Background(), f.userID, f.session, fmt.Sprintf("m%d", i), nil)
			assert.NoError(t, err)
		}(i)
	}

	require.Eventually(t, func() bool {
		f.gen.mu.Lock()
		defer f.gen.mu.Unlock()
		return len(f.gen.reqs) == 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	f.gen.mu.Lock()
	assert.Len(t, f.gen.reqs, 1)
	f.gen.mu.Unlock()

	close(f.gen.block)
	wg.Wait()

	assert.Equal(t, 1, f.gen.maxActive)
	assert.Len(t, f.store.sessionTurns(f.session), 4)
	second := f.gen.reqs[1].History
	assert.Len(t, second, 2)
	assert.Zero(t, f.svc.locks.Len())
}

func TestSessionCRUD(t *testing.T) {
	f := newChatFixture(t, "key", "")
	ctx := context.Background()

	_, err := f.svc.CreateSession(ctx, f.userID, "  ")
	assert.Equal(t, domain.KindInvalid, domain.KindOf(err))

	got, err := f.svc.GetSession(ctx, f.userID, f.session)
	require.NoError(t, err)
	assert.Equal(t, "papers", got.Title)

	require.NoError(t, f.svc.DeleteSession(ctx, f.userID, f.session))
	assert.Equal(t, domain.KindNotFound, domain.KindOf(f.svc.DeleteSession(ctx, f.userID, f.session)))
}
