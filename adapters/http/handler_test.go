package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satriahrh/synapse/adapters/sqlite"
	"github.com/satriahrh/synapse/config"
	"github.com/satriahrh/synapse/domain"
	"github.com/satriahrh/synapse/usecase"
)

type fakeGenerator struct {
	mu    sync.Mutex
	reply string
	err   error
	reqs  []domain.PromptRequest
	cfgs  []domain.ProviderConfig
}

func (g *fakeGenerator) Generate(_ context.Context, req domain.PromptRequest, cfg domain.ProviderConfig) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reqs = append(g.reqs, req)
	g.cfgs = append(g.cfgs, cfg)
	return g.reply, g.err
}

type fakePapers struct {
	papers []domain.Paper
	random *domain.Paper
}

func (f *fakePapers) Search(context.Context, domain.SearchQuery) ([]domain.Paper, error) {
	return f.papers, nil
}

func (f *fakePapers) RandomPaper(context.Context) (*domain.Paper, error) {
	return f.random, nil
}

type fakeModels struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (f *fakeModels) ListModels(_ context.Context, apiKey string) ([]domain.ModelInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, apiKey)
	if f.err != nil {
		return nil, f.err
	}
	return []domain.ModelInfo{{Name: "models/gemini-1.5-pro", DisplayName: "Gemini 1.5 Pro"}}, nil
}

type fakeExtractor struct{ text string }

func (f fakeExtractor) ExtractText(context.Context, string) (string, error) { return f.text, nil }

type testApp struct {
	e      *echo.Echo
	gen    *fakeGenerator
	papers *fakePapers
	models *fakeModels
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	gen := &fakeGenerator{reply: "generated"}
	papers := &fakePapers{}
	models := &fakeModels{}

	h := NewHandler(HandlerDeps{
		Accounts: usecase.NewAccountService(store, store, models, ""),
		Research: usecase.NewResearchService(usecase.ResearchServiceDeps{
			Papers:    papers,
			Extractor: fakeExtractor{text: strings.Repeat("x", 12000)},
			Users:     store,
			Templates: store,
			Generator: gen,
		}, 10000, ""),
		Library: usecase.NewLibraryService(store),
		Chat: usecase.NewChatService(usecase.ChatServiceDeps{
			Messages:    store,
			Users:       store,
			Templates:   store,
			Collections: store,
			Generator:   gen,
		}, 10, ""),
		Tokens: NewTokenIssuer("test-secret", time.Hour),
	})

	e := NewEcho(config.HTTP{CORSOrigins: []string{"*"}, BodyLimit: "1MB"})
	h.Register(e)
	return &testApp{e: e, gen: gen, papers: papers, models: models}
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (a *testApp) signup(t *testing.T, email string) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/auth/signup", "", map[string]any{
		"email": email, "password": "correct-horse", "full_name": "Ada",
		"onboarding_answers": map[string]string{"field": "nlp"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tok := decode[TokenResponse](t, rec)
	assert.Equal(t, "bearer", tok.TokenType)
	return tok.AccessToken
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	return decode[map[string]string](t, rec)["detail"]
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestAuthFlow(t *testing.T) {
	app := newTestApp(t)
	token := app.signup(t, "ada@example.com")

	rec := app.do(t, http.MethodPost, "/auth/signup", "", map[string]string{"email": "ada@example.com", "password": "correct-horse"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email already registered", detail(t, rec))

	rec = app.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "ada@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Incorrect email or password", detail(t, rec))

	rec = app.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "ada@example.com", "password": "correct-horse"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, http.MethodGet, "/user/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[usecase.Me](t, rec)
	assert.Equal(t, "ada@example.com", me.Email)
	assert.Equal(t, "Ada", me.FullName)
	assert.False(t, me.APIKeySet)

	rec = app.do(t, http.MethodPut, "/user/api-key", token, map[string]string{"api_key": "k-123"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = app.do(t, http.MethodGet, "/user/me", token, nil)
	assert.True(t, decode[usecase.Me](t, rec).APIKeySet)
	assert.NotContains(t, rec.Body.String(), "k-123")
}

func TestUnauthenticated(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/user/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = app.do(t, http.MethodGet, "/collections", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Could not validate credentials", detail(t, rec))
}

func TestSessionMessageFlow(t *testing.T) {
	app := newTestApp(t)
	token := app.signup(t, "ada@example.com")

	rec := app.do(t, http.MethodPost, "/chat/sessions", token, map[string]string{"title": "Transformers"})
	require.Equal(t, http.StatusOK, rec.Code)
	session := decode[domain.ChatSessionRecord](t, rec)

	path := "/chat/sessions/" + itoa(session.ID) + "/message"
	rec = app.do(t, http.MethodPost, path, token, map[string]any{"message": "what is attention?"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Gemini API key not configured. Please add it in Settings.", detail(t, rec))
	assert.Empty(t, app.gen.reqs)

	require.Equal(t, http.StatusOK, app.do(t, http.MethodPut, "/user/api-key", token, map[string]string{"api_key": "k"}).Code)

	rec = app.do(t, http.MethodPost, path, token, map[string]any{"message": "what is attention?"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "generated", decode[MessageResponse](t, rec).Response)
	require.Len(t, app.gen.reqs, 1)
	assert.Empty(t, app.gen.reqs[0].History)
	assert.Equal(t, "k", app.gen.cfgs[0].APIKey)

	rec = app.do(t, http.MethodPost, path, token, map[string]any{"message": "and multi-head?"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, app.gen.reqs, 2)
	history := app.gen.reqs[1].History
	require.Len(t, history, 2)
	assert.Equal(t, domain.UserRole, history[0].Role)
	assert.Equal(t, domain.ModelRole, history[1].Role)

	rec = app.do(t, http.MethodGet, "/chat/sessions/"+itoa(session.ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[domain.ChatSessionRecord](t, rec).Messages, 4)

	rec = app.do(t, http.MethodGet, "/chat/sessions/999", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Session not found", detail(t, rec))
}

func TestProviderErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
		detail string
	}{
		{domain.TimeoutError(30 * time.Second), http.StatusGatewayTimeout, "AI request timed out after 30 seconds. Please try a shorter query."},
		{domain.TransientProviderError(3, domain.ErrTransient), http.StatusBadGateway, "AI provider unavailable after 3 attempts"},
		{domain.UnexpectedError(assert.AnError), http.StatusInternalServerError, "An unexpected error occurred"},
	}
	for _, tc := range cases {
		app := newTestApp(t)
		token := app.signup(t, "ada@example.com")
		require.Equal(t, http.StatusOK, app.do(t, http.MethodPut, "/user/api-key", token, map[string]string{"api_key": "k"}).Code)
		app.gen.err = tc.err

		rec := app.do(t, http.MethodPost, "/chat", token, map[string]string{"papers_context": "ctx", "user_query": "q"})

		assert.Equal(t, tc.status, rec.Code)
		assert.Equal(t, tc.detail, detail(t, rec))
	}
}

func TestFailedTurnKeepsOnlyUserMessage(t *testing.T) {
	app := newTestApp(t)
	token := app.signup(t, "ada@example.com")
	require.Equal(t, http.StatusOK, app.do(t, http.MethodPut, "/user/api-key", token, map[string]string{"api_key": "k"}).Code)
	session := decode[domain.ChatSessionRecord](t, app.do(t, http.MethodPost, "/chat/sessions", token, map[string]string{"title": "t"}))

	app.gen.err = domain.TimeoutError(time.Second)
	rec := app.do(t, http.MethodPost, "/chat/sessions/"+itoa(session.ID)+"/message", token, map[string]any{"message": "q"})
	require.Equal(t, http.StatusGatewayTimeout, rec.Code)

	got := decode[domain.ChatSessionRecord](t, app.do(t, http.MethodGet, "/chat/sessions/"+itoa(session.ID), token, nil))
	require.Len(t, got.Messages, 1)
	assert.Equal(t, domain.UserRole, got.Messages[0].Role)
}

func TestResearchRoutes(t *testing.T) {
	app := newTestApp(t)
	token := app.signup(t, "ada@example.com")

	rec := app.do(t, http.MethodGet, "/search", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodGet, "/search?query=x&start=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	app.papers.papers = []domain.Paper{{ID: "p1", Title: "T", Authors: []string{}}}
	rec = app.do(t, http.MethodGet, "/search?query=attention", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Paper](t, rec), 1)

	rec = app.do(t, http.MethodGet, "/random", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No paper found", detail(t, rec))

	rec = app.do(t, http.MethodPost, "/extract?pdf_url=http://example.com/a.pdf&paper_id=p1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string]string](t, rec)["text"], 10000)

	rec = app.do(t, http.MethodGet, "/user/history", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"p1"}, decode[map[string][]string](t, rec)["paper_ids"])
}

func TestExtractWithoutToken(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodPost, "/extract?pdf_url=http://example.com/a.pdf&paper_id=p1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string]string](t, rec)["text"], 10000)

	rec = app.do(t, http.MethodPost, "/extract?pdf_url=http://example.com/a.pdf", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListModels(t *testing.T) {
	app := newTestApp(t)
	token := app.signup(t, "ada@example.com")

	rec := app.do(t, http.MethodGet, "/user/models", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]domain.ModelInfo](t, rec))
	assert.Empty(t, app.models.keys)

	require.Equal(t, http.StatusOK, app.do(t, http.MethodPut, "/user/api-key", token, map[string]string{"api_key": "k-123"}).Code)
	rec = app.do(t, http.MethodGet, "/user/models", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []domain.ModelInfo{{Name: "models/gemini-1.5-pro", DisplayName: "Gemini 1.5 Pro"}}, decode[[]domain.ModelInfo](t, rec))
	assert.Equal(t, []string{"k-123"}, app.models.keys)

	app.models.err = assert.AnError
	rec = app.do(t, http.MethodGet, "/user/models", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = app.do(t, http.MethodGet, "/user/models", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTemplatesAndCollections(t *testing.T) {
	app := newTestApp(t)
	token := app.signup(t, "ada@example.com")
	require.Equal(t, http.StatusOK, app.do(t, http.MethodPut, "/user/api-key", token, map[string]string{"api_key": "k"}).Code)

	rec := app.do(t, http.MethodPost, "/user/prompts", token, map[string]any{"name": "kid", "type": "bogus", "content": "c"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodPost, "/user/prompts", token, map[string]any{"name": "kid", "type": "eli5", "content": "Use toys.", "model": "gemini-1.5-pro"})
	require.Equal(t, http.StatusOK, rec.Code)
	tmpl := decode[domain.PromptTemplate](t, rec)

	rec = app.do(t, http.MethodPatch, "/user/prompts/"+itoa(tmpl.ID), token, map[string]any{"is_active": true})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, http.MethodPost, "/eli5", token, map[string]string{"text": "gradient descent"})
	require.Equal(t, http.StatusOK, rec.Code)
	last := app.gen.reqs[len(app.gen.reqs)-1]
	assert.Equal(t, "Use toys.", last.SystemInstruction)
	assert.Equal(t, "gradient descent", last.UserMessage)
	assert.Equal(t, "gemini-1.5-pro", app.gen.cfgs[len(app.gen.cfgs)-1].ModelName)

	rec = app.do(t, http.MethodPost, "/summarize", token, map[string]string{"text": "gradient descent"})
	require.Equal(t, http.StatusOK, rec.Code)
	last = app.gen.reqs[len(app.gen.reqs)-1]
	assert.Equal(t, usecase.SummaryPrompt("gradient descent"), last.UserMessage)

	rec = app.do(t, http.MethodPost, "/collections", token, map[string]string{"name": "reading"})
	require.Equal(t, http.StatusOK, rec.Code)
	col := decode[domain.Collection](t, rec)

	rec = app.do(t, http.MethodPost, "/collections/"+itoa(col.ID)+"/items", token, map[string]string{
		"paper_id": "p1", "paper_title": "Attention", "paper_summary": "Transformers.",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	item := decode[domain.CollectionItem](t, rec)

	session := decode[domain.ChatSessionRecord](t, app.do(t, http.MethodPost, "/chat/sessions", token, map[string]string{"title": "t"}))
	rec = app.do(t, http.MethodPost, "/chat/sessions/"+itoa(session.ID)+"/message", token, map[string]any{"message": "q", "paper_ids": []string{"p1"}})
	require.Equal(t, http.StatusOK, rec.Code)
	last = app.gen.reqs[len(app.gen.reqs)-1]
	assert.Equal(t, "Title: Attention\nSummary: Transformers.", last.ContextText)

	other := app.signup(t, "bob@example.com")
	rec = app.do(t, http.MethodGet, "/collections/"+itoa(col.ID), other, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(t, http.MethodDelete, "/collections/"+itoa(col.ID)+"/items/"+itoa(item.ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = app.do(t, http.MethodDelete, "/collections/"+itoa(col.ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = app.do(t, http.MethodGet, "/collections/"+itoa(col.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
