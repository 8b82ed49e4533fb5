package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/satriahrh/synapse/domain"
)

// memStore is an in-memory implementation of the store ports.
type memStore struct {
	mu        sync.Mutex
	nextID    int64
	profiles  map[int64]*domain.Profile
	templates []domain.PromptTemplate
	sessions  map[int64]*domain.ChatSessionRecord
	turns     []domain.Turn
	items     []domain.CollectionItem
	views     map[int64][]string
	clock     time.Time
}

func newMemStore() *memStore {
	return &memStore{
		profiles: map[int64]*domain.Profile{},
		sessions: map[int64]*domain.ChatSessionRecord{},
		views:    map[int64][]string{},
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) CreateUser(_ context.Context, email, hash string, p domain.Profile) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &domain.User{ID: m.id(), Email: email, PasswordHash: hash}
	p.UserID = u.ID
	m.profiles[u.ID] = &p
	return u, nil
}

func (m *memStore) GetUserByEmail(context.Context, string) (*domain.User, error) { return nil, nil }
func (m *memStore) GetUser(context.Context, int64) (*domain.User, error)          { return nil, nil }

func (m *memStore) GetProfile(_ context.Context, userID int64) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) UpdateProfile(_ context.Context, p *domain.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.profiles[p.UserID] = &cp
	return nil
}

func (m *memStore) RecordPaperView(_ context.Context, userID int64, paperID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.views[userID] = append([]string{paperID}, m.views[userID]...)
	return nil
}

func (m *memStore) PaperViews(_ context.Context, userID int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.views[userID]...), nil
}

func (m *memStore) ActiveTemplate(_ context.Context, userID int64, t domain.TemplateType) (*domain.PromptTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tmpl := range m.templates {
		if tmpl.UserID == userID && tmpl.Type == t && tmpl.IsActive {
			cp := tmpl
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListTemplates(context.Context, int64) ([]domain.PromptTemplate, error) {
	return m.templates, nil
}
func (m *memStore) GetTemplate(context.Context, int64, int64) (*domain.PromptTemplate, error) {
	return nil, nil
}
func (m *memStore) CreateTemplate(_ context.Context, t *domain.PromptTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = m.id()
	m.templates = append(m.templates, *t)
	return nil
}
func (m *memStore) UpdateTemplate(context.Context, *domain.PromptTemplate) error { return nil }
func (m *memStore) DeleteTemplate(context.Context, int64, int64) error           { return nil }

func (m *memStore) CreateCollection(context.Context, *domain.Collection) error { return nil }
func (m *memStore) ListCollections(context.Context, int64) ([]domain.Collection, error) {
	return nil, nil
}
func (m *memStore) GetCollection(context.Context, int64, int64) (*domain.Collection, error) {
	return nil, nil
}
func (m *memStore) DeleteCollection(context.Context, int64, int64) error  { return nil }
func (m *memStore) AddItem(context.Context, *domain.CollectionItem) error { return nil }
func (m *memStore) RemoveItem(context.Context, int64, int64) error        { return nil }

func (m *memStore) ItemsByPaperIDs(_ context.Context, _ int64, ids []string) ([]domain.CollectionItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.CollectionItem
	for _, id := range ids {
		for _, it := range m.items {
			if it.PaperID == id {
				out = append(out, it)
				break
			}
		}
	}
	return out, nil
}

func (m *memStore) CreateSession(_ context.Context, s *domain.ChatSessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.id()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memStore) ListSessions(context.Context, int64) ([]domain.ChatSessionRecord, error) {
	return nil, nil
}

func (m *memStore) GetSession(_ context.Context, userID, id int64) (*domain.ChatSessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.UserID != userID {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) DeleteSession(_ context.Context, _ int64, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *memStore) TouchSession(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.UpdatedAt = m.tick()
	}
	return nil
}

func (m *memStore) RecentMessages(_ context.Context, sessionID int64, limit int) ([]domain.Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Turn
	for _, t := range m.turns {
		if t.SessionID == sessionID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) AppendMessage(_ context.Context, t *domain.Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = m.id()
	t.CreatedAt = m.tick()
	m.turns = append(m.turns, *t)
	return nil
}

func (m *memStore) sessionTurns(sessionID int64) []domain.Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Turn
	for _, t := range m.turns {
		if t.SessionID == sessionID {
			out = append(out, t)
		}
	}
	return out
}

// recordingGenerator returns reply or err and records each call.
type recordingGenerator struct {
	mu    sync.Mutex
	reply string
	err   error
	reqs  []domain.PromptRequest
	cfgs  []domain.ProviderConfig
	// block, when set, is waited on inside Generate.
	block chan struct{}
	// active tracks concurrent Generate calls.
	active, maxActive int
}

func (g *recordingGenerator) Generate(ctx context.Context, req domain.PromptRequest, cfg domain.ProviderConfig) (string, error) {
	g.mu.Lock()
	g.reqs = append(g.reqs, req)
	g.cfgs = append(g.cfgs, cfg)
	g.active++
	if g.active > g.maxActive {
		g.maxActive = g.active
	}
	block := g.block
	g.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.active--
	return g.reply, g.err
}

type recordingBroker struct {
	mu       sync.Mutex
	messages []domain.Message
}

func (b *recordingBroker) Publish(_ context.Context, topic, key string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, domain.Message{Topic: topic, RoutingKey: key, Payload: payload})
	return nil
}

func (b *recordingBroker) Subscribe(context.Context, string, string) (<-chan domain.Message, error) {
	return nil, nil
}

func (b *recordingBroker) Close() error { return nil }
