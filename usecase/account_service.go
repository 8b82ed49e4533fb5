package usecase

import (
	"context"
	"net/mail"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/satriahrh/synapse/domain"
	"github.com/satriahrh/synapse/utils/log"
)

type AccountService struct {
	users        domain.UserStore
	templates    domain.TemplateStore
	models       domain.ModelLister
	defaultModel string
}

func NewAccountService(users domain.UserStore, templates domain.TemplateStore, models domain.ModelLister, defaultModel string) *AccountService {
	if defaultModel == "" {
		defaultModel = domain.DefaultModel
	}
	return &AccountService{users: users, templates: templates, models: models, defaultModel: defaultModel}
}

type SignupInput struct {
	Email             string
	Password          string
	FullName          string
	OnboardingAnswers string
}

func (s *AccountService) Signup(ctx context.Context, in SignupInput) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, domain.InvalidError("a valid email is required")
	}
	if len(in.Password) < 8 {
		return nil, domain.InvalidError("password must be at least 8 characters")
	}
	existing, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.InvalidError("Email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return s.users.CreateUser(ctx, email, string(hash), domain.Profile{
		FullName:       in.FullName,
		PreferredModel: s.defaultModel,
		OnboardingData: in.OnboardingAnswers,
	})
}

func (s *AccountService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	u, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	if u == nil || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, domain.UnauthorizedError("Incorrect email or password")
	}
	return u, nil
}

type Me struct {
	ID             int64  `json:"id"`
	Email          string `json:"email"`
	FullName       string `json:"full_name"`
	ProfileImage   string `json:"profile_image"`
	PreferredModel string `json:"preferred_model"`
	APIKeySet      bool   `json:"api_key_set"`
}

func (s *AccountService) Me(ctx context.Context, userID int64) (*Me, error) {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.NotFoundError("User")
	}
	me := &Me{ID: u.ID, Email: u.Email, PreferredModel: s.defaultModel}
	p, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p != nil {
		me.FullName = p.FullName
		me.ProfileImage = p.ProfileImage
		if p.PreferredModel != "" {
			me.PreferredModel = p.PreferredModel
		}
		me.APIKeySet = p.GeminiAPIKey != ""
	}
	return me, nil
}

// ProfilePatch carries optional fields; nil leaves the value unchanged.
type ProfilePatch struct {
	FullName       *string
	PreferredModel *string
	ProfileImage   *string
	GeminiAPIKey   *string
}

func (s *AccountService) UpdateProfile(ctx context.Context, userID int64, patch ProfilePatch) (*Me, error) {
	p, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		p = &domain.Profile{UserID: userID, PreferredModel: s.defaultModel}
	}
	if patch.FullName != nil {
		p.FullName = *patch.FullName
	}
	if patch.PreferredModel != nil {
		p.PreferredModel = NormalizeModelName(*patch.PreferredModel, s.defaultModel)
	}
	if patch.ProfileImage != nil {
		p.ProfileImage = *patch.ProfileImage
	}
	if patch.GeminiAPIKey != nil {
		p.GeminiAPIKey = strings.TrimSpace(*patch.GeminiAPIKey)
	}
	if err := s.users.UpdateProfile(ctx, p); err != nil {
		return nil, err
	}
	return s.Me(ctx, userID)
}

func (s *AccountService) ListTemplates(ctx context.Context, userID int64) ([]domain.PromptTemplate, error) {
	return s.templates.ListTemplates(ctx, userID)
}

func (s *AccountService) CreateTemplate(ctx context.Context, t *domain.PromptTemplate) error {
	if strings.TrimSpace(t.Name) == "" || strings.TrimSpace(t.Content) == "" {
		return domain.InvalidError("name and content are required")
	}
	if !t.Type.Valid() {
		return domain.InvalidError("type must be one of chat, eli5, summarize")
	}
	return s.templates.CreateTemplate(ctx, t)
}

type TemplatePatch struct {
	Name     *string
	Content  *string
	Model    *string
	IsActive *bool
}

// UpdateTemplate applies patch; activating a template deactivates the
// user's other templates of the same type.
func (s *AccountService) UpdateTemplate(ctx context.Context, userID, id int64, patch TemplatePatch) (*domain.PromptTemplate, error) {
	t, err := s.templates.GetTemplate(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, domain.NotFoundError("Template")
	}
	if patch.Name != nil {
		t.Name = *patch.Name
	}
	if patch.Content != nil {
		t.Content = *patch.Content
	}
	if patch.Model != nil {
		t.Model = *patch.Model
	}
	if patch.IsActive != nil {
		t.IsActive = *patch.IsActive
	}
	if err := s.templates.UpdateTemplate(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *AccountService) DeleteTemplate(ctx context.Context, userID, id int64) error {
	return s.templates.DeleteTemplate(ctx, userID, id)
}

// History returns the ids of papers the user opened, newest first.
func (s *AccountService) History(ctx context.Context, userID int64) ([]string, error) {
	return s.users.PaperViews(ctx, userID)
}

// Models lists the generation models the user's own key can call. A missing
// key or a provider failure yields an empty list.
func (s *AccountService) Models(ctx context.Context, userID int64) ([]domain.ModelInfo, error) {
	none := []domain.ModelInfo{}
	p, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil || strings.TrimSpace(p.GeminiAPIKey) == "" || s.models == nil {
		return none, nil
	}
	models, err := s.models.ListModels(ctx, p.GeminiAPIKey)
	if err != nil {
		log.WithCtx(ctx).Warn("listing provider models", zap.Error(err))
		return none, nil
	}
	return models, nil
}
