package http

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/satriahrh/synapse/domain"
	"github.com/satriahrh/synapse/usecase"
)

type SignupRequest struct {
	Email             string          `json:"email"`
	Password          string          `json:"password"`
	FullName          string          `json:"full_name"`
	OnboardingAnswers json.RawMessage `json:"onboarding_answers"`
}

// LoginRequest accepts the OAuth2 password form (username) or JSON (email).
type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (h *Handler) Signup(c echo.Context) error {
	var req SignupRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	onboarding := ""
	if len(req.OnboardingAnswers) > 0 && string(req.OnboardingAnswers) != "null" {
		onboarding = string(req.OnboardingAnswers)
	}

	u, err := h.accounts.Signup(c.Request().Context(), usecase.SignupInput{
		Email:             req.Email,
		Password:          req.Password,
		FullName:          req.FullName,
		OnboardingAnswers: onboarding,
	})
	if err != nil {
		return err
	}
	return h.issue(c, u)
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	email := req.Username
	if email == "" {
		email = req.Email
	}
	u, err := h.accounts.Login(c.Request().Context(), email, req.Password)
	if err != nil {
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
		return err
	}
	return h.issue(c, u)
}

func (h *Handler) issue(c echo.Context, u *domain.User) error {
	token, err := h.tokens.Issue(u.ID, u.Email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (h *Handler) Me(c echo.Context) error {
	me, err := h.accounts.Me(c.Request().Context(), currentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, me)
}

type ProfileRequest struct {
	FullName       *string `json:"full_name"`
	PreferredModel *string `json:"preferred_model"`
	ProfileImage   *string `json:"profile_image"`
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	var req ProfileRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	_, err := h.accounts.UpdateProfile(c.Request().Context(), currentUser(c), usecase.ProfilePatch{
		FullName:       req.FullName,
		PreferredModel: req.PreferredModel,
		ProfileImage:   req.ProfileImage,
	})
	if err != nil {
		return err
	}
	return message(c, "Profile updated successfully")
}

// SetAPIKey reads the key from the JSON body or the api_key query parameter.
func (h *Handler) SetAPIKey(c echo.Context) error {
	var req struct {
		APIKey string `json:"api_key"`
	}
	if c.Request().ContentLength > 0 {
		if err := bind(c, &req); err != nil {
			return err
		}
	}
	if req.APIKey == "" {
		req.APIKey = c.QueryParam("api_key")
	}
	if req.APIKey == "" {
		return domain.InvalidError("api_key is required")
	}
	if _, err := h.accounts.UpdateProfile(c.Request().Context(), currentUser(c), usecase.ProfilePatch{GeminiAPIKey: &req.APIKey}); err != nil {
		return err
	}
	return message(c, "API Key updated successfully")
}

func (h *Handler) History(c echo.Context) error {
	ids, err := h.accounts.History(c.Request().Context(), currentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string][]string{"paper_ids": ids})
}

func (h *Handler) Models(c echo.Context) error {
	models, err := h.accounts.Models(c.Request().Context(), currentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, models)
}

func (h *Handler) ListPrompts(c echo.Context) error {
	templates, err := h.accounts.ListTemplates(c.Request().Context(), currentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, templates)
}

type PromptRequest struct {
	Name     string              `json:"name"`
	Type     domain.TemplateType `json:"type"`
	Content  string              `json:"content"`
	Model    string              `json:"model"`
	IsActive bool                `json:"is_active"`
}

func (h *Handler) CreatePrompt(c echo.Context) error {
	var req PromptRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	t := &domain.PromptTemplate{
		UserID:   currentUser(c),
		Name:     req.Name,
		Type:     req.Type,
		Content:  req.Content,
		Model:    req.Model,
		IsActive: req.IsActive,
	}
	if err := h.accounts.CreateTemplate(c.Request().Context(), t); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

type PromptPatchRequest struct {
	Name     *string `json:"name"`
	Content  *string `json:"content"`
	Model    *string `json:"model"`
	IsActive *bool   `json:"is_active"`
}

func (h *Handler) UpdatePrompt(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req PromptPatchRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	t, err := h.accounts.UpdateTemplate(c.Request().Context(), currentUser(c), id, usecase.TemplatePatch{
		Name:     req.Name,
		Content:  req.Content,
		Model:    req.Model,
		IsActive: req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) DeletePrompt(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.accounts.DeleteTemplate(c.Request().Context(), currentUser(c), id); err != nil {
		return err
	}
	return message(c, "Prompt deleted")
}
