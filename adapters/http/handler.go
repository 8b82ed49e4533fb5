// Package http exposes the research assistant over a JSON API.
package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/satriahrh/synapse/usecase"
)

type Handler struct {
	accounts *usecase.AccountService
	research *usecase.ResearchService
	library  *usecase.LibraryService
	chat     *usecase.ChatService
	tokens   *TokenIssuer
}

type HandlerDeps struct {
	Accounts *usecase.AccountService
	Research *usecase.ResearchService
	Library  *usecase.LibraryService
	Chat     *usecase.ChatService
	Tokens   *TokenIssuer
}

func NewHandler(deps HandlerDeps) *Handler {
	return &Handler{
		accounts: deps.Accounts,
		research: deps.Research,
		library:  deps.Library,
		chat:     deps.Chat,
		tokens:   deps.Tokens,
	}
}

// Register mounts every route on e. Routes other than liveness, auth and
// paper discovery require a bearer token; /extract takes one optionally so
// signed-in reads land in the user's history.
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/", h.Root)
	e.GET("/health", h.HealthCheck)

	auth := e.Group("/auth")
	auth.POST("/signup", h.Signup)
	auth.POST("/login", h.Login)

	e.GET("/search", h.Search)
	e.GET("/random", h.Random)

	authn := h.tokens.Middleware
	e.POST("/extract", h.Extract, h.tokens.OptionalMiddleware)
	e.POST("/chat", h.Chat, authn)
	e.POST("/eli5", h.ELI5, authn)
	e.POST("/summarize", h.Summarize, authn)

	user := e.Group("/user", authn)
	user.GET("/me", h.Me)
	user.PATCH("/profile", h.UpdateProfile)
	user.PUT("/api-key", h.SetAPIKey)
	user.POST("/api-key", h.SetAPIKey)
	user.GET("/history", h.History)
	user.GET("/models", h.Models)
	user.GET("/prompts", h.ListPrompts)
	user.POST("/prompts", h.CreatePrompt)
	user.PATCH("/prompts/:id", h.UpdatePrompt)
	user.PUT("/prompts/:id", h.UpdatePrompt)
	user.DELETE("/prompts/:id", h.DeletePrompt)

	collections := e.Group("/collections", authn)
	collections.GET("", h.ListCollections)
	collections.GET("/", h.ListCollections)
	collections.POST("", h.CreateCollection)
	collections.POST("/", h.CreateCollection)
	collections.GET("/:id", h.GetCollection)
	collections.DELETE("/:id", h.DeleteCollection)
	collections.POST("/:id/items", h.AddItem)
	collections.DELETE("/:id/items/:item_id", h.RemoveItem)

	sessions := e.Group("/chat/sessions", authn)
	sessions.GET("", h.ListSessions)
	sessions.POST("", h.CreateSession)
	sessions.GET("/:id", h.GetSession)
	sessions.DELETE("/:id", h.DeleteSession)
	sessions.POST("/:id/message", h.SendMessage)
}

func (h *Handler) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": "Welcome to Synapse API"})
}

func (h *Handler) HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "synapse",
	})
}

func message(c echo.Context, text string) error {
	return c.JSON(http.StatusOK, map[string]string{"message": text})
}

func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	return nil
}

func paramID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name)
	}
	return id, nil
}
