package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type SessionRequest struct {
	Title string `json:"title"`
}

type MessageRequest struct {
	Message  string   `json:"message"`
	PaperIDs []string `json:"paper_ids"`
}

type MessageResponse struct {
	Response string `json:"response"`
}

func (h *Handler) ListSessions(c echo.Context) error {
	sessions, err := h.chat.ListSessions(c.Request().Context(), currentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sessions)
}

func (h *Handler) CreateSession(c echo.Context) error {
	var req SessionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	s, err := h.chat.CreateSession(c.Request().Context(), currentUser(c), req.Title)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) GetSession(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	s, err := h.chat.GetSession(c.Request().Context(), currentUser(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) DeleteSession(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.chat.DeleteSession(c.Request().Context(), currentUser(c), id); err != nil {
		return err
	}
	return message(c, "Session deleted")
}

func (h *Handler) SendMessage(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req MessageRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	reply, err := h.chat.SendMessage(c.Request().Context(), currentUser(c), id, req.Message, req.PaperIDs)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Response: reply})
}
