package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/satriahrh/synapse/domain"
)

type CollectionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type ItemRequest struct {
	PaperID      string `json:"paper_id"`
	PaperTitle   string `json:"paper_title"`
	PaperSummary string `json:"paper_summary"`
}

func (h *Handler) ListCollections(c echo.Context) error {
	cols, err := h.library.List(c.Request().Context(), currentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cols)
}

func (h *Handler) CreateCollection(c echo.Context) error {
	var req CollectionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	col, err := h.library.Create(c.Request().Context(), currentUser(c), req.Name, req.Description)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, col)
}

func (h *Handler) GetCollection(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	col, err := h.library.Get(c.Request().Context(), currentUser(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, col)
}

func (h *Handler) DeleteCollection(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.library.Delete(c.Request().Context(), currentUser(c), id); err != nil {
		return err
	}
	return message(c, "Collection deleted")
}

func (h *Handler) AddItem(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req ItemRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	item, err := h.library.AddItem(c.Request().Context(), currentUser(c), id, domain.CollectionItem{
		PaperID:      req.PaperID,
		PaperTitle:   req.PaperTitle,
		PaperSummary: req.PaperSummary,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handler) RemoveItem(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	itemID, err := paramID(c, "item_id")
	if err != nil {
		return err
	}
	if err := h.library.RemoveItem(c.Request().Context(), currentUser(c), id, itemID); err != nil {
		return err
	}
	return message(c, "Item removed")
}
