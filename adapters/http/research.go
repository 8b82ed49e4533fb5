package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/satriahrh/synapse/domain"
)

func queryInt(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.InvalidError(name + " must be an integer")
	}
	return v, nil
}

func (h *Handler) Search(c echo.Context) error {
	start, err := queryInt(c, "start", 0)
	if err != nil {
		return err
	}
	maxResults, err := queryInt(c, "max_results", 10)
	if err != nil {
		return err
	}
	papers, err := h.research.Search(c.Request().Context(), domain.SearchQuery{
		Query:      c.QueryParam("query"),
		Start:      start,
		MaxResults: maxResults,
		SortBy:     c.QueryParam("sort_by"),
		SortOrder:  c.QueryParam("sort_order"),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, papers)
}

func (h *Handler) Random(c echo.Context) error {
	paper, err := h.research.RandomPaper(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, paper)
}

func (h *Handler) Extract(c echo.Context) error {
	text, err := h.research.ExtractText(c.Request().Context(), currentUser(c), c.QueryParam("pdf_url"), c.QueryParam("paper_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"text": text})
}

type ChatRequest struct {
	PapersContext string `json:"papers_context"`
	UserQuery     string `json:"user_query"`
}

func (h *Handler) Chat(c echo.Context) error {
	var req ChatRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	reply, err := h.research.Chat(c.Request().Context(), currentUser(c), req.PapersContext, req.UserQuery)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, reply)
}

type TextRequest struct {
	Text string `json:"text"`
}

func (h *Handler) ELI5(c echo.Context) error {
	var req TextRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	reply, err := h.research.ELI5(c.Request().Context(), currentUser(c), req.Text)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, reply)
}

func (h *Handler) Summarize(c echo.Context) error {
	var req TextRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	reply, err := h.research.Summarize(c.Request().Context(), currentUser(c), req.Text)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, reply)
}
