package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mklatt/glowcast/internal/domain"
)

type createChannelRequest struct {
	ID string `json:"id"`
}

func (s *Server) handleCreateChannel(c echo.Context) error {
	var req createChannelRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}
	if req.ID == "" {
		return c.JSON(http.StatusBadRequest, errorBody("channel id is required"))
	}

	if err := s.app.CreateChannel(c.Request().Context(), req.ID); err != nil {
		return s.domainError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"id": req.ID})
}

func (s *Server) handleListPages(c echo.Context) error {
	includeExpired := c.QueryParam("include_expired") == "true"
	pages, err := s.app.Pages(c.Request().Context(), c.Param("channel"), includeExpired)
	if err != nil {
		return s.domainError(c, err)
	}
	return c.JSON(http.StatusOK, pages)
}

func (s *Server) handleUpsertPage(c echo.Context) error {
	var patch domain.PagePatch
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	page, err := s.app.UpsertPage(c.Request().Context(), c.Param("channel"), c.Param("name"), patch)
	if err != nil {
		return s.domainError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

func (s *Server) handleGetPage(c echo.Context) error {
	page, err := s.app.Page(c.Request().Context(), c.Param("channel"), c.Param("name"))
	if err != nil {
		return s.domainError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

func (s *Server) handleUpdatePage(c echo.Context) error {
	var patch domain.PagePatch
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	page, err := s.app.UpdatePage(c.Request().Context(), c.Param("channel"), c.Param("name"), patch)
	if err != nil {
		return s.domainError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

func (s *Server) handleDeletePage(c echo.Context) error {
	if err := s.app.DeletePage(c.Request().Context(), c.Param("channel"), c.Param("name")); err != nil {
		return s.domainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleResolvedLayout(c echo.Context) error {
	layout, err := s.app.ResolvedLayout(c.Request().Context(), c.Param("channel"), c.Param("name"))
	if err != nil {
		return s.domainError(c, err)
	}
	return c.JSON(http.StatusOK, layout)
}

func (s *Server) handleListThemes(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string][]string{"builtin": domain.BuiltinThemeNames()})
}

func (s *Server) handleGetTheme(c echo.Context) error {
	theme, err := s.app.Theme(c.Request().Context(), c.Param("name"))
	if err != nil {
		return s.domainError(c, err)
	}
	return c.JSON(http.StatusOK, theme)
}

func (s *Server) handleUpsertTheme(c echo.Context) error {
	var style domain.Style
	if err := c.Bind(&style); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	theme := domain.Theme{Name: c.Param("name"), Style: style}
	if err := s.app.UpsertTheme(c.Request().Context(), theme); err != nil {
		return s.domainError(c, err)
	}
	return c.JSON(http.StatusOK, theme)
}

func (s *Server) handleListLayoutPresets(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string][]string{"presets": domain.LayoutPresetNames()})
}

type reorderRequest struct {
	Names []string `json:"names"`
}

func (s *Server) handleReorderPages(c echo.Context) error {
	var req reorderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	if err := s.app.ReorderPages(c.Request().Context(), c.Param("channel"), req.Names); err != nil {
		return s.domainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleGetRotation(c echo.Context) error {
	rotation, err := s.app.ResolvedRotation(c.Request().Context(), c.Param("channel"))
	if err != nil {
		return s.domainError(c, err)
	}
	return c.JSON(http.StatusOK, rotation)
}

func (s *Server) handleUpdateRotation(c echo.Context) error {
	var patch domain.RotationPatch
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	rotation, err := s.app.UpdateRotation(c.Request().Context(), c.Param("channel"), patch)
	if err != nil {
		return s.domainError(c, err)
	}
	return c.JSON(http.StatusOK, rotation)
}

func (s *Server) handleReload(c echo.Context) error {
	delivered := s.app.SendReload(c.Param("channel"))
	return c.JSON(http.StatusOK, map[string]int{"delivered": delivered})
}

type debugRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleDebug(c echo.Context) error {
	var req debugRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	if err := s.app.SetDebug(c.Request().Context(), c.Param("channel"), req.Enabled); err != nil {
		return s.domainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleViewerCount(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]int{"count": s.app.ViewerCount(c.Param("channel"))})
}

// domainError maps domain sentinel errors to HTTP responses. Anything not
// recognized is a store failure and surfaces as a 500.
func (s *Server) domainError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrChannelNotFound), errors.Is(err, domain.ErrPageNotFound), errors.Is(err, domain.ErrThemeNotFound):
		return c.JSON(http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, domain.ErrChannelExists), errors.Is(err, domain.ErrPageProtected):
		return c.JSON(http.StatusConflict, errorBody(err.Error()))
	default:
		slog.Error("Request failed", "path", c.Path(), "error", err)
		return c.JSON(http.StatusInternalServerError, errorBody("internal error"))
	}
}

func errorBody(message string) map[string]string {
	return map[string]string{"error": message}
}
