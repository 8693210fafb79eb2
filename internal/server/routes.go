package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Channel and page API
	s.echo.POST("/api/channels", s.handleCreateChannel)
	s.echo.GET("/api/channels/:channel/pages", s.handleListPages)
	s.echo.POST("/api/channels/:channel/pages/:name", s.handleUpsertPage)
	s.echo.GET("/api/channels/:channel/pages/:name", s.handleGetPage)
	s.echo.PATCH("/api/channels/:channel/pages/:name", s.handleUpdatePage)
	s.echo.DELETE("/api/channels/:channel/pages/:name", s.handleDeletePage)
	s.echo.GET("/api/channels/:channel/pages/:name/layout", s.handleResolvedLayout)
	s.echo.PUT("/api/channels/:channel/pages-order", s.handleReorderPages)

	// Themes and layout presets
	s.echo.GET("/api/themes", s.handleListThemes)
	s.echo.GET("/api/themes/:name", s.handleGetTheme)
	s.echo.PUT("/api/themes/:name", s.handleUpsertTheme)
	s.echo.GET("/api/layout-presets", s.handleListLayoutPresets)

	// Rotation settings and push controls
	s.echo.GET("/api/channels/:channel/rotation", s.handleGetRotation)
	s.echo.PATCH("/api/channels/:channel/rotation", s.handleUpdateRotation)
	s.echo.POST("/api/channels/:channel/reload", s.handleReload)
	s.echo.POST("/api/channels/:channel/debug", s.handleDebug)
	s.echo.GET("/api/channels/:channel/viewers", s.handleViewerCount)

	// Viewer WebSocket
	s.echo.GET("/ws/:channel", s.handleWebSocket)
}
