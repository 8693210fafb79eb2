package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/mklatt/glowcast/internal/app"
	"github.com/mklatt/glowcast/internal/config"
	"github.com/mklatt/glowcast/internal/hub"
)

// ReadyCheck probes one dependency for the readiness endpoint.
type ReadyCheck struct {
	Name  string
	Probe func(ctx context.Context) error
}

type Server struct {
	echo        *echo.Echo
	config      *config.Config
	app         *app.Service
	hub         *hub.Hub
	readyChecks []ReadyCheck
	startTime   time.Time
}

func New(cfg *config.Config, svc *app.Service, h *hub.Hub, readyChecks []ReadyCheck) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	srv := &Server{
		echo:        e,
		config:      cfg,
		app:         svc,
		hub:         h,
		readyChecks: readyChecks,
		startTime:   time.Now(),
	}
	srv.registerRoutes()
	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
