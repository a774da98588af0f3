package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"imagestudio/internal/history"
	"imagestudio/internal/infra"
	"imagestudio/internal/providers/openai"
	"imagestudio/internal/render"
)

// SessionHeader carries the optional history session id. Requests without it
// are fully stateless.
const SessionHeader = "X-Session-ID"

// Renderer dispatches one validated render request to the image provider.
type Renderer interface {
	Render(ctx context.Context, req *render.Request) (*openai.Image, error)
}

// App is the handler container: configuration, logging, the provider client,
// and the per-session history registry.
type App struct {
	Config   *infra.Config
	Logger   zerolog.Logger
	Renderer Renderer
	Sessions *history.Sessions
}

func NewApp(cfg *infra.Config, logger zerolog.Logger, renderer Renderer, sessions *history.Sessions) *App {
	return &App{Config: cfg, Logger: logger, Renderer: renderer, Sessions: sessions}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, message string) {
	a.json(w, code, map[string]string{"error": message})
}

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}
