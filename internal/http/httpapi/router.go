package httpapi

import (
	"embed"
	"io/fs"
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"imagestudio/internal/http/handlers"
	"imagestudio/internal/middleware"
)

//go:embed web
var webFS embed.FS

// NewRouter wires the HTTP surface: the render endpoints, the optional
// session-history surface, and the embedded interactive page.
func NewRouter(app *handlers.App) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, chimw.RealIP, chimw.Recoverer, middleware.Logger(app.Logger))

	r.Get("/healthz", app.Health)

	r.Post("/generate", app.Generate)
	r.Post("/edit", app.Edit)

	r.Route("/history/sessions", func(r chi.Router) {
		r.Post("/", app.HistoryOpenSession)
		r.Route("/{session_id}", func(r chi.Router) {
			r.Get("/", app.HistoryGetSession)
			r.Delete("/", app.HistoryCloseSession)
			r.Post("/select", app.HistorySelect)
			r.Get("/versions/{version_id}", app.HistoryDownload)
		})
	})

	pages, err := fs.Sub(webFS, "web")
	if err != nil {
		panic(err)
	}
	r.Handle("/*", stdhttp.FileServerFS(pages))

	return r
}
