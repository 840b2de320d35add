package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/stylusfm/stylus/pkg/logger"
)

// NewRouter wires the service routes behind the shared middleware
// stack.
func NewRouter(app *App, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.Nop()
	}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		RequestLogger(log),
	)

	r.Get("/healthz", app.Health)
	r.Post("/process-audio", app.ProcessAudio)
	r.Get("/status/{taskID}", app.Status)
	r.Get("/audio/{fileID}", app.Audio)

	return r
}
