package httpserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// RequestTimeout bounds a whole request, including the search fan-out and upload processing.
const RequestTimeout = 30 * time.Second

type Server struct{ mux *chi.Mux }

func New() *Server {
	m := chi.NewRouter()

	// middlewares must be registered before any route; Instrument sits outside
	// Recoverer and Timeout so it sees their 500 and 503 responses
	m.Use(chimw.RealIP)
	m.Use(chimw.RequestID)
	m.Use(Instrument(log.Logger))
	m.Use(chimw.Recoverer)
	m.Use(Timeout(RequestTimeout))

	return &Server{mux: m}
}

func (s *Server) Mux() http.Handler { return s.mux }

// Mount attaches any extra handler (e.g., /metrics) to the router.
func (s *Server) Mount(path string, h http.Handler) {
	s.mux.Handle(path, h)
}

// MountStatic serves the files of dir under prefix, without directory listings.
func (s *Server) MountStatic(prefix, dir string) {
	prefix = strings.TrimSuffix(prefix, "/")
	fs := http.StripPrefix(prefix+"/", http.FileServer(http.Dir(dir)))
	s.mux.Get(prefix+"/*", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	})
}
