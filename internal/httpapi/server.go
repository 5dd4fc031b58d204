// Package httpapi exposes the chat pipeline over HTTP. Transport concerns
// only: routing, decoding, the malformed-request error path, and static
// asset serving. Everything behind it always answers.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/monetizerai/creatorchat/internal/chat"
	"github.com/monetizerai/creatorchat/internal/config"
)

type Server struct {
	router       *chi.Mux
	orchestrator *chat.Orchestrator
	registry     *config.Registry
	staticDir    string
	model        string
}

type Option func(*Server)

// WithStaticDir serves frontend assets from dir on the catch-all route.
func WithStaticDir(dir string) Option {
	return func(s *Server) {
		s.staticDir = dir
	}
}

// WithModelName names the collaborator model in the health document.
func WithModelName(model string) Option {
	return func(s *Server) {
		s.model = model
	}
}

// New builds the router.
func New(orchestrator *chat.Orchestrator, registry *config.Registry, opts ...Option) *Server {
	s := &Server{
		router:       chi.NewRouter(),
		orchestrator: orchestrator,
		registry:     registry,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := s.router
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Get("/health", s.handleHealth)
		r.Get("/creators", s.handleCreators)
	})

	if s.staticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.staticDir)))
	}

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
