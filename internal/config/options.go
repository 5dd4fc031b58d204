package config

import (
	"log/slog"
	"time"

	"github.com/urfave/cli/v3"
)

// Server holds the HTTP surface configuration.
type Server struct {
	addr      string
	staticDir string
}

func (s *Server) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Listen address for the HTTP API",
			Value:       ":5001",
			Sources:     cli.EnvVars("CREATORCHAT_ADDR"),
			Destination: &s.addr,
		},
		&cli.StringFlag{
			Name:        "static-dir",
			Usage:       "Directory of frontend assets to serve (empty disables)",
			Sources:     cli.EnvVars("CREATORCHAT_STATIC_DIR"),
			Destination: &s.staticDir,
		},
	}
}

func (s *Server) Addr() string      { return s.addr }
func (s *Server) StaticDir() string { return s.staticDir }

func (s *Server) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("addr", s.addr),
		slog.String("static_dir", s.staticDir),
	}
}

// Embedding holds the embedding inference engine configuration.
type Embedding struct {
	baseURL string
	model   string
	timeout time.Duration
}

func (e *Embedding) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "embedding-url",
			Usage:       "Base URL of the local embedding inference engine",
			Value:       "http://localhost:11434",
			Sources:     cli.EnvVars("CREATORCHAT_EMBEDDING_URL"),
			Destination: &e.baseURL,
		},
		&cli.StringFlag{
			Name:        "embedding-model",
			Usage:       "Sentence embedding model name",
			Value:       "all-minilm",
			Sources:     cli.EnvVars("CREATORCHAT_EMBEDDING_MODEL"),
			Destination: &e.model,
		},
		&cli.DurationFlag{
			Name:        "embedding-timeout",
			Usage:       "Per-call timeout for embedding requests",
			Value:       10 * time.Second,
			Sources:     cli.EnvVars("CREATORCHAT_EMBEDDING_TIMEOUT"),
			Destination: &e.timeout,
		},
	}
}

func (e *Embedding) BaseURL() string        { return e.baseURL }
func (e *Embedding) Model() string          { return e.model }
func (e *Embedding) Timeout() time.Duration { return e.timeout }

func (e *Embedding) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("base_url", e.baseURL),
		slog.String("model", e.model),
	}
}

// Collaborator holds the chat-completion collaborator configuration.
type Collaborator struct {
	apiKey  string
	model   string
	baseURL string
	timeout time.Duration
}

func (c *Collaborator) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "groq-api-key",
			Usage:       "API key for the Groq chat completion API",
			Sources:     cli.EnvVars("GROQ_API_KEY"),
			Destination: &c.apiKey,
		},
		&cli.StringFlag{
			Name:        "groq-model",
			Usage:       "Chat completion model",
			Value:       "llama-3.1-8b-instant",
			Sources:     cli.EnvVars("GROQ_MODEL"),
			Destination: &c.model,
		},
		&cli.StringFlag{
			Name:        "groq-url",
			Usage:       "Base URL of the chat completion API",
			Value:       "https://api.groq.com/openai/v1",
			Sources:     cli.EnvVars("GROQ_API_URL"),
			Destination: &c.baseURL,
		},
		&cli.DurationFlag{
			Name:        "groq-timeout",
			Usage:       "Per-call timeout for chat completion requests",
			Value:       60 * time.Second,
			Sources:     cli.EnvVars("GROQ_TIMEOUT"),
			Destination: &c.timeout,
		},
	}
}

func (c *Collaborator) APIKey() string         { return c.apiKey }
func (c *Collaborator) Model() string          { return c.model }
func (c *Collaborator) BaseURL() string        { return c.baseURL }
func (c *Collaborator) Timeout() time.Duration { return c.timeout }

func (c *Collaborator) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("model", c.model),
		slog.String("base_url", c.baseURL),
		slog.Bool("api_key_configured", c.apiKey != ""),
	}
}

// Datastore holds vector datastore tuning.
type Datastore struct {
	timeout time.Duration
}

func (d *Datastore) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:        "datastore-timeout",
			Usage:       "Per-call timeout for datastore search and fetch requests",
			Value:       15 * time.Second,
			Sources:     cli.EnvVars("CREATORCHAT_DATASTORE_TIMEOUT"),
			Destination: &d.timeout,
		},
	}
}

func (d *Datastore) Timeout() time.Duration { return d.timeout }

// Sessions holds conversation store tuning.
type Sessions struct {
	idleTTL time.Duration
}

func (s *Sessions) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:        "session-idle-ttl",
			Usage:       "Evict sessions idle longer than this (0 disables eviction)",
			Value:       time.Hour,
			Sources:     cli.EnvVars("CREATORCHAT_SESSION_IDLE_TTL"),
			Destination: &s.idleTTL,
		},
	}
}

func (s *Sessions) IdleTTL() time.Duration { return s.idleTTL }
