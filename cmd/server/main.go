package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/monetizerai/creatorchat/internal/chat"
	"github.com/monetizerai/creatorchat/internal/config"
	"github.com/monetizerai/creatorchat/internal/embed"
	"github.com/monetizerai/creatorchat/internal/httpapi"
	"github.com/monetizerai/creatorchat/internal/knowledge"
	"github.com/monetizerai/creatorchat/internal/llm"
	"github.com/monetizerai/creatorchat/internal/logging"
	"github.com/monetizerai/creatorchat/internal/session"
)

var version = "dev"

func main() {
	// Local development keeps secrets in a .env file. Absence is fine.
	_ = godotenv.Load()

	if err := run(context.Background(), os.Args); err != nil {
		logging.Default().Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	var (
		serverCfg       config.Server
		embeddingCfg    config.Embedding
		collaboratorCfg config.Collaborator
		datastoreCfg    config.Datastore
		sessionsCfg     config.Sessions

		creatorsFile string
		logLevel     string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "creators-file",
			Usage:       "Path to the creators TOML registry",
			Value:       "creators.toml",
			Sources:     cli.EnvVars("CREATORCHAT_CREATORS_FILE"),
			Destination: &creatorsFile,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("CREATORCHAT_LOG_LEVEL"),
			Destination: &logLevel,
		},
	}
	flags = append(flags, serverCfg.Flags()...)
	flags = append(flags, embeddingCfg.Flags()...)
	flags = append(flags, collaboratorCfg.Flags()...)
	flags = append(flags, datastoreCfg.Flags()...)
	flags = append(flags, sessionsCfg.Flags()...)

	app := &cli.Command{
		Name:    "creatorchat",
		Usage:   "Knowledge-grounded creator persona chat server",
		Version: version,
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			level, err := parseLogLevel(logLevel)
			if err != nil {
				return err
			}
			logging.SetDefault(logging.New(os.Stdout, level))

			logger := logging.Default()
			logger.Info("starting creatorchat", "version", version)
			logger.Info("server configuration", attrsToAny(serverCfg.LogAttrs())...)
			logger.Info("embedding configuration", attrsToAny(embeddingCfg.LogAttrs())...)
			logger.Info("collaborator configuration", attrsToAny(collaboratorCfg.LogAttrs())...)

			registry, err := config.LoadRegistry(creatorsFile)
			if err != nil {
				return goerr.Wrap(err, "failed to load creator registry", goerr.V("path", creatorsFile))
			}
			logger.Info("creator registry loaded", "creators", len(registry.Creators()))

			embedder := embed.New(ctx, embeddingCfg.BaseURL(), embeddingCfg.Model(), embeddingCfg.Timeout())

			store := knowledge.NewMilvusStore(datastoreCfg.Timeout())
			defer store.Close(context.Background())

			searcher := knowledge.NewClient(store, embedder)

			sessions := session.NewStore(sessionsCfg.IdleTTL())
			defer sessions.Close()

			collaborator := llm.NewGroqService(
				collaboratorCfg.APIKey(),
				collaboratorCfg.Model(),
				collaboratorCfg.BaseURL(),
				collaboratorCfg.Timeout(),
			)

			orchestrator := chat.New(registry, searcher, sessions, collaborator)

			handler := httpapi.New(orchestrator, registry,
				httpapi.WithStaticDir(serverCfg.StaticDir()),
				httpapi.WithModelName(collaboratorCfg.Model()),
			)

			server := &http.Server{
				Addr:              serverCfg.Addr(),
				Handler:           handler,
				ReadHeaderTimeout: 30 * time.Second,
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logger.Info("listening", "addr", serverCfg.Addr())
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logger.Info("received shutdown signal", "signal", sig.String())

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logger.Info("server shutdown completed")
				return nil
			}
		},
	}

	return app.Run(ctx, args)
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, goerr.New("unknown log level", goerr.V("level", s))
	}
}

func attrsToAny(attrs []slog.Attr) []any {
	out := make([]any, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, a)
	}
	return out
}
