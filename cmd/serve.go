package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/KotobaMedia/binary-blackhole/internal/chatter"
	"github.com/KotobaMedia/binary-blackhole/internal/config"
	"github.com/KotobaMedia/binary-blackhole/internal/httpapi"
	"github.com/KotobaMedia/binary-blackhole/internal/llm"
	"github.com/KotobaMedia/binary-blackhole/internal/pg"
	"github.com/KotobaMedia/binary-blackhole/internal/store"
	"github.com/KotobaMedia/binary-blackhole/internal/telemetry"
	"github.com/KotobaMedia/binary-blackhole/internal/tools"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the buffered + streaming HTTP API",
		Run: func(cmd *cobra.Command, args []string) {
			runServe()
		},
	}
}

// buildResources wires the process-wide clients from config.
func buildResources(ctx context.Context, cfg *config.Config) (*pg.DB, *store.DB, *chatter.Chatter, *tools.Registry, error) {
	db, err := pg.Connect(ctx, cfg.PostgresConnStr)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	st, err := store.New(ctx, store.Config{
		TableName:   cfg.TableName,
		EndpointURL: cfg.DynamoEndpointURL,
	})
	if err != nil {
		db.Close()
		return nil, nil, nil, nil, err
	}

	registry := tools.DefaultRegistry(&tools.Resources{PG: db, Store: st})
	client := llm.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.APIBase)
	ch := chatter.New(client, db, registry)
	return db, st, ch, registry, nil
}

func runServe() {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.Setup(ctx, "binary-blackhole", cfg.Telemetry.Endpoint)
		if err != nil {
			slog.Error("setup telemetry", "error", err)
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				slog.Warn("telemetry shutdown", "error", err)
			}
		}()
	}

	db, st, ch, registry, err := buildResources(ctx, cfg)
	if err != nil {
		slog.Error("build resources", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	server := httpapi.NewServer(cfg, st, db, ch, registry)
	httpServer := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: server.Handler(),
	}

	go func() {
		slog.Info("listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown", "error", err)
	}
}
