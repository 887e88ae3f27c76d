package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/valorlife/membercenter/internal/config"
	"github.com/valorlife/membercenter/internal/httpapi"
	"github.com/valorlife/membercenter/internal/jobs"
	"github.com/valorlife/membercenter/internal/logger"
	"github.com/valorlife/membercenter/internal/observability"
	"github.com/valorlife/membercenter/internal/store"
	"github.com/valorlife/membercenter/internal/tracing"
	"github.com/valorlife/membercenter/pkg/agent"
	"github.com/valorlife/membercenter/pkg/conversation"
	"github.com/valorlife/membercenter/pkg/crew"
	"github.com/valorlife/membercenter/pkg/knowledge"
	"github.com/valorlife/membercenter/pkg/membertools"
	"github.com/valorlife/membercenter/pkg/moderation"
	"github.com/valorlife/membercenter/pkg/toolexecutor"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the member center HTTP service",
	Long: `Run the member center service: the REST/WebSocket API, the agent crew,
the knowledge base index and the background maintenance jobs.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if errs := config.NewValidator().ValidateConfig(cfg); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintln(cmd.ErrOrStderr(), "config:", e)
		}
		return fmt.Errorf("invalid config: %d problem(s)", len(errs))
	}

	log, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   true,
		Redaction: cfg.Logging.Redaction,
		MaxSize:   cfg.Logging.MaxSize,
		MaxAge:    cfg.Logging.MaxAge,
		Compress:  cfg.Logging.Compress,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Close()
	zl := log.GetZerolog()

	if err := tracing.InitOpenTelemetry("membercenter"); err != nil {
		zl.Warn().Err(err).Msg("OpenTelemetry init failed, continuing without tracing")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracing.ShutdownOpenTelemetry(shutdownCtx)
	}()
	observability.EnsureRegistered()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := observability.InitAuditLogger(filepath.Join(cfg.DataDir, "audit.log")); err != nil {
		zl.Warn().Err(err).Msg("Audit log unavailable, events go to stderr")
	}
	defer observability.GetAuditLogger().Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		zl.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unreachable, conversations will not persist")
	}
	conversations := conversation.NewStore(rdb, conversation.Options{
		TTL:      time.Duration(cfg.Redis.TTLHours) * time.Hour,
		MaxTurns: cfg.Redis.HistoryTurns,
	})

	var embedder knowledge.EmbeddingProvider
	if key := openAIKey(cfg); key != "" {
		embedder = knowledge.NewOpenAIEmbedder(key, cfg.Knowledge.EmbeddingModel)
	} else {
		zl.Info().Msg("No OpenAI credentials, knowledge search is keyword-only")
	}

	km, err := knowledge.NewManager(knowledge.Config{
		DocsDir:           cfg.Knowledge.DocsDir,
		DBPath:            cfg.Knowledge.IndexPath,
		Logger:            zl,
		EmbeddingProvider: embedder,
	})
	if err != nil {
		return fmt.Errorf("open knowledge base: %w", err)
	}
	defer km.Close()

	go func() {
		if err := km.Sync(ctx); err != nil {
			zl.Warn().Err(err).Msg("Initial knowledge sync failed")
		}
	}()

	executor := toolexecutor.New()
	if err := membertools.RegisterMemberTools(executor, membertools.Deps{Store: st}); err != nil {
		return fmt.Errorf("register member tools: %w", err)
	}
	if err := knowledge.RegisterKnowledgeTools(executor, km); err != nil {
		return fmt.Errorf("register knowledge tools: %w", err)
	}

	profiles := make([]agent.AuthProfile, 0, len(cfg.AI.Profiles))
	for _, p := range cfg.AI.Profiles {
		profiles = append(profiles, agent.AuthProfile{
			ID:       p.ID,
			Provider: p.Provider,
			APIKey:   p.APIKey,
			Priority: p.Priority,
		})
	}
	runner, err := agent.NewRunner(agent.Config{
		ToolExecutor: executor,
		Logger:       zl,
		AuthProfiles: profiles,
	})
	if err != nil {
		return fmt.Errorf("init agent runner: %w", err)
	}

	manager, err := crew.NewManager(crew.Config{
		Runner:    runner,
		Executor:  executor,
		Knowledge: km,
		Logger:    zl,
		AgentConfig: agent.AgentConfig{
			Model:       cfg.Agents.ManagerModel,
			Temperature: cfg.Agents.Temperature,
			MaxTokens:   cfg.Agents.MaxTokens,
			MaxRetries:  3,
		},
		SpecialistModel:    cfg.Agents.SpecialistModel,
		ManagerMaxTurns:    cfg.Agents.ManagerTurns,
		SpecialistMaxTurns: cfg.Agents.SpecialistTurns,
		KnowledgeLimit:     cfg.Knowledge.TopK,
	})
	if err != nil {
		return fmt.Errorf("init agent crew: %w", err)
	}

	if cfg.Jobs.Enabled {
		scheduler, err := jobs.NewScheduler(jobs.Config{
			KnowledgeResync: cfg.Jobs.KnowledgeResync,
			EnrollmentSweep: cfg.Jobs.EnrollmentSweep,
			Logger:          zl,
		}, km, st)
		if err != nil {
			return fmt.Errorf("init background jobs: %w", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	guard, err := moderation.New(moderation.Config{
		Enabled:         cfg.Moderation.Enabled,
		BlockedKeywords: cfg.Moderation.BlockedKeywords,
		BlockedPatterns: cfg.Moderation.BlockedPatterns,
	})
	if err != nil {
		return fmt.Errorf("init moderation: %w", err)
	}

	handler := httpapi.NewRouter(httpapi.Deps{
		Store:          st,
		Chat:           manager,
		Conversations:  conversations,
		Moderation:     guard,
		Logger:         zl,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimitRPS:   cfg.Server.RateLimitRPS,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info().Str("addr", srv.Addr).Msg("Member center listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	zl.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	return nil
}

func openAIKey(cfg *config.Config) string {
	for _, p := range cfg.AI.Profiles {
		if p.Provider == "openai" {
			return p.APIKey
		}
	}
	return ""
}
