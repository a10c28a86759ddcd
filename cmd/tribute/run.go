package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/tribute/internal/ai"
	"github.com/xxxsen/tribute/internal/config"
	"github.com/xxxsen/tribute/internal/db"
	"github.com/xxxsen/tribute/internal/filestore"
	"github.com/xxxsen/tribute/internal/handler"
	"github.com/xxxsen/tribute/internal/job"
	"github.com/xxxsen/tribute/internal/middleware"
	"github.com/xxxsen/tribute/internal/repo"
	"github.com/xxxsen/tribute/internal/schedule"
	"github.com/xxxsen/tribute/internal/service"
)

func newRunCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "run tribute server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag("config", configPath); err != nil {
				return err
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			conn, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer conn.Close()
			if err := db.ApplyMigrations(conn); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, conn)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	return cmd
}

func runServer(cfg *config.Config, conn *sql.DB) error {
	log := logutil.GetLogger(context.Background())
	log.Info("starting server",
		zap.Int("port", cfg.Port),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("ai_model", cfg.AI.Model),
		zap.String("file_store", cfg.FileStore.Type),
	)

	docRepo := repo.NewDocumentRepo(conn)
	msgRepo := repo.NewMessageRepo(conn)
	entryRepo := repo.NewEntryRepo(conn)
	suggestionRepo := repo.NewSuggestionRepo(conn)

	chat, err := ai.BuildChatModel(cfg.AI)
	if err != nil {
		return fmt.Errorf("init ai provider: %w", err)
	}
	gateway := ai.NewManager(chat, ai.ManagerConfig{
		Temperature:   cfg.AI.Temperature,
		Timeout:       cfg.AI.Timeout,
		MaxInputChars: cfg.AI.MaxInputChars,
	})
	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	artifactService := service.NewArtifactService(docRepo, msgRepo, suggestionRepo, entryRepo, gateway, store, service.ArtifactConfig{
		MaxInputChars: cfg.AI.MaxInputChars,
		CacheSize:     cfg.AI.CacheSize,
		CacheTTL:      time.Duration(cfg.AI.CacheTTLMinutes) * time.Minute,
	})
	entryService := service.NewEntryService(entryRepo)

	deps := handler.RouterDeps{
		Artifacts: handler.NewArtifactHandler(artifactService),
		Entries:   handler.NewEntryHandler(entryService),
		Shares:    handler.NewShareHandler(artifactService),
		Files:     handler.NewFileHandler(artifactService),
		JWTSecret: []byte(cfg.JWTSecret),
		RateLimit: time.Duration(cfg.RateLimitSeconds) * time.Second,
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	engine, err := webapi.NewEngine(
		"/api/v1",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths(handler.StreamingPaths)),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	cleanup := job.NewShareCleanupJob(docRepo)
	if err := scheduler.AddJob(cleanup, cfg.Jobs.ShareCleanupSpec); err != nil {
		return fmt.Errorf("schedule %s: %w", cleanup.Name(), err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()
	if err := scheduler.RunNow(cleanup.Name()); err != nil {
		log.Warn("initial share cleanup failed", zap.Error(err))
	}

	log.Info("http server listening", zap.String("addr", addr))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("server stopping...")
	return nil
}
