package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OFFIS-RIT/companynet/internal/config"
	"github.com/OFFIS-RIT/companynet/internal/queue"
	mid "github.com/OFFIS-RIT/companynet/internal/server/middleware"
	"github.com/OFFIS-RIT/companynet/internal/storage"
	"github.com/OFFIS-RIT/companynet/pkg/graph"
	"github.com/OFFIS-RIT/companynet/pkg/logger"
	"github.com/OFFIS-RIT/companynet/pkg/search/meili"
	pgstore "github.com/OFFIS-RIT/companynet/pkg/store/pgx"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// New returns an echo instance with validation, middleware and routes wired
// to app.
func New(app *mid.App) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = mid.NewValidator()

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1M"))

	RegisterRoutes(e)
	return e
}

func Init(cfg config.Config) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	searcher, err := meili.NewClient(meili.NewClientParams{
		BaseURL:       cfg.MeiliURL,
		APIKey:        cfg.MeiliKey,
		Timeout:       cfg.MeiliTimeout,
		MaxRetries:    cfg.MeiliMaxRetries,
		RatePerSecond: cfg.MeiliRatePerSecond,
	})
	if err != nil {
		logger.Fatal("Failed to create search client", "err", err)
	}
	graphClient, err := graph.NewGraphClient(graph.NewGraphClientParams{
		Searcher:     searcher,
		CompanyIndex: cfg.CompanyIndex,
		SeedLimit:    cfg.SeedLimit,
		MaxDepth:     cfg.MaxDepth,
	})
	if err != nil {
		logger.Fatal("Failed to create graph client", "err", err)
	}

	app := &mid.App{
		Graph:        graphClient,
		MasterAPIKey: cfg.MasterAPIKey,
	}
	if cfg.MasterAPIKey == "" {
		logger.Warn("MASTER_API_KEY is not set, all /api requests will be rejected")
	}

	if cfg.PersistsToDatabase() {
		if err := pgstore.Migrate(cfg.DatabaseURL); err != nil {
			logger.Fatal("Failed to migrate database", "err", err)
		}
		conn, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("Failed to connect to database", "err", err)
		}
		defer conn.Close()
		app.Store = pgstore.NewNetworkDBStorageWithConnection(conn, pgstore.WithChunkSize(cfg.DBChunkSize))
	}

	if cfg.PersistsToS3() {
		s3, err := storage.NewS3Client(ctx)
		if err != nil {
			logger.Fatal("Failed to create S3 client", "err", err)
		}
		app.S3 = s3
		app.Bucket = cfg.S3Bucket
	}

	que := queue.Init()
	defer que.Close()
	ch, err := que.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()
	if err := queue.SetupQueues(ch, queue.Queues); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}
	app.Queue = ch

	e := New(app)

	go func() {
		logger.Info("Starting server", "port", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}
