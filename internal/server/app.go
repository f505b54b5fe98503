// Package server initializes and runs the ingestion server. It wires the
// database, object storage and external enrichment services, handles graceful
// shutdown, and starts the HTTP API.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/papervault/internal/logging"
	"github.com/dmitrijs2005/papervault/internal/server/access"
	"github.com/dmitrijs2005/papervault/internal/server/classify"
	"github.com/dmitrijs2005/papervault/internal/server/config"
	"github.com/dmitrijs2005/papervault/internal/server/db"
	"github.com/dmitrijs2005/papervault/internal/server/documents"
	"github.com/dmitrijs2005/papervault/internal/server/extract"
	serverhttp "github.com/dmitrijs2005/papervault/internal/server/http"
	repo "github.com/dmitrijs2005/papervault/internal/server/repositories/documents"
	"github.com/dmitrijs2005/papervault/internal/server/storage"
)

type App struct {
	config *config.Config
	logger logging.Logger
	server *serverhttp.Server
	closer func() error
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewJSONLogger()

	conn, err := db.InitDatabase(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	if err := db.RunMigrations(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	store, err := storage.NewS3Store(ctx, cfg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("object storage init error: %w", err)
	}

	broker := access.NewBroker(store, cfg.OwnerNamespace, cfg.SignedRefExpiry)

	var extractor extract.Extractor = extract.NoopExtractor{}
	if cfg.OCREndpoint != "" {
		extractor = extract.NewHTTPExtractor(cfg.OCREndpoint, cfg.ClassifierTimeout)
	}

	var classifier classify.Classifier = classify.NoopClassifier{}
	if cfg.ClassifierEndpoint != "" {
		classifier = classify.NewHTTPClassifier(cfg.ClassifierEndpoint, cfg.ClassifierTimeout)
	}

	service := documents.NewService(repo.NewPostgresRepository(conn), store, broker,
		extractor, classifier, cfg, logger)

	return &App{
		config: cfg,
		logger: logger,
		server: serverhttp.NewServer(cfg, service, logger),
		closer: conn.Close,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting server", "addr", app.config.EndpointAddr)

	app.initSignalHandler(cancelFunc)

	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, "http server stopped", "error", err)
	}

	if err := app.closer(); err != nil {
		app.logger.Error(ctx, "error closing database", "error", err)
	}
}
