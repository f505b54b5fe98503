// Package cli implements the interactive PaperVault agent: a small REPL over
// the durable queue, connectivity monitor, and sync engine.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/papervault/internal/client/config"
	"github.com/dmitrijs2005/papervault/internal/client/connectivity"
	"github.com/dmitrijs2005/papervault/internal/client/models"
	"github.com/dmitrijs2005/papervault/internal/client/queue"
	"github.com/dmitrijs2005/papervault/internal/client/sync"
	"github.com/dmitrijs2005/papervault/internal/client/transport"
	"github.com/dmitrijs2005/papervault/internal/logging"

	_ "modernc.org/sqlite"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	repo    queue.Repository
	client  *transport.Client
	monitor *connectivity.Monitor
	engine  *sync.Engine
	reader  *bufio.Reader
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger()

	db, err := queue.InitDatabase(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error initializing queue database: %w", err)
	}

	token := c.Token
	if token == "" {
		token, err = promptToken()
		if err != nil {
			return nil, err
		}
	}

	repo := queue.NewSQLiteRepository(db)
	client := transport.NewClient(c.ServerEndpointAddr, token, c.UploadTimeout)
	monitor := connectivity.NewMonitor(client, c.OnlineCheckInterval, logger)
	engine := sync.NewEngine(repo, client, c.RetentionWindow, logger)

	return &App{
		config:  c,
		logger:  logger,
		repo:    repo,
		client:  client,
		monitor: monitor,
		engine:  engine,
		reader:  bufio.NewReader(os.Stdin),
	}, nil
}

// Run starts the connectivity watcher and the edge-driven drain loop, drains
// leftovers from a previous session, then enters the command loop.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	edges := a.monitor.Subscribe()
	defer a.monitor.Unsubscribe(edges)

	go a.monitor.Run(ctx)
	go a.engine.Run(ctx, edges)

	// startup drain: pending/failed items left over from a previous session
	if a.monitor.CheckNow(ctx) {
		if err := a.engine.Drain(ctx); err != nil {
			a.logger.Error(ctx, "startup drain failed", "error", err)
		}
	}

	subID := a.engine.Subscribe(func(doc *models.Document) {
		fmt.Printf("synced: %s -> %s [%s]\n", doc.OriginalName, doc.ID, doc.Category)
	})
	defer a.engine.Unsubscribe(subID)

	return a.commandLoop(ctx)
}
