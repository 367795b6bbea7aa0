package backend

import (
	"context"
	"errors"
	"fmt"
	"os"

	"kakeibo/internal/amqp"
	"kakeibo/internal/cache"
	"kakeibo/internal/config"
	"kakeibo/internal/log"
	"kakeibo/internal/services"
	gsheet "kakeibo/internal/sheets/google"
	"kakeibo/internal/sheets/memory"
	"kakeibo/internal/storage"
)

type Factory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &Factory{logger: logger.WithComponent(log.ComponentBackend)}
}

// Open builds the configured store wrapped in the snapshot cache.
func (f *Factory) Open(ctx context.Context, cfg *config.Config) (*Backend, error) {
	t := BackendType(cfg.DataBackend)
	var (
		b   *Backend
		err error
	)
	switch t {
	case MemoryBackend:
		b, err = f.openMemory(cfg)
	case SQLiteBackend:
		b, err = f.openSQLite(cfg)
	case SheetsBackend:
		b, err = f.openSheets(ctx, cfg)
	default:
		return nil, fmt.Errorf("invalid backend type: %s", cfg.DataBackend)
	}
	if err != nil {
		return nil, err
	}

	if cfg.CacheTTL > 0 {
		cached := cache.NewStore(b.Store, cfg.CacheTTL, f.logger)
		manager := cache.NewManager(f.logger)
		manager.Register(cached)
		manager.StartCleanup(cfg.CacheTTL * 2)
		b.Store = cached
		b.CacheStats = cached.Stats
		inner := b.Cleanup
		b.Cleanup = func(ctx context.Context) error {
			manager.Stop()
			if inner != nil {
				return inner(ctx)
			}
			return nil
		}
	}
	if b.Ready == nil {
		store, sheet := b.Store, cfg.LedgerSheet
		b.Ready = func(ctx context.Context) error {
			_, err := store.ReadAll(ctx, sheet)
			return err
		}
	}
	f.logger.InfoContext(ctx, "Backend ready", "backend", t.String(), "cache_ttl", cfg.CacheTTL)
	return b, nil
}

func (f *Factory) openMemory(cfg *config.Config) (*Backend, error) {
	store := memory.New()
	if cfg.SeedDir != "" {
		var err error
		if store, err = memory.NewFromFiles(cfg.SeedDir); err != nil {
			return nil, fmt.Errorf("seed memory backend: %w", err)
		}
	}
	f.logger.Info("Initialized memory backend", "seed_dir", cfg.SeedDir)
	return &Backend{Type: MemoryBackend, Store: store}, nil
}

func (f *Factory) openSQLite(cfg *config.Config) (*Backend, error) {
	replicate := cfg.AMQPURL != ""
	opts := []storage.Option{storage.WithLogger(f.logger)}
	if replicate {
		opts = append(opts, storage.WithOutbox())
	}
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	b := &Backend{
		Type:    SQLiteBackend,
		Store:   repo,
		Ready:   repo.Ping,
		Cleanup: func(context.Context) error { return repo.Close() },
	}
	f.logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath, "replication", replicate)
	if !replicate {
		return b, nil
	}

	// the broker may be down at startup; publishing reconnects
	client := amqp.New(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, f.logger)
	procCfg := services.DefaultSyncProcessorConfig()
	procCfg.BatchSize = cfg.SyncBatchSize
	procCfg.PollInterval = cfg.SyncInterval
	proc := services.NewSyncProcessor(repo, client, procCfg, f.logger)

	b.Start = proc.Start
	b.Cleanup = func(ctx context.Context) error {
		return errors.Join(proc.Stop(ctx), client.Close(), repo.Close())
	}
	return b, nil
}

func (f *Factory) openSheets(ctx context.Context, cfg *config.Config) (*Backend, error) {
	client, err := OpenGoogle(ctx, cfg, f.logger)
	if err != nil {
		return nil, err
	}
	f.logger.Info("Initialized Google Sheets backend", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return &Backend{Type: SheetsBackend, Store: client}, nil
}

// OpenGoogle builds the Sheets client from the configured credentials.
func OpenGoogle(ctx context.Context, cfg *config.Config, logger *log.Logger) (*gsheet.Client, error) {
	creds, err := GoogleCredentials(cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	return gsheet.New(svc, gsheet.Options{
		SpreadsheetID:     cfg.GoogleSpreadsheetID,
		MaxRetries:        cfg.StoreMaxRetries,
		RequestsPerMinute: cfg.StoreRequestsPerMinute,
		Logger:            logger,
	})
}

// GoogleCredentials reads each credential from its inline JSON variable,
// falling back to the file variable.
func GoogleCredentials(cfg *config.Config) (gsheet.Credentials, error) {
	var (
		creds gsheet.Credentials
		err   error
	)
	if creds.ServiceAccountJSON, err = inlineOrFile(cfg.GoogleServiceAccountJSON, cfg.GoogleServiceAccountFile); err != nil {
		return creds, fmt.Errorf("service account: %w", err)
	}
	if creds.OAuthClientJSON, err = inlineOrFile(cfg.GoogleOAuthClientJSON, cfg.GoogleOAuthClientFile); err != nil {
		return creds, fmt.Errorf("oauth client: %w", err)
	}
	if creds.OAuthTokenJSON, err = inlineOrFile(cfg.GoogleOAuthTokenJSON, cfg.GoogleOAuthTokenFile); err != nil {
		return creds, fmt.Errorf("oauth token: %w", err)
	}
	if creds.Empty() {
		return creds, errors.New("missing Google credentials")
	}
	return creds, nil
}

func inlineOrFile(inline, path string) ([]byte, error) {
	if inline != "" {
		return []byte(inline), nil
	}
	if path == "" {
		return nil, nil
	}
	return os.ReadFile(path)
}
