package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"kakeibo/internal/cache"
	"kakeibo/internal/config"
	"kakeibo/internal/storage"
)

func baseConfig() *config.Config {
	return &config.Config{
		LedgerSheet:   "Ledger",
		ShoppingSheet: "Shopping",
		SyncBatchSize: 10,
		SyncInterval:  time.Second,
	}
}

func TestOpenMemoryWithSeedAndCache(t *testing.T) {
	dir := t.TempDir()
	seed := "date,category,amount\n2025-03-01,食費,100\n"
	if err := os.WriteFile(filepath.Join(dir, "Ledger.csv"), []byte(seed), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := baseConfig()
	cfg.DataBackend = "memory"
	cfg.SeedDir = dir
	cfg.CacheTTL = time.Minute

	ctx := context.Background()
	b, err := NewFactory(nil).Open(ctx, cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer b.Cleanup(ctx)

	if _, ok := b.Store.(*cache.Store); !ok {
		t.Fatalf("store should be cached, got %T", b.Store)
	}
	if err := b.Ready(ctx); err != nil {
		t.Fatalf("ready: %v", err)
	}
	snap, _ := b.Store.ReadAll(ctx, "Ledger")
	if len(snap.Rows) != 1 || snap.Rows[0][2] != "100" {
		t.Fatalf("seed not loaded: %+v", snap)
	}
}

func TestOpenSQLiteWithoutReplication(t *testing.T) {
	cfg := baseConfig()
	cfg.DataBackend = "sqlite"
	cfg.SQLiteDBPath = filepath.Join(t.TempDir(), "kakeibo.db")

	ctx := context.Background()
	b, err := NewFactory(nil).Open(ctx, cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if b.Start != nil {
		t.Fatal("no AMQP URL means no background replication")
	}
	if _, ok := b.Store.(*storage.SQLiteRepository); !ok {
		t.Fatalf("uncached store expected, got %T", b.Store)
	}
	if err := b.Ready(ctx); err != nil {
		t.Fatalf("ready: %v", err)
	}
	if err := b.Cleanup(ctx); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	cfg := baseConfig()
	cfg.DataBackend = "postgres"
	if _, err := NewFactory(nil).Open(context.Background(), cfg); err == nil {
		t.Fatal("expected error")
	}
	if BackendType("postgres").IsValid() || !SQLiteBackend.IsValid() {
		t.Fatal("IsValid disagrees with the known backends")
	}
}

func TestGoogleCredentials(t *testing.T) {
	dir := t.TempDir()
	tokenPath := filepath.Join(dir, "token.json")
	if err := os.WriteFile(tokenPath, []byte(`{"access_token":"x"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := baseConfig()
	cfg.GoogleOAuthClientJSON = `{"installed":{}}`
	cfg.GoogleOAuthTokenFile = tokenPath

	creds, err := GoogleCredentials(cfg)
	if err != nil {
		t.Fatalf("credentials: %v", err)
	}
	if string(creds.OAuthTokenJSON) != `{"access_token":"x"}` || len(creds.ServiceAccountJSON) != 0 {
		t.Fatalf("unexpected creds %+v", creds)
	}

	if _, err := GoogleCredentials(baseConfig()); err == nil {
		t.Fatal("expected missing credentials error")
	}
	cfg = baseConfig()
	cfg.GoogleServiceAccountFile = filepath.Join(dir, "missing.json")
	if _, err := GoogleCredentials(cfg); err == nil {
		t.Fatal("expected unreadable file error")
	}
}
