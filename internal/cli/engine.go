package cli

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/jackc/pgx/v4/stdlib"

	"github.com/tansive/tablelake/internal/catalog"
	"github.com/tansive/tablelake/internal/catalog/memcatalog"
	"github.com/tansive/tablelake/internal/catalog/pgcatalog"
	"github.com/tansive/tablelake/internal/config"
	"github.com/tansive/tablelake/internal/engine"
	"github.com/tansive/tablelake/internal/storage/localstore"
)

// buildEngine loads configFile/profileDir through internal/config and
// wires a full engine.Engine from the result: a pgcatalog.Catalog when
// "catalog.type" is "managed" (catalog.uri is the Postgres DSN). "rest"
// has no client implemented here — a REST catalog server is itself a
// transport, out of scope per §1 — so it and any other value fall back
// to the in-process memcatalog.Catalog for local/dev use. Either way an
// internal/storage/localstore store is rooted at "s3.warehouse_path",
// since this CLI is a single-process operator tool rather than a fleet
// of stateless workers talking to a shared object store (§5).
func buildEngine(configFile, profileDir string) (eng *engine.Engine, closeFn func() error, err error) {
	if err := config.LoadConfig(configFile, profileDir); err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	cfg := config.Config()

	var cat catalog.Adapter
	closeFn = func() error { return nil }

	switch cfg.Catalog.Type {
	case "managed":
		db, err := sql.Open("pgx", cfg.Catalog.URI)
		if err != nil {
			return nil, nil, fmt.Errorf("opening catalog database: %w", err)
		}
		cat = pgcatalog.New(db)
		closeFn = db.Close
	default:
		cat = memcatalog.New()
	}

	storePath := cfg.S3.WarehousePath
	if storePath == "" {
		storePath = "tablelake-warehouse"
	}
	if err := os.MkdirAll(storePath, 0o755); err != nil {
		_ = closeFn()
		return nil, nil, fmt.Errorf("creating warehouse directory %s: %w", storePath, err)
	}
	store, err := localstore.Open(filepath.Join(storePath, "data.db"))
	if err != nil {
		_ = closeFn()
		return nil, nil, fmt.Errorf("opening object store at %s: %w", storePath, err)
	}
	prevClose := closeFn
	closeFn = func() error {
		storeErr := store.Close()
		if catErr := prevClose(); catErr != nil {
			return catErr
		}
		return storeErr
	}

	eng = engine.New(cat, store, nil)
	eng.WriterConfig = cfg.ToWriterConfig()
	eng.CompactorConfig = cfg.ToCompactorConfig()
	eng.Cache.TTL = cfg.CacheTTL(eng.Cache.TTL)
	return eng, closeFn, nil
}
