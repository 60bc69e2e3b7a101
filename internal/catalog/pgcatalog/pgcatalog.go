// Package pgcatalog is a Postgres-backed catalog.Adapter: one concrete
// rendering of the "REST or cloud-managed" catalog variants named in
// §4.1, grounded on the teacher's own metadata-store access patterns
// (database/sql over pgx, pgconn error inspection, context-scoped
// tenant checks).
//
// Schema:
//
//	CREATE TABLE tablelake_tables (
//	    tenant_id   varchar(64)  NOT NULL,
//	    namespace   varchar(128) NOT NULL,
//	    name        varchar(128) NOT NULL,
//	    schema      jsonb        NOT NULL,
//	    properties  jsonb        NOT NULL DEFAULT '{}',
//	    current_snapshot_id varchar(64),
//	    created_at  timestamptz  NOT NULL DEFAULT now(),
//	    PRIMARY KEY (tenant_id, namespace, name)
//	);
//
//	CREATE TABLE tablelake_snapshots (
//	    tenant_id   varchar(64)  NOT NULL,
//	    namespace   varchar(128) NOT NULL,
//	    name        varchar(128) NOT NULL,
//	    snapshot_id varchar(64)  NOT NULL,
//	    commit_time timestamptz  NOT NULL,
//	    operation   varchar(32)  NOT NULL,
//	    files       jsonb        NOT NULL,
//	    PRIMARY KEY (tenant_id, namespace, name, snapshot_id),
//	    FOREIGN KEY (tenant_id, namespace, name)
//	        REFERENCES tablelake_tables (tenant_id, namespace, name) ON DELETE CASCADE
//	);
package pgcatalog

import (
	"context"
	"database/sql"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/jackc/pgconn"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/tansive/tablelake/internal/catalog"
	"github.com/tansive/tablelake/internal/schema"
	"github.com/tansive/tablelake/internal/types"
)

var jsonc = jsoniter.ConfigCompatibleWithStandardLibrary

// Catalog is a Postgres-backed catalog.Adapter. db is expected to be a
// *sql.DB opened against the jackc/pgx/v4 stdlib driver.
type Catalog struct {
	db *sql.DB
}

// New wraps an already-opened database handle.
func New(db *sql.DB) *Catalog {
	return &Catalog{db: db}
}

func (c *Catalog) Resolve(ctx context.Context, id types.TableIdentity) (*catalog.TableMetadata, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT schema, properties, current_snapshot_id, created_at
		FROM tablelake_tables
		WHERE tenant_id = $1 AND namespace = $2 AND name = $3`,
		id.TenantID, id.Namespace, id.Name)

	var (
		schemaJSON, propsJSON []byte
		currentSnapshotID     sql.NullString
		createdAt             time.Time
	)
	if err := row.Scan(&schemaJSON, &propsJSON, &currentSnapshotID, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, catalog.ErrNotFound.New("table " + id.String() + " not found")
		}
		log.Ctx(ctx).Error().Err(err).Str("table", id.String()).Msg("failed to resolve table metadata")
		return nil, catalog.ErrCatalog.New("failed to resolve table metadata").Err(err)
	}

	phys, err := unmarshalSchema(schemaJSON)
	if err != nil {
		return nil, catalog.ErrCatalog.New("stored schema is corrupt").Err(err)
	}
	props, err := unmarshalProperties(propsJSON)
	if err != nil {
		return nil, catalog.ErrCatalog.New("stored properties are corrupt").Err(err)
	}

	history, err := c.loadSnapshots(ctx, id)
	if err != nil {
		return nil, err
	}

	m := &catalog.TableMetadata{
		Identity:       id,
		PhysicalSchema: phys,
		Properties:     props,
		History:        history,
		CreatedAt:      createdAt,
	}
	if currentSnapshotID.Valid {
		for _, s := range history {
			if s.ID == currentSnapshotID.String {
				m.Current = s
				break
			}
		}
	}
	return m, nil
}

func (c *Catalog) CreateTable(ctx context.Context, id types.TableIdentity, phys *schema.PhysicalSchema, properties map[string]string, ifNotExists bool) (*catalog.TableMetadata, error) {
	schemaJSON, err := marshalSchema(phys)
	if err != nil {
		return nil, catalog.ErrInvalidInput.New("failed to serialize schema").Err(err)
	}
	propsJSON, err := jsonc.Marshal(properties)
	if err != nil {
		return nil, catalog.ErrInvalidInput.New("failed to serialize properties").Err(err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO tablelake_tables (tenant_id, namespace, name, schema, properties)
		VALUES ($1, $2, $3, $4, $5)`,
		id.TenantID, id.Namespace, id.Name, schemaJSON, propsJSON)
	if err != nil {
		if pgErr, ok := errors.Cause(err).(*pgconn.PgError); ok && pgErr.Code == "23505" {
			if ifNotExists {
				return c.Resolve(ctx, id)
			}
			return nil, catalog.ErrAlreadyExists.New("table " + id.String() + " already exists")
		}
		log.Ctx(ctx).Error().Err(err).Str("table", id.String()).Msg("failed to create table")
		return nil, catalog.ErrCatalog.New("failed to create table").Err(err)
	}

	return c.Resolve(ctx, id)
}

func (c *Catalog) ListTables(ctx context.Context, tenant types.TenantID, namespace types.Namespace) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT name FROM tablelake_tables WHERE tenant_id = $1 AND namespace = $2`,
		tenant, namespace)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to list tables")
		return nil, catalog.ErrCatalog.New("failed to list tables").Err(err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, catalog.ErrCatalog.New("failed to scan table name").Err(err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Commit performs the atomic pointer swap (§4.1, §5): inside one
// transaction it inserts the new snapshot row, then updates the
// current_snapshot_id column only if it still equals
// expectedCurrentSnapshotID (a conditional UPDATE acting as the
// compare-and-swap).
func (c *Catalog) Commit(ctx context.Context, id types.TableIdentity, expectedCurrentSnapshotID string, newSnapshot *catalog.Snapshot) (*catalog.TableMetadata, error) {
	if newSnapshot.CommitTime.IsZero() {
		newSnapshot.CommitTime = time.Now().UTC()
	}
	filesJSON, err := jsonc.Marshal(newSnapshot.Files)
	if err != nil {
		return nil, catalog.ErrInvalidInput.New("failed to serialize snapshot files").Err(err)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, catalog.ErrCatalog.New("failed to begin commit transaction").Err(err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO tablelake_snapshots (tenant_id, namespace, name, snapshot_id, commit_time, operation, files)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id.TenantID, id.Namespace, id.Name, newSnapshot.ID, newSnapshot.CommitTime, newSnapshot.Operation, filesJSON); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("table", id.String()).Msg("failed to insert snapshot")
		return nil, catalog.ErrCatalog.New("failed to write snapshot").Err(err)
	}

	var currentMatch sql.NullString
	if expectedCurrentSnapshotID != "" {
		currentMatch = sql.NullString{String: expectedCurrentSnapshotID, Valid: true}
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE tablelake_tables
		SET current_snapshot_id = $1
		WHERE tenant_id = $2 AND namespace = $3 AND name = $4
		  AND current_snapshot_id IS NOT DISTINCT FROM $5`,
		newSnapshot.ID, id.TenantID, id.Namespace, id.Name, currentMatch)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("table", id.String()).Msg("failed to swap current snapshot")
		return nil, catalog.ErrCatalog.New("failed to swap current snapshot").Err(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, catalog.ErrCatalog.New("failed to confirm snapshot swap").Err(err)
	}
	if affected == 0 {
		// Someone else's commit won the race; setting err makes the
		// deferred Rollback discard the snapshot row inserted above.
		err = catalog.ErrConflict.New("table " + id.String() + " was committed concurrently")
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, catalog.ErrCatalog.New("failed to commit transaction").Err(err)
	}

	return c.Resolve(ctx, id)
}

func (c *Catalog) ExpireSnapshots(ctx context.Context, id types.TableIdentity, olderThan time.Time) (int, error) {
	res, err := c.db.ExecContext(ctx, `
		DELETE FROM tablelake_snapshots
		WHERE tenant_id = $1 AND namespace = $2 AND name = $3
		  AND commit_time < $4
		  AND snapshot_id IS DISTINCT FROM (
		      SELECT current_snapshot_id FROM tablelake_tables
		      WHERE tenant_id = $1 AND namespace = $2 AND name = $3
		  )`,
		id.TenantID, id.Namespace, id.Name, olderThan)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("table", id.String()).Msg("failed to expire snapshots")
		return 0, catalog.ErrCatalog.New("failed to expire snapshots").Err(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, catalog.ErrCatalog.New("failed to confirm expired snapshot count").Err(err)
	}
	return int(affected), nil
}

func (c *Catalog) loadSnapshots(ctx context.Context, id types.TableIdentity) ([]*catalog.Snapshot, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT snapshot_id, commit_time, operation, files
		FROM tablelake_snapshots
		WHERE tenant_id = $1 AND namespace = $2 AND name = $3
		ORDER BY commit_time ASC`,
		id.TenantID, id.Namespace, id.Name)
	if err != nil {
		return nil, catalog.ErrCatalog.New("failed to load snapshot history").Err(err)
	}
	defer rows.Close()

	var history []*catalog.Snapshot
	for rows.Next() {
		var (
			snapshotID, operation string
			commitTime            time.Time
			filesJSON             []byte
		)
		if err := rows.Scan(&snapshotID, &commitTime, &operation, &filesJSON); err != nil {
			return nil, catalog.ErrCatalog.New("failed to scan snapshot row").Err(err)
		}
		snap := &catalog.Snapshot{ID: snapshotID, CommitTime: commitTime, Operation: operation}
		if err := jsonc.Unmarshal(filesJSON, &snap.Files); err != nil {
			return nil, catalog.ErrCatalog.New("stored snapshot files are corrupt").Err(err)
		}
		history = append(history, snap)
	}
	return history, rows.Err()
}
