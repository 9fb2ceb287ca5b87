// Package store persists the order desk state in a local SQLite database.
//
// References into the product list (favorites, defaults, order lines) are
// stored by business key, never by position. Positions are recomputed from
// the stored product list on Load, so a state file survives any reordering
// of the catalog.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/Aman-CERP/orderdesk/internal/catalog"
	deskerrors "github.com/Aman-CERP/orderdesk/internal/errors"
	"github.com/Aman-CERP/orderdesk/internal/order"
)

// SchemaVersion is the version written to new databases.
const SchemaVersion = 1

// State is everything the order desk keeps between runs.
type State struct {
	Products  []catalog.Product
	Favorites []int
	Defaults  map[int]int
	Lines     []order.Line
}

// LoadReport counts stored references that no longer resolve.
type LoadReport struct {
	FavoritesDropped int
	DefaultsDropped  int
	LinesInvalidated int
}

// Store is a SQLite-backed state store guarded by a file lock.
type Store struct {
	db   *sql.DB
	path string
	lock *FileLock
}

// Open opens or creates the database at path. An empty path opens a
// private in-memory database without a lock.
//
// Returns ERR_205 when another process holds the database and ERR_206 when
// the file exists but is not a healthy SQLite database.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, deskerrors.New(deskerrors.ErrCodeStoreFailed, "failed to create data directory", err)
		}

		s.lock = NewFileLock(path)
		acquired, err := s.lock.TryLock()
		if err != nil {
			return nil, deskerrors.New(deskerrors.ErrCodeStoreFailed, "failed to lock store", err)
		}
		if !acquired {
			return nil, deskerrors.New(deskerrors.ErrCodeStoreLocked, "store is in use by another process", nil).
				WithDetail("lock", s.lock.Path()).
				WithSuggestion("Close the other orderdesk process and retry")
		}

		if err := validateIntegrity(path); err != nil {
			_ = s.lock.Unlock()
			return nil, deskerrors.New(deskerrors.ErrCodeStoreCorrupt, "store is corrupted", err).
				WithDetail("path", path).
				WithSuggestion("Move the file away and re-import the catalogs")
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		s.release()
		return nil, deskerrors.New(deskerrors.ErrCodeStoreFailed, "failed to open store", err)
	}

	// Single connection: an in-memory database exists per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	s.db = db

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -8192",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = s.Close()
			return nil, deskerrors.New(deskerrors.ErrCodeStoreFailed, "failed to set pragma", err).
				WithDetail("pragma", pragma)
		}
	}

	if err := s.initSchema(); err != nil {
		_ = s.Close()
		return nil, err
	}

	slog.Debug("store_opened", slog.String("path", dsn))
	return s, nil
}

// validateIntegrity runs a quick integrity check on an existing file.
// A missing file is fine; it will be created.
func validateIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}
	return nil
}

func (s *Store) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS products (
			position INTEGER PRIMARY KEY,
			supplier TEXT NOT NULL,
			supplier_product_number INTEGER NOT NULL,
			internal_product_number INTEGER NOT NULL,
			supplier_name TEXT NOT NULL,
			internal_name TEXT NOT NULL,
			container_unit TEXT NOT NULL,
			container_size REAL NOT NULL,
			container_price REAL NOT NULL,
			unit_price REAL NOT NULL,
			category INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_products_key ON products(supplier, supplier_product_number);

		CREATE TABLE IF NOT EXISTS favorites (
			ordinal INTEGER PRIMARY KEY,
			supplier TEXT NOT NULL,
			supplier_product_number INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS defaults (
			supplier TEXT NOT NULL,
			supplier_product_number INTEGER NOT NULL,
			quantity INTEGER NOT NULL,
			PRIMARY KEY (supplier, supplier_product_number)
		);

		CREATE TABLE IF NOT EXISTS order_lines (
			ordinal INTEGER PRIMARY KEY,
			supplier TEXT NOT NULL,
			supplier_product_number INTEGER NOT NULL,
			amount INTEGER NOT NULL,
			unit_price REAL NOT NULL,
			invalid INTEGER NOT NULL DEFAULT 0,
			snapshot TEXT
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return deskerrors.New(deskerrors.ErrCodeStoreFailed, "failed to create schema", err)
	}

	var version int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	switch {
	case err == sql.ErrNoRows:
		if _, err := s.db.Exec("INSERT INTO schema_version (version) VALUES (?)", SchemaVersion); err != nil {
			return deskerrors.New(deskerrors.ErrCodeStoreFailed, "failed to write schema version", err)
		}
	case err != nil:
		return deskerrors.New(deskerrors.ErrCodeStoreFailed, "failed to read schema version", err)
	case version > SchemaVersion:
		return deskerrors.New(deskerrors.ErrCodeStoreCorrupt,
			fmt.Sprintf("store schema version %d is newer than supported version %d", version, SchemaVersion), nil)
	}
	return nil
}

// Path returns the database path, or "" for an in-memory store.
func (s *Store) Path() string {
	return s.path
}

// DB exposes the connection for tables kept alongside the state, such as
// search telemetry. The store keeps ownership.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Save replaces the stored state with st in one transaction.
// References that point outside st.Products are not written.
func (s *Store) Save(ctx context.Context, st State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return deskerrors.New(deskerrors.ErrCodeStoreFailed, "failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"products", "favorites", "defaults", "order_lines"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return deskerrors.New(deskerrors.ErrCodeStoreFailed, "failed to clear "+table, err)
		}
	}

	if err := saveProducts(ctx, tx, st.Products); err != nil {
		return err
	}

	inRange := func(p int) bool { return p >= 0 && p < len(st.Products) }

	favStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO favorites (ordinal, supplier, supplier_product_number) VALUES (?, ?, ?)")
	if err != nil {
		return deskerrors.New(deskerrors.ErrCodeStoreFailed, "failed to prepare favorites", err)
	}
	defer favStmt.Close()
	for i, p := range st.Favorites {
		if !inRange(p) {
			continue
		}
		k := st.Products[p].Key()
		if _, err := favStmt.ExecContext(ctx, i, k.Supplier, k.SupplierProductNumber); err != nil {
			return deskerrors.New(deskerrors.ErrCodeStoreFailed, "failed to save favorite", err)
		}
	}

	defStmt, err := tx.PrepareContext(ctx,
		"INSERT OR REPLACE INTO defaults (supplier, supplier_product_number, quantity) VALUES (?, ?, ?)")
	if err != nil {
		return deskerrors.New(deskerrors.ErrCodeStoreFailed, "failed to prepare defaults", err)
	}
	defer defStmt.Close()
	for p, qty := range st.Defaults {
		if !inRange(p) {
			continue
		}
		k := st.Products[p].Key()
		if _, err := defStmt.ExecContext(ctx, k.Supplier, k.SupplierProductNumber, qty); err != nil {
			return deskerrors.New(deskerrors.ErrCodeStoreFailed, "failed to save default", err)
		}
	}

	if err := saveLines(ctx, tx, st.Lines, st.Products); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return deskerrors.New(deskerrors.ErrCodeStoreFailed, "failed to commit state", err)
	}

	slog.Debug("store_saved",
		slog.Int("products", len(st.Products)),
		slog.Int("favorites", len(st.Favorites)),
		slog.Int("defaults", len(st.Defaults)),
		slog.Int("lines", len(st.Lines)))
	return nil
}

func saveProducts(ctx context.Context, tx *sql.Tx, products []catalog.Product) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO products (position, supplier, supplier_product_number, internal_product_number,
			supplier_name, internal_name, container_unit, container_size, container_price, unit_price, category)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return deskerrors.New(deskerrors.ErrCodeStoreFailed, "failed to prepare products", err)
	}
	defer stmt.Close()

	for i, p := range products {
		if _, err := stmt.ExecContext(ctx, i, p.Supplier, p.SupplierProductNumber, p.InternalProductNumber,
			p.SupplierName, p.InternalName, p.ContainerUnit, p.ContainerSize, p.ContainerPrice,
			p.UnitPrice, int(p.Category)); err != nil {
			return deskerrors.New(deskerrors.ErrCodeStoreFailed, "failed to save product", err)
		}
	}
	return nil
}

// saveLines writes every line with the key and a snapshot of its product,
// so a line can still be invalidated with its product data after the
// product disappears. A valid line pointing outside products is stored as
// invalid.
func saveLines(ctx context.Context, tx *sql.Tx, lines []order.Line, products []catalog.Product) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO order_lines (ordinal, supplier, supplier_product_number, amount, unit_price, invalid, snapshot)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return deskerrors.New(deskerrors.ErrCodeStoreFailed, "failed to prepare order lines", err)
	}
	defer stmt.Close()

	for i, l := range lines {
		var p *catalog.Product
		invalid := l.Invalid
		switch {
		case l.Invalid:
			p = l.Product
		case l.Index >= 0 && l.Index < len(products):
			p = &products[l.Index]
		default:
			invalid = true
		}

		var key catalog.Key
		var snapshot sql.NullString
		if p != nil {
			key = p.Key()
			data, err := json.Marshal(p)
			if err != nil {
				return deskerrors.New(deskerrors.ErrCodeStoreFailed, "failed to encode product snapshot", err)
			}
			snapshot = sql.NullString{String: string(data), Valid: true}
		}

		if _, err := stmt.ExecContext(ctx, i, key.Supplier, key.SupplierProductNumber,
			l.Amount, l.UnitPrice, invalid, snapshot); err != nil {
			return deskerrors.New(deskerrors.ErrCodeStoreFailed, "failed to save order line", err)
		}
	}
	return nil
}

// Load reads the stored state and resolves every key against the stored
// product list. Favorites and defaults whose product is gone are dropped;
// order lines whose product is gone are invalidated with their snapshot.
func (s *Store) Load(ctx context.Context) (State, LoadReport, error) {
	var report LoadReport

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return State{}, report, deskerrors.New(deskerrors.ErrCodeStoreFailed, "failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	products, err := loadProducts(ctx, tx)
	if err != nil {
		return State{}, report, err
	}
	loc := catalog.NewLocator(products)

	st := State{Products: products, Defaults: make(map[int]int)}

	keys, err := loadKeys(ctx, tx, "SELECT supplier, supplier_product_number FROM favorites ORDER BY ordinal")
	if err != nil {
		return State{}, report, err
	}
	seen := make(map[int]bool, len(keys))
	for _, k := range keys {
		p, ok := loc.Find(k)
		if !ok {
			report.FavoritesDropped++
			continue
		}
		if !seen[p] {
			seen[p] = true
			st.Favorites = append(st.Favorites, p)
		}
	}

	rows, err := tx.QueryContext(ctx, "SELECT supplier, supplier_product_number, quantity FROM defaults")
	if err != nil {
		return State{}, report, deskerrors.New(deskerrors.ErrCodeStoreFailed, "failed to read defaults", err)
	}
	for rows.Next() {
		var k catalog.Key
		var qty int
		if err := rows.Scan(&k.Supplier, &k.SupplierProductNumber, &qty); err != nil {
			rows.Close()
			return State{}, report, deskerrors.New(deskerrors.ErrCodeStoreFailed, "failed to scan default", err)
		}
		p, ok := loc.Find(k)
		if !ok {
			report.DefaultsDropped++
			continue
		}
		st.Defaults[p] = qty
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return State{}, report, deskerrors.New(deskerrors.ErrCodeStoreFailed, "failed to read defaults", err)
	}
	rows.Close()

	st.Lines, report.LinesInvalidated, err = loadLines(ctx, tx, loc)
	if err != nil {
		return State{}, report, err
	}

	if report.FavoritesDropped+report.DefaultsDropped+report.LinesInvalidated > 0 {
		slog.Warn("store_references_dropped",
			slog.Int("favorites", report.FavoritesDropped),
			slog.Int("defaults", report.DefaultsDropped),
			slog.Int("lines_invalidated", report.LinesInvalidated))
	}
	return st, report, nil
}

func loadProducts(ctx context.Context, tx *sql.Tx) ([]catalog.Product, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT supplier, supplier_product_number, internal_product_number, supplier_name, internal_name,
			container_unit, container_size, container_price, unit_price, category
		FROM products ORDER BY position`)
	if err != nil {
		return nil, deskerrors.New(deskerrors.ErrCodeStoreFailed, "failed to read products", err)
	}
	defer rows.Close()

	var products []catalog.Product
	for rows.Next() {
		var p catalog.Product
		var category int
		if err := rows.Scan(&p.Supplier, &p.SupplierProductNumber, &p.InternalProductNumber,
			&p.SupplierName, &p.InternalName, &p.ContainerUnit, &p.ContainerSize,
			&p.ContainerPrice, &p.UnitPrice, &category); err != nil {
			return nil, deskerrors.New(deskerrors.ErrCodeStoreFailed, "failed to scan product", err)
		}
		p.Category = catalog.Category(category)
		if !p.Category.Valid() {
			p.Category = catalog.Unspecified
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, deskerrors.New(deskerrors.ErrCodeStoreFailed, "failed to read products", err)
	}
	return products, nil
}

func loadKeys(ctx context.Context, tx *sql.Tx, query string) ([]catalog.Key, error) {
	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, deskerrors.New(deskerrors.ErrCodeStoreFailed, "failed to read keys", err)
	}
	defer rows.Close()

	var keys []catalog.Key
	for rows.Next() {
		var k catalog.Key
		if err := rows.Scan(&k.Supplier, &k.SupplierProductNumber); err != nil {
			return nil, deskerrors.New(deskerrors.ErrCodeStoreFailed, "failed to scan key", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, deskerrors.New(deskerrors.ErrCodeStoreFailed, "failed to read keys", err)
	}
	return keys, nil
}

func loadLines(ctx context.Context, tx *sql.Tx, loc *catalog.Locator) ([]order.Line, int, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT supplier, supplier_product_number, amount, unit_price, invalid, snapshot
		FROM order_lines ORDER BY ordinal`)
	if err != nil {
		return nil, 0, deskerrors.New(deskerrors.ErrCodeStoreFailed, "failed to read order lines", err)
	}
	defer rows.Close()

	var lines []order.Line
	invalidated := 0
	for rows.Next() {
		var (
			k        catalog.Key
			l        order.Line
			invalid  bool
			snapshot sql.NullString
		)
		if err := rows.Scan(&k.Supplier, &k.SupplierProductNumber, &l.Amount, &l.UnitPrice,
			&invalid, &snapshot); err != nil {
			return nil, 0, deskerrors.New(deskerrors.ErrCodeStoreFailed, "failed to scan order line", err)
		}

		var snap *catalog.Product
		if snapshot.Valid {
			var p catalog.Product
			if err := json.Unmarshal([]byte(snapshot.String), &p); err != nil {
				return nil, 0, deskerrors.New(deskerrors.ErrCodeStoreCorrupt, "invalid product snapshot", err)
			}
			snap = &p
		}

		if invalid {
			lines = append(lines, l.Invalidate(snap))
			continue
		}
		p, ok := loc.Find(k)
		if !ok {
			invalidated++
			lines = append(lines, l.Invalidate(snap))
			continue
		}
		l.Index = p
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, deskerrors.New(deskerrors.ErrCodeStoreFailed, "failed to read order lines", err)
	}
	return lines, invalidated, nil
}

// Close checkpoints the WAL, closes the database and releases the lock.
func (s *Store) Close() error {
	var err error
	if s.db != nil {
		if s.path != "" {
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		}
		err = s.db.Close()
		s.db = nil
	}
	s.release()
	return err
}

func (s *Store) release() {
	if s.lock != nil {
		if err := s.lock.Unlock(); err != nil {
			slog.Warn("store_unlock_failed", slog.String("error", err.Error()))
		}
	}
}
