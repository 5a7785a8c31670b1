package source

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/JonMunkholm/catalog/internal/catalog"
	"github.com/JonMunkholm/catalog/internal/ingest"
	_ "modernc.org/sqlite"
)

const snapshotSchema = `
CREATE TABLE products (
	position    INTEGER PRIMARY KEY,
	id          TEXT NOT NULL,
	name        TEXT NOT NULL,
	category    TEXT NOT NULL,
	subcategory TEXT NOT NULL,
	price       TEXT NOT NULL,
	data        TEXT NOT NULL
);
CREATE TABLE snapshot_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// ErrNoSnapshot is returned when the snapshot file does not exist.
var ErrNoSnapshot = errors.New("snapshot not found")

func openSQLite(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	return db, nil
}

// WriteSnapshot stores products at path, replacing any earlier snapshot.
// The file is written to a fresh temporary file next to path and renamed
// into place, so readers never see a partial snapshot and concurrent
// writers never share a file.
func WriteSnapshot(ctx context.Context, path string, products []catalog.Product) error {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	tmp := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write snapshot: %w", err)
	}

	if err := writeSnapshotFile(ctx, tmp, products); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

func writeSnapshotFile(ctx context.Context, path string, products []catalog.Product) error {
	db, err := openSQLite(path)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, snapshotSchema); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO products (position, id, name, category, subcategory, price, data) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, p := range products {
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encode product %q: %w", p.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, i, p.ID, p.Name, p.Category, p.Subcategory, p.Price.String(), string(data)); err != nil {
			return fmt.Errorf("insert product %q: %w", p.ID, err)
		}
	}

	meta := map[string]string{
		"written_at":    time.Now().UTC().Format(time.RFC3339),
		"product_count": fmt.Sprint(len(products)),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, `INSERT INTO snapshot_meta (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("insert meta %q: %w", k, err)
		}
	}

	return tx.Commit()
}

// SQLiteSnapshot loads a catalog written by WriteSnapshot.
type SQLiteSnapshot struct {
	Path     string
	Pipeline *ingest.Pipeline
}

// NewSQLiteSnapshot returns a source reading the snapshot at path.
func NewSQLiteSnapshot(path string, pl *ingest.Pipeline) *SQLiteSnapshot {
	return &SQLiteSnapshot{Path: path, Pipeline: pl}
}

func (s *SQLiteSnapshot) Name() string {
	return "sqlite:" + s.Path
}

func (s *SQLiteSnapshot) Load(ctx context.Context) (ingest.Result, error) {
	if _, err := os.Stat(s.Path); err != nil {
		if os.IsNotExist(err) {
			return ingest.Result{}, fmt.Errorf("%w: %s", ErrNoSnapshot, s.Path)
		}
		return ingest.Result{}, fmt.Errorf("read snapshot: %w", err)
	}

	db, err := openSQLite(s.Path)
	if err != nil {
		return ingest.Result{}, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT data FROM products ORDER BY position`)
	if err != nil {
		return ingest.Result{}, fmt.Errorf("read snapshot: %w", err)
	}
	defer rows.Close()

	var products []catalog.Product
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return ingest.Result{}, fmt.Errorf("read snapshot: %w", err)
		}
		var p catalog.Product
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return ingest.Result{}, fmt.Errorf("read snapshot: decode product %d: %w", len(products)+1, err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return ingest.Result{}, fmt.Errorf("read snapshot: %w", err)
	}

	res := s.Pipeline.Admit(products)
	res.Report.Source = s.Name()
	return res, nil
}
