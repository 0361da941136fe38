package out

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"plugdir/internal/modules/discovery/domain"
	discoveryout "plugdir/internal/modules/discovery/port/out"

	_ "modernc.org/sqlite"
)

// SQLiteScanProjector persists completed scans so callers can list
// previously discovered plugins without rescanning the folder.
type SQLiteScanProjector struct {
	db *sql.DB
}

func NewSQLiteScanProjector(dbPath string) (discoveryout.ScanProjector, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	projector := &SQLiteScanProjector{db: db}
	if err := projector.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	return projector, nil
}

func (s *SQLiteScanProjector) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS scans (
  scan_id TEXT PRIMARY KEY,
  folder_path TEXT NOT NULL,
  scanned_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS scan_plugins (
  scan_id TEXT NOT NULL REFERENCES scans(scan_id),
  position INTEGER NOT NULL,
  name TEXT NOT NULL,
  version TEXT NOT NULL,
  module_path TEXT NOT NULL,
  type_name TEXT NOT NULL,
  PRIMARY KEY (scan_id, position)
);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create scan tables: %w", err)
	}
	return nil
}

func (s *SQLiteScanProjector) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM scan_plugins`); err != nil {
		return fmt.Errorf("reset scan plugins: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM scans`); err != nil {
		return fmt.Errorf("reset scans: %w", err)
	}
	return nil
}

func (s *SQLiteScanProjector) Project(ctx context.Context, record domain.ScanRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin scan projection: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO scans (scan_id, folder_path, scanned_at) VALUES (?, ?, ?)`,
		record.ScanID, record.FolderPath, record.ScannedAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("insert scan: %w", err)
	}
	for i, p := range record.Plugins {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO scan_plugins (scan_id, position, name, version, module_path, type_name) VALUES (?, ?, ?, ?, ?, ?)`,
			record.ScanID, i, p.Name, p.Version, p.SourceModulePath, p.TypeName,
		); err != nil {
			return fmt.Errorf("insert scan plugin: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit scan projection: %w", err)
	}
	return nil
}

func (s *SQLiteScanProjector) LastScan(ctx context.Context) (domain.ScanRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT scan_id, folder_path, scanned_at FROM scans ORDER BY scanned_at DESC, scan_id DESC LIMIT 1`)
	var record domain.ScanRecord
	var scannedAt string
	if err := row.Scan(&record.ScanID, &record.FolderPath, &scannedAt); err != nil {
		if err == sql.ErrNoRows {
			return domain.ScanRecord{}, fmt.Errorf("%w: no recorded scans", domain.ErrPluginNotFound)
		}
		return domain.ScanRecord{}, fmt.Errorf("query last scan: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, scannedAt)
	if err != nil {
		return domain.ScanRecord{}, fmt.Errorf("parse scan timestamp: %w", err)
	}
	record.ScannedAt = ts

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, version, module_path, type_name FROM scan_plugins WHERE scan_id = ? ORDER BY position`,
		record.ScanID)
	if err != nil {
		return domain.ScanRecord{}, fmt.Errorf("query scan plugins: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p domain.Plugin
		if err := rows.Scan(&p.Name, &p.Version, &p.SourceModulePath, &p.TypeName); err != nil {
			return domain.ScanRecord{}, fmt.Errorf("scan plugin row: %w", err)
		}
		record.Plugins = append(record.Plugins, p)
	}
	if err := rows.Err(); err != nil {
		return domain.ScanRecord{}, fmt.Errorf("iterate scan plugins: %w", err)
	}
	return record, nil
}
