/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package recent keeps the recently-opened-images list in an embedded SQLite
// database under the user config dir. It records image references and their
// dimensions only; selections are never persisted.
package recent

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"selectview/internal/config"
	applog "selectview/internal/log"
	"selectview/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	DBFileName = "recent.sqlite"

	// DefaultMaxEntries caps the recents list when no configured limit is given.
	DefaultMaxEntries = 20

	// schemaVersion tracks the local SQLite schema for the recents store.
	// Bump this when you perform breaking schema changes and add migrations.
	schemaVersion = 2
)

// Entry is one recently-opened image.
type Entry struct {
	Ref        string
	Width      int
	Height     int
	LastOpened time.Time
	OpenCount  int
}

// Store wraps the embedded recents database. A Store is not safe for
// concurrent use by multiple goroutines.
type Store struct {
	db  *sql.DB
	max int
}

// DBPath returns the full path to the recents database under the user config dir.
func DBPath() (string, error) {
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DBFileName), nil
}

// Open opens (creating if needed) the recents store at its default location.
func Open(maxEntries int) (*Store, error) {
	path, err := DBPath()
	if err != nil {
		return nil, err
	}
	return OpenAt(path, maxEntries)
}

// OpenAt opens the recents store at path, enables WAL mode, and ensures the
// meta/version/recents schema exists. The returned Store is ready for use.
func OpenAt(path string, maxEntries int) (*Store, error) {
	l := applog.WithOperation(applog.WithComponent("recent"), "open").With(
		slog.String("path", path),
	)
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("recents db path is required")
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		l.Error("create recents dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create recents dir: %w", err)
	}

	// Use a URI with shared cache and set busy timeout. Convert to forward slashes for SQLite URI.
	uriPath := filepath.ToSlash(path)
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", uriPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Set reasonable connection pool limits for embedded usage.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Ensure WAL mode is active.
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		l.Warn("enable foreign_keys failed", slog.Any("err", err))
	}

	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureRecentsSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure recents schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}

	l.Info("recents store ready")
	return &Store{db: db, max: maxEntries}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Touch records an open of ref, bumping its open count and timestamp, then
// prunes the list to the configured cap.
func (s *Store) Touch(ctx context.Context, ref string, width, height int) error {
	return s.touchAt(ctx, ref, width, height, time.Now().UTC())
}

func (s *Store) touchAt(ctx context.Context, ref string, width, height int, at time.Time) error {
	if strings.TrimSpace(ref) == "" {
		return errors.New("image ref is required")
	}
	stamp := at.Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recents (ref, width, height, last_opened, open_count)
		VALUES (?, ?, ?, ?, 1)
		ON CONFLICT(ref) DO UPDATE SET
			width       = excluded.width,
			height      = excluded.height,
			last_opened = excluded.last_opened,
			open_count  = open_count + 1;`,
		ref, width, height, stamp)
	if err != nil {
		return fmt.Errorf("touch recent: %w", err)
	}
	return s.prune(ctx)
}

// List returns entries ordered most recently opened first, capped at the
// configured maximum.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ref, width, height, last_opened, open_count
		FROM recents
		ORDER BY last_opened DESC
		LIMIT ?;`, s.max)
	if err != nil {
		return nil, fmt.Errorf("list recents: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var stamp string
		if err := rows.Scan(&e.Ref, &e.Width, &e.Height, &stamp, &e.OpenCount); err != nil {
			return nil, fmt.Errorf("scan recent: %w", err)
		}
		if t, perr := time.Parse(time.RFC3339Nano, stamp); perr == nil {
			e.LastOpened = t
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recents: %w", err)
	}
	return out, nil
}

// Remove drops a single entry.
func (s *Store) Remove(ctx context.Context, ref string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM recents WHERE ref = ?;`, ref); err != nil {
		return fmt.Errorf("remove recent: %w", err)
	}
	return nil
}

// Clear empties the recents list.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM recents;`); err != nil {
		return fmt.Errorf("clear recents: %w", err)
	}
	return nil
}

// prune keeps only the max most recently opened entries.
func (s *Store) prune(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM recents WHERE ref NOT IN (
			SELECT ref FROM recents ORDER BY last_opened DESC LIMIT ?
		);`, s.max)
	if err != nil {
		return fmt.Errorf("prune recents: %w", err)
	}
	return nil
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	// Create tables if not exist
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	// Seed or update single-row version info
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Insert new row with current schemaVersion for a fresh DB
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, schemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		// Update app and timestamp only; keep existing schema for migrations
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

func ensureRecentsSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS recents (
			ref         TEXT    PRIMARY KEY,
			width       INTEGER NOT NULL,
			height      INTEGER NOT NULL,
			last_opened TEXT    NOT NULL,
			open_count  INTEGER NOT NULL DEFAULT 1
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure recents schema: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if cur > schemaVersion {
		// Do not downgrade; just continue
		return nil
	}
	for cur < schemaVersion {
		next := cur + 1
		switch next {
		case 2:
			// Add ordering index for the List/prune queries
			tx, err := db.BeginTx(ctx, nil)
			if err != nil {
				return fmt.Errorf("begin migration %d: %w", next, err)
			}
			if _, err := tx.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_recents_last_opened ON recents(last_opened);`); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
			if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d update version: %w", next, err)
			}
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("migration %d commit: %w", next, err)
			}
		default:
			// Unknown future step; break
		}
		cur = next
	}
	return nil
}
