/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package recent

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T, max int) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), DBFileName)
	s, err := OpenAt(path, max)
	if err != nil {
		t.Fatalf("OpenAt error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenCreatesWALAndMetaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), DBFileName)
	s, err := OpenAt(path, 5)
	if err != nil {
		t.Fatalf("OpenAt error: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("recents db missing at %s: %v", path, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	var mode string
	if err := s.db.QueryRowContext(ctx, "PRAGMA journal_mode;").Scan(&mode); err != nil {
		t.Fatalf("read journal_mode: %v", err)
	}
	if mode != "wal" && mode != "WAL" {
		t.Fatalf("expected WAL mode, got %s", mode)
	}
	var cnt int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('meta','version','recents')").Scan(&cnt); err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	if cnt != 3 {
		t.Fatalf("expected 3 tables, got %d", cnt)
	}
	var schema int
	if err := s.db.QueryRowContext(ctx, "SELECT schema FROM version WHERE id=1").Scan(&schema); err != nil {
		t.Fatalf("read schema version: %v", err)
	}
	if schema != schemaVersion {
		t.Fatalf("expected schema %d, got %d", schemaVersion, schema)
	}
}

func TestTouchInsertsAndBumpsCount(t *testing.T) {
	s := openTestStore(t, 5)
	ctx := context.Background()

	if err := s.Touch(ctx, "/images/cat.png", 800, 600); err != nil {
		t.Fatalf("Touch error: %v", err)
	}
	if err := s.Touch(ctx, "/images/cat.png", 1024, 768); err != nil {
		t.Fatalf("Touch error: %v", err)
	}

	got, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	e := got[0]
	if e.OpenCount != 2 {
		t.Fatalf("expected open count 2, got %d", e.OpenCount)
	}
	if e.Width != 1024 || e.Height != 768 {
		t.Fatalf("expected dims updated to 1024x768, got %dx%d", e.Width, e.Height)
	}
	if e.LastOpened.IsZero() {
		t.Fatalf("expected last opened timestamp")
	}
}

func TestListOrdersMostRecentFirst(t *testing.T) {
	s := openTestStore(t, 5)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if err := s.touchAt(ctx, "a.png", 10, 10, base); err != nil {
		t.Fatalf("touch a: %v", err)
	}
	if err := s.touchAt(ctx, "b.png", 10, 10, base.Add(time.Minute)); err != nil {
		t.Fatalf("touch b: %v", err)
	}
	if err := s.touchAt(ctx, "c.png", 10, 10, base.Add(2*time.Minute)); err != nil {
		t.Fatalf("touch c: %v", err)
	}

	got, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	want := []string{"c.png", "b.png", "a.png"}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	for i, ref := range want {
		if got[i].Ref != ref {
			t.Fatalf("entry %d = %s, want %s", i, got[i].Ref, ref)
		}
	}
}

func TestPruneKeepsNewestEntries(t *testing.T) {
	s := openTestStore(t, 3)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	refs := []string{"one.png", "two.png", "three.png", "four.png", "five.png"}
	for i, ref := range refs {
		if err := s.touchAt(ctx, ref, 10, 10, base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("touch %s: %v", ref, err)
		}
	}

	got, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected prune to keep 3 entries, got %d", len(got))
	}
	want := []string{"five.png", "four.png", "three.png"}
	for i, ref := range want {
		if got[i].Ref != ref {
			t.Fatalf("entry %d = %s, want %s", i, got[i].Ref, ref)
		}
	}
}

func TestRemoveAndClear(t *testing.T) {
	s := openTestStore(t, 5)
	ctx := context.Background()

	if err := s.Touch(ctx, "x.png", 1, 1); err != nil {
		t.Fatalf("touch x: %v", err)
	}
	if err := s.Touch(ctx, "y.png", 1, 1); err != nil {
		t.Fatalf("touch y: %v", err)
	}

	if err := s.Remove(ctx, "x.png"); err != nil {
		t.Fatalf("Remove error: %v", err)
	}
	got, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(got) != 1 || got[0].Ref != "y.png" {
		t.Fatalf("expected only y.png after remove, got %+v", got)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	got, err = s.List(ctx)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty list after clear, got %d", len(got))
	}
}

func TestTouchRejectsEmptyRef(t *testing.T) {
	s := openTestStore(t, 5)
	if err := s.Touch(context.Background(), "   ", 1, 1); err == nil {
		t.Fatalf("expected error for blank ref")
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DBFileName)
	ctx := context.Background()

	s, err := OpenAt(path, 5)
	if err != nil {
		t.Fatalf("OpenAt error: %v", err)
	}
	if err := s.Touch(ctx, "persist.png", 320, 240); err != nil {
		t.Fatalf("Touch error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	s2, err := OpenAt(path, 5)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer s2.Close()
	got, err := s2.List(ctx)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(got) != 1 || got[0].Ref != "persist.png" {
		t.Fatalf("expected persisted entry, got %+v", got)
	}
}
