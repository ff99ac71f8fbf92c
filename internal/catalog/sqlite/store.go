package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dendi/filmscatalog/internal/catalog"
	"github.com/dendi/filmscatalog/internal/live"
	_ "modernc.org/sqlite"
)

// Store implements catalog.Store using SQLite.
type Store struct {
	mu      sync.RWMutex
	db      *sql.DB
	closed  bool
	changes *live.Hub[catalog.Change]
	now     func() time.Time
}

// New creates a new SQLite-based catalog store at dbPath, creating the
// parent directory when needed.
func New(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}

	store, err := NewWithDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewWithDB creates a store using an existing database connection.
func NewWithDB(db *sql.DB) (*Store, error) {
	store := &Store{
		db:      db,
		changes: live.NewHub[catalog.Change](),
		now:     time.Now,
	}
	if err := store.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize catalog tables: %w", err)
	}
	return store, nil
}

// NewInMemory creates a new in-memory SQLite store (useful for testing).
func NewInMemory() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	store, err := NewWithDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// initialize creates the necessary tables and indexes.
func (s *Store) initialize() error {
	schema := `
		CREATE TABLE IF NOT EXISTS items (
			kind TEXT NOT NULL,
			id INTEGER NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			overview TEXT NOT NULL DEFAULT '',
			poster_path TEXT NOT NULL DEFAULT '',
			release_date TEXT NOT NULL DEFAULT '',
			rating REAL NOT NULL DEFAULT 0,
			position INTEGER NOT NULL DEFAULT 0,
			listed INTEGER NOT NULL DEFAULT 1,
			favorited INTEGER NOT NULL DEFAULT 0,
			favorited_at INTEGER,
			PRIMARY KEY (kind, id)
		);

		CREATE INDEX IF NOT EXISTS idx_items_list ON items(kind, listed, position);
		CREATE INDEX IF NOT EXISTS idx_items_favorited ON items(kind, favorited, favorited_at);

		CREATE TABLE IF NOT EXISTS details (
			kind TEXT NOT NULL,
			id INTEGER NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			overview TEXT NOT NULL DEFAULT '',
			tagline TEXT NOT NULL DEFAULT '',
			poster_path TEXT NOT NULL DEFAULT '',
			backdrop_path TEXT NOT NULL DEFAULT '',
			release_date TEXT NOT NULL DEFAULT '',
			rating REAL NOT NULL DEFAULT 0,
			genres TEXT NOT NULL DEFAULT '[]',
			runtime INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT '',
			fetched_at INTEGER NOT NULL,
			PRIMARY KEY (kind, id)
		);

		CREATE TABLE IF NOT EXISTS sync_state (
			kind TEXT PRIMARY KEY,
			refreshed_at INTEGER NOT NULL
		);
	`

	_, err := s.db.Exec(schema)
	return err
}

// ReadList returns the view of the cached list for kind.
func (s *Store) ReadList(ctx context.Context, kind catalog.Kind) (catalog.PagedView, error) {
	return s.view(kind, false)
}

// ReadFavorites returns the view of favorited items of kind.
func (s *Store) ReadFavorites(ctx context.Context, kind catalog.Kind) (catalog.PagedView, error) {
	return s.view(kind, true)
}

func (s *Store) view(kind catalog.Kind, favorites bool) (catalog.PagedView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, catalog.ErrStoreClosed
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", catalog.ErrUnknownKind, kind)
	}
	return &pagedView{store: s, kind: kind, favorites: favorites}, nil
}

// ReadDetail returns the cached detail or catalog.ErrNotFound.
func (s *Store) ReadDetail(ctx context.Context, kind catalog.Kind, id int) (catalog.DetailItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return catalog.DetailItem{}, catalog.ErrStoreClosed
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT d.kind, d.id, d.title, d.overview, d.tagline, d.poster_path, d.backdrop_path,
			d.release_date, d.rating, d.genres, d.runtime, d.status, d.fetched_at,
			COALESCE(i.favorited, 0)
		FROM details d
		LEFT JOIN items i ON i.kind = d.kind AND i.id = d.id
		WHERE d.kind = ? AND d.id = ?
	`, string(kind), id)

	var (
		item      catalog.DetailItem
		kindStr   string
		genres    string
		fetchedAt int64
	)
	err := row.Scan(&kindStr, &item.ID, &item.Title, &item.Overview, &item.Tagline,
		&item.PosterPath, &item.BackdropPath, &item.ReleaseDate, &item.Rating, &genres,
		&item.Runtime, &item.Status, &fetchedAt, &item.Favorited)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.DetailItem{}, catalog.ErrNotFound
	}
	if err != nil {
		return catalog.DetailItem{}, fmt.Errorf("failed to read detail: %w", err)
	}

	item.Kind = catalog.Kind(kindStr)
	item.FetchedAt = time.Unix(0, fetchedAt)
	if err := json.Unmarshal([]byte(genres), &item.Genres); err != nil {
		return catalog.DetailItem{}, fmt.Errorf("failed to decode genres: %w", err)
	}
	return item, nil
}

// ListRefreshedAt returns when the list for kind was last replaced.
func (s *Store) ListRefreshedAt(ctx context.Context, kind catalog.Kind) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return time.Time{}, catalog.ErrStoreClosed
	}

	var ns int64
	err := s.db.QueryRowContext(ctx,
		"SELECT refreshed_at FROM sync_state WHERE kind = ?", string(kind),
	).Scan(&ns)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read sync state: %w", err)
	}
	return time.Unix(0, ns), nil
}

// SaveOrReplace replaces the list for kind in one transaction. Existing rows
// keep their favorite flag. Rows missing from items are removed unless they
// are favorited, in which case they stay visible to ReadFavorites only.
func (s *Store) SaveOrReplace(ctx context.Context, kind catalog.Kind, items []catalog.ListItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return catalog.ErrStoreClosed
	}
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", catalog.ErrUnknownKind, kind)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "UPDATE items SET listed = 0 WHERE kind = ?", string(kind)); err != nil {
		return fmt.Errorf("failed to unlist items: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO items (kind, id, title, overview, poster_path, release_date, rating, position, listed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(kind, id) DO UPDATE SET
			title = excluded.title,
			overview = excluded.overview,
			poster_path = excluded.poster_path,
			release_date = excluded.release_date,
			rating = excluded.rating,
			position = excluded.position,
			listed = 1
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for i, item := range items {
		if _, err := stmt.ExecContext(ctx, string(kind), item.ID, item.Title, item.Overview,
			item.PosterPath, item.ReleaseDate, item.Rating, i); err != nil {
			return fmt.Errorf("failed to save item %d: %w", item.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM items WHERE kind = ? AND listed = 0 AND favorited = 0", string(kind),
	); err != nil {
		return fmt.Errorf("failed to delete stale items: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sync_state (kind, refreshed_at) VALUES (?, ?)
		ON CONFLICT(kind) DO UPDATE SET refreshed_at = excluded.refreshed_at
	`, string(kind), s.now().UnixNano()); err != nil {
		return fmt.Errorf("failed to update sync state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit list: %w", err)
	}

	s.changes.Publish(catalog.Change{Kind: kind})
	return nil
}

// SaveDetail inserts or replaces a detail.
func (s *Store) SaveDetail(ctx context.Context, item catalog.DetailItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return catalog.ErrStoreClosed
	}
	if !item.Kind.Valid() {
		return fmt.Errorf("%w: %q", catalog.ErrUnknownKind, item.Kind)
	}

	genres := item.Genres
	if genres == nil {
		genres = []string{}
	}
	genresJSON, err := json.Marshal(genres)
	if err != nil {
		return fmt.Errorf("failed to encode genres: %w", err)
	}

	fetchedAt := item.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = s.now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO details (
			kind, id, title, overview, tagline, poster_path, backdrop_path,
			release_date, rating, genres, runtime, status, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		string(item.Kind), item.ID, item.Title, item.Overview, item.Tagline, item.PosterPath,
		item.BackdropPath, item.ReleaseDate, item.Rating, string(genresJSON), item.Runtime,
		item.Status, fetchedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save detail: %w", err)
	}

	s.changes.Publish(catalog.Change{Kind: item.Kind, IDs: []int{item.ID}})
	return nil
}

// UpdateFavorite sets the favorite flag of an item. Setting the current value
// again is a no-op that still succeeds. Items cached only as a detail can be
// favorited too.
func (s *Store) UpdateFavorite(ctx context.Context, kind catalog.Kind, id int, favorite bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return catalog.ErrStoreClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var result sql.Result
	if favorite {
		result, err = tx.ExecContext(ctx, `
			UPDATE items
			SET favorited_at = CASE WHEN favorited = 1 THEN favorited_at ELSE ? END,
				favorited = 1
			WHERE kind = ? AND id = ?
		`, s.now().UnixNano(), string(kind), id)
	} else {
		result, err = tx.ExecContext(ctx, `
			UPDATE items SET favorited = 0, favorited_at = NULL
			WHERE kind = ? AND id = ?
		`, string(kind), id)
	}
	if err != nil {
		return fmt.Errorf("failed to update favorite: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update favorite: %w", err)
	}
	if affected == 0 {
		found, err := s.favoriteFromDetail(ctx, tx, kind, id, favorite)
		if err != nil {
			return err
		}
		if !found {
			return catalog.ErrNotFound
		}
	}

	if !favorite {
		// A favorite kept after it left the remote list has nothing left to show.
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM items WHERE kind = ? AND id = ? AND listed = 0", string(kind), id,
		); err != nil {
			return fmt.Errorf("failed to delete unlisted item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit favorite: %w", err)
	}

	s.changes.Publish(catalog.Change{Kind: kind, IDs: []int{id}, Favorites: true})
	return nil
}

// favoriteFromDetail handles an item with no list row. A cached detail is
// enough to favorite it: an unlisted row is seeded from the detail so the
// favorites view can show it. It reports false when no detail is cached.
func (s *Store) favoriteFromDetail(ctx context.Context, tx *sql.Tx, kind catalog.Kind, id int, favorite bool) (bool, error) {
	if !favorite {
		var exists bool
		err := tx.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM details WHERE kind = ? AND id = ?)", string(kind), id,
		).Scan(&exists)
		if err != nil {
			return false, fmt.Errorf("failed to look up detail: %w", err)
		}
		return exists, nil
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO items (kind, id, title, overview, poster_path, release_date, rating, position, listed, favorited, favorited_at)
		SELECT kind, id, title, overview, poster_path, release_date, rating, 0, 0, 1, ?
		FROM details
		WHERE kind = ? AND id = ?
	`, s.now().UnixNano(), string(kind), id)
	if err != nil {
		return false, fmt.Errorf("failed to favorite detail: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to favorite detail: %w", err)
	}
	return affected > 0, nil
}

// Watch subscribes to committed changes.
func (s *Store) Watch() *live.Stream[catalog.Change] {
	return s.changes.Subscribe()
}

// Clear removes every cached item, detail and sync timestamp.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return catalog.ErrStoreClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"items", "details", "sync_state"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit clear: %w", err)
	}

	for _, kind := range catalog.Kinds {
		s.changes.Publish(catalog.Change{Kind: kind, Favorites: true})
	}
	return nil
}

// Close closes the store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	s.changes.Close()
	return s.db.Close()
}

// Verify Store implements catalog.Store interface
var _ catalog.Store = (*Store)(nil)
