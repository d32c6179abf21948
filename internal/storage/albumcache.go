package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"flagrate-rgb/internal/colour"
	_ "github.com/mattn/go-sqlite3"
)

// AlbumEntry is the colour extracted from one album cover. Variant names the
// extraction settings that produced it; the LED match is not stored because
// it depends on the mapper in use.
type AlbumEntry struct {
	AlbumID   string
	Variant   string
	Extracted colour.Color
	CreatedAt time.Time
}

// AlbumCache remembers the colour already extracted for an album so a
// replayed album skips the download and quantization.
type AlbumCache struct {
	db *sql.DB
}

func OpenAlbumCache(path string) (*AlbumCache, error) {
	if path == "" {
		return nil, errors.New("album cache path is empty")
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open album cache: %w", err)
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize album cache schema: %w", err)
	}
	return &AlbumCache{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS album_extractions (
			album_id TEXT NOT NULL,
			variant TEXT NOT NULL,
			r INTEGER NOT NULL,
			g INTEGER NOT NULL,
			b INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (album_id, variant)
		);
	`)
	return err
}

// Get returns the entry for albumID under variant; ok is false on a miss.
func (c *AlbumCache) Get(albumID, variant string) (AlbumEntry, bool, error) {
	e := AlbumEntry{AlbumID: albumID, Variant: variant}
	var (
		r, g, b   int
		createdAt int64
	)
	err := c.db.QueryRow(`
		SELECT r, g, b, created_at
		FROM album_extractions WHERE album_id = ? AND variant = ?`, albumID, variant).
		Scan(&r, &g, &b, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return AlbumEntry{}, false, nil
	}
	if err != nil {
		return AlbumEntry{}, false, fmt.Errorf("album cache get: %w", err)
	}
	if e.Extracted, err = colour.New(r, g, b); err != nil {
		return AlbumEntry{}, false, fmt.Errorf("album cache row %s: %w", albumID, err)
	}
	e.CreatedAt = time.UnixMilli(createdAt).UTC()
	return e, true, nil
}

func (c *AlbumCache) Put(e AlbumEntry) error {
	if e.AlbumID == "" {
		return errors.New("album id is empty")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := c.db.Exec(`
		INSERT INTO album_extractions (album_id, variant, r, g, b, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(album_id, variant) DO UPDATE SET
			r = excluded.r, g = excluded.g, b = excluded.b,
			created_at = excluded.created_at`,
		e.AlbumID, e.Variant, e.Extracted.R, e.Extracted.G, e.Extracted.B,
		e.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("album cache put: %w", err)
	}
	return nil
}

// Prune drops rows extracted under any variant other than keep and returns
// how many were removed.
func (c *AlbumCache) Prune(keep string) (int64, error) {
	res, err := c.db.Exec(`DELETE FROM album_extractions WHERE variant <> ?`, keep)
	if err != nil {
		return 0, fmt.Errorf("album cache prune: %w", err)
	}
	return res.RowsAffected()
}

func (c *AlbumCache) Close() error {
	return c.db.Close()
}
