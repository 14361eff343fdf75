package database

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"snaketunes-srv/internal/models"
)

//go:embed schema.sql
var schema string

// Open creates the parent directory, opens the sqlite file and applies the
// schema.
func Open(path string) (*sql.DB, error) {
	if path != ":memory:" {
		_ = os.MkdirAll(filepath.Dir(path), 0755)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := InitDatabase(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return db, nil
}

// InitDatabase runs the embedded schema and sets performance PRAGMAs
func InitDatabase(db *sql.DB) error {
	// WAL keeps seen-track writes from blocking concurrent session loads
	_, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL; PRAGMA cache_size=-2000;")
	if err != nil {
		return err
	}
	_, err = db.Exec(schema)
	return err
}

// Store is the sqlite-backed seen-track store and resolved-source cache.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// LoadSeen returns every id recorded for a session.
func (s *Store) LoadSeen(ctx context.Context, sessionID string) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, "SELECT external_id FROM seen_tracks WHERE session_id = ?", sessionID)
	if err != nil {
		return nil, fmt.Errorf("load seen: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AddSeen records ids for a session. Existing rows are left untouched.
func (s *Store) AddSeen(ctx context.Context, sessionID string, ids []string) error {
	if s == nil || s.db == nil || len(ids) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT OR IGNORE INTO seen_tracks (session_id, external_id) VALUES (?, ?)")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, sessionID, id); err != nil {
			tx.Rollback()
			return fmt.Errorf("add seen %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// ResetSeen forgets a session.
func (s *Store) ResetSeen(ctx context.Context, sessionID string) error {
	if s == nil || s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, "DELETE FROM seen_tracks WHERE session_id = ?", sessionID)
	return err
}

func artistKey(artist string) string {
	return strings.ToLower(strings.Join(strings.Fields(artist), " "))
}

// GetSource looks up a cached resolution younger than maxAge. A miss returns
// (nil, nil).
func (s *Store) GetSource(ctx context.Context, provider, artist string, maxAge time.Duration) (*models.CandidateSource, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var (
		src     models.CandidateSource
		srcType string
		updated time.Time
	)
	err := s.db.QueryRowContext(ctx, `
	SELECT source_id, display_name, followers, source_type, catalog_handle, confidence, last_updated
	FROM source_cache WHERE provider = ? AND artist_key = ?`, provider, artistKey(artist)).
		Scan(&src.ID, &src.DisplayName, &src.Followers, &srcType, &src.CatalogHandle, &src.Confidence, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get source: %w", err)
	}
	if maxAge > 0 && time.Since(updated) > maxAge {
		return nil, nil
	}
	src.Type = models.SourceType(srcType)
	return &src, nil
}

// PutSource upserts a resolution.
func (s *Store) PutSource(ctx context.Context, provider, artist string, src models.CandidateSource) error {
	if s == nil || s.db == nil {
		return nil
	}
	query := `
	INSERT INTO source_cache (provider, artist_key, source_id, display_name, followers, source_type, catalog_handle, confidence, last_updated)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(provider, artist_key) DO UPDATE SET
		source_id = excluded.source_id,
		display_name = excluded.display_name,
		followers = excluded.followers,
		source_type = excluded.source_type,
		catalog_handle = COALESCE(NULLIF(excluded.catalog_handle, ''), source_cache.catalog_handle),
		confidence = excluded.confidence,
		last_updated = excluded.last_updated;`

	_, err := s.db.ExecContext(ctx, query, provider, artistKey(artist), src.ID, src.DisplayName,
		src.Followers, string(src.Type), src.CatalogHandle, src.Confidence, time.Now().UTC())
	return err
}
