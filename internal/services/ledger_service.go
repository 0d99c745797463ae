package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"

	"linkedin-autopilot-go/internal/config"
	"linkedin-autopilot-go/internal/models"
)

// LedgerService keeps a history of publications, in Turso when configured
// and in a local sqlite file otherwise.
type LedgerService struct {
	db     *sql.DB
	driver string
}

func NewLedgerService(cfg config.LedgerConfig) (*LedgerService, error) {
	driver, dsn := "sqlite", cfg.SQLitePath
	if cfg.DatabaseURL != "" {
		driver, dsn = "libsql", cfg.DatabaseURL
		if cfg.AuthToken != "" {
			dsn += "?authToken=" + cfg.AuthToken
		}
	} else if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s ledger: %w", driver, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s ledger: %w", driver, err)
	}

	service := &LedgerService{db: db, driver: driver}

	if err := service.initializeTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize ledger tables: %w", err)
	}

	log.Printf("Connected to %s publication ledger", driver)
	return service, nil
}

func (s *LedgerService) Driver() string {
	return s.driver
}

func (s *LedgerService) initializeTables() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS publications (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			title TEXT NOT NULL,
			post_id TEXT,
			asset_urn TEXT,
			has_image BOOLEAN NOT NULL DEFAULT 0,
			published_at TEXT NOT NULL
		)`,
		`DROP INDEX IF EXISTS idx_publications_run`,
		`CREATE INDEX IF NOT EXISTS idx_publications_run_id ON publications(run_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_publications_post ON publications(post_id)`,
		`CREATE INDEX IF NOT EXISTS idx_publications_published_at ON publications(published_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}

	return nil
}

// RecordPublication stores p. A second record for the same LinkedIn post
// replaces the first; posts without a known id are always appended.
func (s *LedgerService) RecordPublication(ctx context.Context, p models.Publication) error {
	query := `
		INSERT INTO publications (run_id, title, post_id, asset_urn, has_image, published_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(post_id) DO UPDATE SET
			run_id = excluded.run_id,
			title = excluded.title,
			asset_urn = excluded.asset_urn,
			has_image = excluded.has_image,
			published_at = excluded.published_at
	`

	var postID any
	if p.PostID != "" && p.PostID != UnknownPostID {
		postID = p.PostID
	}

	publishedAt := p.PublishedAt.UTC().Format(time.RFC3339)
	if _, err := s.db.ExecContext(ctx, query, p.RunID, p.Title, postID, p.AssetURN, p.HasImage, publishedAt); err != nil {
		return fmt.Errorf("failed to record publication: %w", err)
	}

	log.Printf("Recorded publication '%s' in ledger", p.Title)
	return nil
}

// RecentPublications returns up to limit rows, newest first.
func (s *LedgerService) RecentPublications(ctx context.Context, limit int) ([]models.Publication, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, title, COALESCE(post_id, ''), COALESCE(asset_urn, ''), has_image, published_at
		FROM publications
		ORDER BY published_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query publications: %w", err)
	}
	defer rows.Close()

	var publications []models.Publication
	for rows.Next() {
		var p models.Publication
		var publishedAt string
		if err := rows.Scan(&p.RunID, &p.Title, &p.PostID, &p.AssetURN, &p.HasImage, &publishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan publication: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, publishedAt); err == nil {
			p.PublishedAt = t
		}
		publications = append(publications, p)
	}

	return publications, rows.Err()
}

func (s *LedgerService) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
