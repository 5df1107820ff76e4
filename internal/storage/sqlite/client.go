package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/ecolens/backend/internal/storage/models"
	"github.com/ecolens/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS comparisons (
		id TEXT PRIMARY KEY,
		user_id TEXT,
		query_text TEXT NOT NULL,
		subjects_json TEXT NOT NULL,
		rows_json TEXT NOT NULL,
		narrative TEXT NOT NULL,
		provenance TEXT NOT NULL,
		evidence_count INTEGER NOT NULL,
		latency_ms INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_comparisons_user ON comparisons(user_id);
	CREATE INDEX IF NOT EXISTS idx_comparisons_created ON comparisons(created_at);
	CREATE INDEX IF NOT EXISTS idx_comparisons_provenance ON comparisons(provenance);

	CREATE TABLE IF NOT EXISTS evidence (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		comparison_id TEXT NOT NULL,
		source TEXT NOT NULL,
		url TEXT,
		snippet TEXT,
		retrieved_at INTEGER NOT NULL,
		FOREIGN KEY (comparison_id) REFERENCES comparisons(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_evidence_comparison ON evidence(comparison_id);
	`

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) InsertComparison(record *models.Comparison) error {
	query := `
		INSERT INTO comparisons (id, user_id, query_text, subjects_json, rows_json, narrative,
			provenance, evidence_count, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		record.ID,
		record.UserID,
		record.QueryText,
		record.SubjectsJSON,
		record.RowsJSON,
		record.Narrative,
		record.Provenance,
		record.EvidenceCount,
		record.LatencyMS,
		record.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert comparison: %w", err)
	}

	logger.Debug("Comparison archived",
		zap.String("comparison_id", record.ID),
		zap.String("provenance", record.Provenance),
	)
	return nil
}

func (c *Client) InsertEvidence(row *models.EvidenceRow) error {
	query := `INSERT INTO evidence (comparison_id, source, url, snippet, retrieved_at) VALUES (?, ?, ?, ?, ?)`

	_, err := c.db.Exec(
		query,
		row.ComparisonID,
		row.Source,
		row.URL,
		row.Snippet,
		row.RetrievedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert evidence: %w", err)
	}
	return nil
}

func (c *Client) RecentComparisons(limit int) ([]models.Comparison, error) {
	query := `
		SELECT id, user_id, query_text, subjects_json, rows_json, narrative,
			provenance, evidence_count, latency_ms, created_at
		FROM comparisons
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list comparisons: %w", err)
	}
	defer rows.Close()

	var records []models.Comparison
	for rows.Next() {
		var r models.Comparison
		var createdAt int64

		err := rows.Scan(&r.ID, &r.UserID, &r.QueryText, &r.SubjectsJSON, &r.RowsJSON,
			&r.Narrative, &r.Provenance, &r.EvidenceCount, &r.LatencyMS, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, r)
	}

	return records, rows.Err()
}
