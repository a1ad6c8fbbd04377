// Package store provides SQLite persistence for detected trends, their
// validation verdicts, and accepted fingerprints.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/abelbrown/trendwatch/internal/model"
)

// Store handles SQLite persistence. NOT an interface - concrete type.
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex // Protects all database operations
	ttl time.Duration
	now func() time.Time
}

// TrendRecord is one persisted validation of a trend. Articles are not
// loaded; SourceLinks carries their URLs.
type TrendRecord struct {
	Trend       model.Trend
	CycleID     string
	IsValid     bool
	Confidence  float64
	Issues      []string
	ValidatedAt time.Time
}

// Open creates a new Store with the given database path.
// Creates tables if they don't exist.
// Uses WAL mode for better concurrent read performance (file-based DBs only).
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		// Shared cache so every pooled connection sees the same database.
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db, now: time.Now}

	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return s, nil
}

// SetFingerprintTTL makes remembered fingerprints expire after ttl. Zero
// keeps them forever.
func (s *Store) SetFingerprintTTL(ttl time.Duration) { s.ttl = ttl }

// createTables creates the required tables and indexes if they don't exist.
func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS trends (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT,
		category TEXT NOT NULL,
		keywords TEXT NOT NULL DEFAULT '[]',
		article_count INTEGER NOT NULL,
		source_count INTEGER NOT NULL,
		trend_score REAL NOT NULL,
		confidence_score REAL NOT NULL,
		first_seen DATETIME NOT NULL,
		last_updated DATETIME NOT NULL,
		duration_hours REAL NOT NULL,
		source_links TEXT NOT NULL DEFAULT '[]'
	);

	CREATE TABLE IF NOT EXISTS trend_articles (
		trend_id TEXT NOT NULL,
		article_id TEXT NOT NULL,
		title TEXT NOT NULL,
		url TEXT NOT NULL,
		source_name TEXT NOT NULL,
		published_at DATETIME NOT NULL,
		PRIMARY KEY (trend_id, article_id)
	);

	CREATE TABLE IF NOT EXISTS validations (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		trend_id TEXT NOT NULL,
		cycle_id TEXT,
		is_valid INTEGER NOT NULL,
		confidence REAL NOT NULL,
		cross_reference REAL NOT NULL,
		fact_check REAL NOT NULL,
		duplicate INTEGER NOT NULL,
		content_filter INTEGER NOT NULL,
		fingerprint TEXT,
		issues TEXT NOT NULL DEFAULT '[]',
		validated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS fingerprints (
		fingerprint TEXT PRIMARY KEY,
		trend_id TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		expires_at INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_validations_trend ON validations(trend_id);
	CREATE INDEX IF NOT EXISTS idx_fingerprints_expires ON fingerprints(expires_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
// Thread-safe: acquires write lock to prevent closing during in-flight operations.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// SaveTrend upserts the trend row, replaces its article links and appends
// the validation verdict. A nil result stores the trend only.
// Thread-safe: acquires write lock.
func (s *Store) SaveTrend(ctx context.Context, cycleID string, t *model.Trend, r *model.ValidationResult) error {
	if t == nil {
		return errors.New("store: nil trend")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	keywords, err := json.Marshal(nonNil(t.Keywords))
	if err != nil {
		return err
	}
	links, err := json.Marshal(nonNil(t.SourceLinks))
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO trends (
			id, title, description, category, keywords, article_count,
			source_count, trend_score, confidence_score, first_seen,
			last_updated, duration_hours, source_links
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			category = excluded.category,
			keywords = excluded.keywords,
			article_count = excluded.article_count,
			source_count = excluded.source_count,
			trend_score = excluded.trend_score,
			confidence_score = excluded.confidence_score,
			first_seen = excluded.first_seen,
			last_updated = excluded.last_updated,
			duration_hours = excluded.duration_hours,
			source_links = excluded.source_links
	`,
		t.ID, t.Title, t.Description, string(t.Category), string(keywords),
		t.ArticleCount, t.SourceCount, t.TrendScore, t.ConfidenceScore,
		t.FirstSeen.UTC(), t.LastUpdated.UTC(), t.DurationHours, string(links),
	)
	if err != nil {
		return fmt.Errorf("save trend: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM trend_articles WHERE trend_id = ?", t.ID); err != nil {
		return fmt.Errorf("clear articles: %w", err)
	}
	for _, a := range t.Articles {
		_, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO trend_articles (trend_id, article_id, title, url, source_name, published_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, t.ID, a.ID, a.Title, a.URL, a.SourceName(), a.PublishedAt.UTC())
		if err != nil {
			return fmt.Errorf("save article link: %w", err)
		}
	}

	if r != nil {
		issues, err := json.Marshal(nonNil(r.Issues))
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO validations (
				trend_id, cycle_id, is_valid, confidence, cross_reference,
				fact_check, duplicate, content_filter, fingerprint, issues, validated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			t.ID, cycleID, boolToInt(r.IsValid), r.ConfidenceScore, r.CrossReferenceScore,
			r.FactCheckScore, boolToInt(r.DuplicateCheck), boolToInt(r.ContentFilter),
			r.Fingerprint, string(issues), r.ValidatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("save validation: %w", err)
		}
	}

	return tx.Commit()
}

// RecentTrends returns the latest validations joined with their trends,
// newest first.
// Thread-safe: acquires read lock.
func (s *Store) RecentTrends(ctx context.Context, limit int) ([]TrendRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.title, t.description, t.category, t.keywords,
			t.article_count, t.source_count, t.trend_score, t.confidence_score,
			t.first_seen, t.last_updated, t.duration_hours, t.source_links,
			v.cycle_id, v.is_valid, v.confidence, v.issues, v.validated_at
		FROM validations v
		JOIN trends t ON t.id = v.trend_id
		ORDER BY v.seq DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []TrendRecord
	for rows.Next() {
		var rec TrendRecord
		var category, keywords, links, issues string
		var cycleID sql.NullString
		var valid int
		err := rows.Scan(
			&rec.Trend.ID, &rec.Trend.Title, &rec.Trend.Description, &category, &keywords,
			&rec.Trend.ArticleCount, &rec.Trend.SourceCount, &rec.Trend.TrendScore, &rec.Trend.ConfidenceScore,
			&rec.Trend.FirstSeen, &rec.Trend.LastUpdated, &rec.Trend.DurationHours, &links,
			&cycleID, &valid, &rec.Confidence, &issues, &rec.ValidatedAt,
		)
		if err != nil {
			return nil, err
		}
		rec.Trend.Category = model.Category(category)
		rec.CycleID = cycleID.String
		rec.IsValid = valid != 0
		if err := json.Unmarshal([]byte(keywords), &rec.Trend.Keywords); err != nil {
			return nil, fmt.Errorf("decode keywords for %s: %w", rec.Trend.ID, err)
		}
		if err := json.Unmarshal([]byte(links), &rec.Trend.SourceLinks); err != nil {
			return nil, fmt.Errorf("decode links for %s: %w", rec.Trend.ID, err)
		}
		if err := json.Unmarshal([]byte(issues), &rec.Issues); err != nil {
			return nil, fmt.Errorf("decode issues for %s: %w", rec.Trend.ID, err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// TrendArticleURLs returns the stored article URLs of a trend in
// publication order.
// Thread-safe: acquires read lock.
func (s *Store) TrendArticleURLs(ctx context.Context, trendID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT url FROM trend_articles WHERE trend_id = ? ORDER BY published_at, article_id", trendID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

// CountTrends returns the number of distinct stored trends.
func (s *Store) CountTrends(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM trends").Scan(&n)
	return n, err
}

// Seen reports whether fp was remembered and has not expired.
func (s *Store) Seen(ctx context.Context, fp string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM fingerprints
		WHERE fingerprint = ? AND (expires_at IS NULL OR expires_at > ?)
	`, fp, s.now().Unix()).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Remember records fp for trendID, refreshing its expiry.
// Thread-safe: acquires write lock.
func (s *Store) Remember(ctx context.Context, fp, trendID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var expires sql.NullInt64
	if s.ttl > 0 {
		expires = sql.NullInt64{Int64: now.Add(s.ttl).Unix(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fingerprints (fingerprint, trend_id, created_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET
			trend_id = excluded.trend_id,
			expires_at = excluded.expires_at
	`, fp, trendID, now.Unix(), expires)
	return err
}

// PruneFingerprints deletes fingerprints that expired at or before cutoff
// and returns how many were removed.
func (s *Store) PruneFingerprints(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM fingerprints WHERE expires_at IS NOT NULL AND expires_at <= ?", cutoff.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// boolToInt converts a bool to an int for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
