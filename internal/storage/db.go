package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type DB struct {
	conn *sql.DB
}

// ProbeRecord is one cached probe outcome. Successful probes carry Format and
// dimensions; definitive failures carry ErrorKind instead.
type ProbeRecord struct {
	URL        string
	Format     string
	Width      int
	Height     int
	ErrorKind  string
	BytesRead  int
	CreatedAt  int64
	AccessedAt int64
	ExpiresAt  int64
	Hits       int64
}

// Failed reports whether the record caches a failure.
func (r *ProbeRecord) Failed() bool { return r.ErrorKind != "" }

func NewDB(dataDir string) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "fastsize.db")
	conn, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS probes (
		url TEXT PRIMARY KEY,
		format TEXT NOT NULL DEFAULT '',
		width INTEGER NOT NULL DEFAULT 0,
		height INTEGER NOT NULL DEFAULT 0,
		error_kind TEXT NOT NULL DEFAULT '',
		bytes_read INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		accessed_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL,
		hits INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_probes_expires ON probes(expires_at);
	CREATE INDEX IF NOT EXISTS idx_probes_accessed ON probes(accessed_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

const probeColumns = `url, format, width, height, error_kind, bytes_read, created_at, accessed_at, expires_at, hits`

func scanProbe(row interface{ Scan(...any) error }) (*ProbeRecord, error) {
	rec := &ProbeRecord{}
	err := row.Scan(&rec.URL, &rec.Format, &rec.Width, &rec.Height, &rec.ErrorKind,
		&rec.BytesRead, &rec.CreatedAt, &rec.AccessedAt, &rec.ExpiresAt, &rec.Hits)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// GetProbe returns the unexpired record for url and counts the hit, or nil
// when there is none.
func (db *DB) GetProbe(url string, now time.Time) (*ProbeRecord, error) {
	rec, err := scanProbe(db.conn.QueryRow(`
		SELECT `+probeColumns+`
		FROM probes WHERE url = ? AND expires_at > ?`, url, now.Unix()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if _, err := db.conn.Exec(`UPDATE probes SET accessed_at = ?, hits = hits + 1 WHERE url = ?`, now.Unix(), url); err != nil {
		return nil, fmt.Errorf("touch probe: %w", err)
	}
	rec.AccessedAt = now.Unix()
	rec.Hits++
	return rec, nil
}

// PutProbe inserts or replaces the record for rec.URL. The hit counter of an
// existing row is kept.
func (db *DB) PutProbe(rec *ProbeRecord) error {
	_, err := db.conn.Exec(`
		INSERT INTO probes (url, format, width, height, error_kind, bytes_read, created_at, accessed_at, expires_at, hits)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			format = excluded.format,
			width = excluded.width,
			height = excluded.height,
			error_kind = excluded.error_kind,
			bytes_read = excluded.bytes_read,
			created_at = excluded.created_at,
			accessed_at = excluded.accessed_at,
			expires_at = excluded.expires_at`,
		rec.URL, rec.Format, rec.Width, rec.Height, rec.ErrorKind, rec.BytesRead,
		rec.CreatedAt, rec.AccessedAt, rec.ExpiresAt, rec.Hits)
	return err
}

// DeleteProbe removes the record for url and reports whether one existed.
func (db *DB) DeleteProbe(url string) (bool, error) {
	res, err := db.conn.Exec(`DELETE FROM probes WHERE url = ?`, url)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (db *DB) DeleteExpired(now time.Time) (int64, error) {
	res, err := db.conn.Exec(`DELETE FROM probes WHERE expires_at <= ?`, now.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListProbes returns records ordered by most recent access.
func (db *DB) ListProbes(limit, offset int) ([]*ProbeRecord, error) {
	rows, err := db.conn.Query(`
		SELECT `+probeColumns+`
		FROM probes
		ORDER BY accessed_at DESC, url
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*ProbeRecord
	for rows.Next() {
		rec, err := scanProbe(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (db *DB) Close() error {
	return db.conn.Close()
}

type Stats struct {
	TotalEntries int64            `json:"total_entries"`
	Successes    int64            `json:"successes"`
	Failures     int64            `json:"failures"`
	TotalHits    int64            `json:"total_hits"`
	BytesRead    int64            `json:"bytes_read"`
	ByFormat     map[string]int64 `json:"by_format"`
}

func (db *DB) GetStats() (*Stats, error) {
	stats := Stats{ByFormat: make(map[string]int64)}

	if err := db.conn.QueryRow(`
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN error_kind = '' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(hits), 0),
			COALESCE(SUM(bytes_read), 0)
		FROM probes`).Scan(&stats.TotalEntries, &stats.Successes, &stats.TotalHits, &stats.BytesRead); err != nil {
		return nil, err
	}
	stats.Failures = stats.TotalEntries - stats.Successes

	rows, err := db.conn.Query(`SELECT format, COUNT(*) FROM probes WHERE error_kind = '' GROUP BY format`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var format string
		var n int64
		if err := rows.Scan(&format, &n); err != nil {
			return nil, err
		}
		stats.ByFormat[format] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &stats, nil
}
