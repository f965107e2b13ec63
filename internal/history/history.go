// Package history keeps a SQLite log of commit reports.
package history

import (
	"bytes"
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"lukechampine.com/blake3"
	_ "modernc.org/sqlite"

	"github.com/dusk-indust/blueprint/internal/reconcile"
)

//go:embed schema.sql
var schemaSQL string

var (
	ErrNotFound = errors.New("history: commit not found")
	ErrCorrupt  = errors.New("history: report digest mismatch")
)

// Entry is the listing view of a recorded commit.
type Entry struct {
	ID        string    `json:"commitId"`
	CreatedAt time.Time `json:"createdAt"`
	Summary   string    `json:"summary"`
	Applied   bool      `json:"applied"`
	DryRun    bool      `json:"dryRun"`
	Files     int       `json:"files"`
	Warnings  int       `json:"warnings"`
}

// Store is a commit log backed by a single SQLite file. Reports are stored
// as zstd-compressed JSON with a blake3 digest of the uncompressed bytes.
type Store struct {
	mu   sync.Mutex
	conn *sql.DB
	now  func() time.Time

	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Open opens or creates the log at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("history: create dir: %w", err)
		}
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open sqlite: %w", err)
	}
	// One writer; the mutex serializes the rest.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(`PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;`); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: pragmas: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		conn.Close()
		return nil, fmt.Errorf("history: zstd decoder: %w", err)
	}
	return &Store{conn: conn, now: time.Now, enc: enc, dec: dec}, nil
}

// Close releases the database and codecs.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dec.Close()
	if err := s.enc.Close(); err != nil {
		s.conn.Close()
		return fmt.Errorf("history: close encoder: %w", err)
	}
	return s.conn.Close()
}

// Record appends a commit report. Recording the same commit id twice is an
// error.
func (s *Store) Record(ctx context.Context, resp *reconcile.Response) error {
	if resp == nil || resp.CommitID == "" {
		return errors.New("history: report has no commit id")
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("history: encode report: %w", err)
	}
	digest := blake3.Sum256(raw)

	s.mu.Lock()
	defer s.mu.Unlock()
	blob := s.enc.EncodeAll(raw, nil)

	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO commits (id, created_at, summary, applied, dry_run, files, warnings, digest, report)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		resp.CommitID, s.now().UnixMilli(), resp.Summary,
		resp.Applied, resp.DryRun, len(resp.ChangedFiles), len(resp.Warnings),
		digest[:], blob,
	)
	if err != nil {
		return fmt.Errorf("history: insert %s: %w", resp.CommitID, err)
	}
	return nil
}

// List returns the most recent commits first. A limit of zero or less
// returns every commit.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, created_at, summary, applied, dry_run, files, warnings
		 FROM commits ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e  Entry
			ms int64
		)
		if err := rows.Scan(&e.ID, &ms, &e.Summary, &e.Applied, &e.DryRun, &e.Files, &e.Warnings); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		e.CreatedAt = time.UnixMilli(ms).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	return entries, nil
}

// Get returns the full report recorded for id.
func (s *Store) Get(ctx context.Context, id string) (*reconcile.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var digest, blob []byte
	err := s.conn.QueryRowContext(ctx,
		`SELECT digest, report FROM commits WHERE id = ?`, id,
	).Scan(&digest, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("history: get %s: %w", id, err)
	}

	raw, err := s.dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("history: decompress %s: %w", id, err)
	}
	sum := blake3.Sum256(raw)
	if !bytes.Equal(sum[:], digest) {
		return nil, fmt.Errorf("%w: %s", ErrCorrupt, id)
	}

	var resp reconcile.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("history: decode %s: %w", id, err)
	}
	return &resp, nil
}
