package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Get for unknown ids.
var ErrNotFound = errors.New("strip not found")

// Uploader copies a saved strip off the booth.
type Uploader interface {
	Upload(ctx context.Context, key string, jpeg []byte) (location string, err error)
}

// Entry is a freshly rendered strip.
type Entry struct {
	Session string
	JPEG    []byte
	Width   int
	Height  int
	Photos  int
}

// Record is one archived strip.
type Record struct {
	ID        string    `json:"id"`
	Session   string    `json:"session"`
	Path      string    `json:"path"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Photos    int       `json:"photos"`
	Bytes     int64     `json:"bytes"`
	Remote    string    `json:"remote,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Archive stores strips as JPEG files indexed in SQLite.
type Archive struct {
	db  *sql.DB
	dir string
	up  Uploader
	now func() time.Time
}

// Open creates dir if needed and opens (or creates) the index database.
// A relative dbPath is resolved inside dir. up may be nil.
func Open(dir, dbPath string, up Uploader) (*Archive, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("archive dir: %w", err)
	}
	if dbPath == "" {
		dbPath = "strips.db"
	}
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(dir, dbPath)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	a := &Archive{db: db, dir: dir, up: up, now: time.Now}
	if err := a.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("archive schema: %w", err)
	}
	debug.Verbose("Archive: %s (index %s)", dir, dbPath)
	return a, nil
}

func (a *Archive) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS strips (
            id TEXT PRIMARY KEY,
            session TEXT NOT NULL,
            path TEXT NOT NULL,
            width INTEGER NOT NULL,
            height INTEGER NOT NULL,
            photos INTEGER NOT NULL,
            bytes INTEGER NOT NULL,
            remote TEXT NOT NULL DEFAULT '',
            created_at TEXT NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_strips_created_at ON strips(created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := a.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the index.
func (a *Archive) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

// Save writes the JPEG, uploads it when an uploader is set and indexes it.
// An upload failure is logged and the strip is kept locally only.
func (a *Archive) Save(ctx context.Context, e Entry) (Record, error) {
	if len(e.JPEG) == 0 {
		return Record{}, errors.New("archive: empty strip")
	}
	r := Record{
		ID:        uuid.NewString(),
		Session:   e.Session,
		Width:     e.Width,
		Height:    e.Height,
		Photos:    e.Photos,
		Bytes:     int64(len(e.JPEG)),
		CreatedAt: a.now().UTC(),
	}
	name := r.CreatedAt.Format("20060102-150405") + "-" + r.ID[:8] + ".jpeg"
	r.Path = filepath.Join(a.dir, name)
	if err := os.WriteFile(r.Path, e.JPEG, 0o644); err != nil {
		return Record{}, fmt.Errorf("write strip: %w", err)
	}

	if a.up != nil {
		loc, err := a.up.Upload(ctx, name, e.JPEG)
		if err != nil {
			debug.Error(fmt.Errorf("upload %s: %w", name, err))
		} else {
			r.Remote = loc
		}
	}

	_, err := a.db.ExecContext(ctx,
		`INSERT INTO strips (id, session, path, width, height, photos, bytes, remote, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Session, r.Path, r.Width, r.Height, r.Photos, r.Bytes, r.Remote,
		r.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return Record{}, fmt.Errorf("index strip: %w", err)
	}
	debug.Info("Archive: saved %s (%s)", name, humanize.Bytes(uint64(r.Bytes)))
	return r, nil
}

const selectStrips = `SELECT id, session, path, width, height, photos, bytes, remote, created_at FROM strips`

// Recent returns up to limit strips, newest first.
func (a *Archive) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := a.db.QueryContext(ctx, selectStrips+` ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Get returns one strip by id.
func (a *Archive) Get(ctx context.Context, id string) (Record, error) {
	r, err := scan(a.db.QueryRowContext(ctx, selectStrips+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (Record, error) {
	var r Record
	var created string
	if err := s.Scan(&r.ID, &r.Session, &r.Path, &r.Width, &r.Height, &r.Photos, &r.Bytes, &r.Remote, &created); err != nil {
		return Record{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return Record{}, fmt.Errorf("strip %s: bad timestamp %q: %w", r.ID, created, err)
	}
	r.CreatedAt = t
	return r, nil
}
