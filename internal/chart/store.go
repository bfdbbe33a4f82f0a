package chart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"hypecast/internal/media"
)

const schema = `
CREATE TABLE IF NOT EXISTS charts (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS chart_songs (
	chart_id INTEGER NOT NULL REFERENCES charts(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	song_id  TEXT NOT NULL,
	artist   TEXT NOT NULL DEFAULT '',
	title    TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (chart_id, position)
);`

// Store persists charts in a SQLite database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (and if needed creates) the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating store dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening chart store: %w", err)
	}
	// SQLite serialises writers; one connection keeps pragmas in effect.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{"PRAGMA foreign_keys = ON", schema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("initialising chart store: %w", err)
		}
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save records a new chart and returns it with its assigned id and time.
func (s *Store) Save(ctx context.Context, songs map[int]media.Song) (*Chart, error) {
	if err := validate(songs); err != nil {
		return nil, err
	}

	c := &Chart{CreatedAt: s.now().UTC().Truncate(time.Second), Songs: make(map[int]media.Song, len(songs))}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `INSERT INTO charts (created_at) VALUES (?)`, c.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("inserting chart: %w", err)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("reading chart id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO chart_songs (chart_id, position, song_id, artist, title) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for pos, song := range songs {
		if _, err := stmt.ExecContext(ctx, c.ID, pos, song.ID, song.Artist, song.Title); err != nil {
			return nil, fmt.Errorf("inserting position %d: %w", pos, err)
		}
		c.Songs[pos] = song
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing chart: %w", err)
	}
	return c, nil
}

// Get loads the chart with the given id.
func (s *Store) Get(ctx context.Context, id int64) (*Chart, error) {
	var created string
	err := s.db.QueryRowContext(ctx, `SELECT created_at FROM charts WHERE id = ?`, id).Scan(&created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("chart %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading chart %d: %w", id, err)
	}

	c := &Chart{ID: id, Songs: make(map[int]media.Song)}
	if c.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
		return nil, fmt.Errorf("chart %d: parsing created_at: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT position, song_id, artist, title FROM chart_songs WHERE chart_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("loading songs for chart %d: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var pos int
		var song media.Song
		if err := rows.Scan(&pos, &song.ID, &song.Artist, &song.Title); err != nil {
			return nil, fmt.Errorf("scanning song: %w", err)
		}
		c.Songs[pos] = song
	}
	return c, rows.Err()
}

// Latest returns the most recently saved chart.
func (s *Store) Latest(ctx context.Context) (*Chart, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM charts ORDER BY id DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding latest chart: %w", err)
	}
	return s.Get(ctx, id)
}

// List summarises every chart, newest first.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.created_at, COUNT(cs.position)
		FROM charts c LEFT JOIN chart_songs cs ON cs.chart_id = c.id
		GROUP BY c.id ORDER BY c.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing charts: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var created string
		if err := rows.Scan(&sum.ID, &created, &sum.Songs); err != nil {
			return nil, fmt.Errorf("scanning chart: %w", err)
		}
		if sum.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
			return nil, fmt.Errorf("chart %d: parsing created_at: %w", sum.ID, err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes a chart and its songs.
func (s *Store) Delete(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chart_songs WHERE chart_id = ?`, id); err != nil {
		return fmt.Errorf("deleting songs of chart %d: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM charts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting chart %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting chart %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("chart %d: %w", id, ErrNotFound)
	}
	return tx.Commit()
}
