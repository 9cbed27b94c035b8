package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/ibeckermayer/eventgraph/internal/graph"
	"github.com/ibeckermayer/eventgraph/internal/pipeline"
)

// Store handles all database operations
type Store struct {
	db *sql.DB
}

// New creates a new Store with SQLite backend
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		event TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		input INTEGER NOT NULL,
		kept INTEGER NOT NULL,
		warnings INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS posts (
		run_id TEXT NOT NULL REFERENCES runs(id),
		position INTEGER NOT NULL,
		post_id TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		actor_handle TEXT,
		created_at DATETIME NOT NULL,
		body_text TEXT NOT NULL,
		application TEXT,
		is_reply BOOLEAN NOT NULL,
		is_reshare BOOLEAN NOT NULL,
		reshared_actor_id TEXT,
		reshared_actor_handle TEXT,
		reshared_actor_name TEXT,
		PRIMARY KEY (run_id, position)
	);

	CREATE TABLE IF NOT EXISTS hashtags (
		run_id TEXT NOT NULL REFERENCES runs(id),
		rank INTEGER NOT NULL,
		tag TEXT NOT NULL,
		count INTEGER NOT NULL,
		PRIMARY KEY (run_id, tag)
	);

	CREATE TABLE IF NOT EXISTS edges (
		run_id TEXT NOT NULL REFERENCES runs(id),
		kind TEXT NOT NULL,
		position INTEGER NOT NULL,
		source TEXT NOT NULL,
		target TEXT NOT NULL,
		PRIMARY KEY (run_id, kind, position)
	);

	CREATE INDEX IF NOT EXISTS idx_posts_post_id ON posts(post_id);
	CREATE INDEX IF NOT EXISTS idx_hashtags_rank ON hashtags(run_id, rank);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveRun writes a run and everything it derived. Either all rows land or
// none do.
func (s *Store) SaveRun(ctx context.Context, event string, res *pipeline.Result) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, event, started_at, finished_at, input, kept, warnings)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, res.RunID, event, res.StartedAt, res.FinishedAt, res.Counts.Input, res.Counts.Kept, len(res.Warnings))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	postStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO posts (run_id, position, post_id, actor_id, actor_handle, created_at, body_text,
			application, is_reply, is_reshare, reshared_actor_id, reshared_actor_handle, reshared_actor_name)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare posts: %w", err)
	}
	defer postStmt.Close()

	for i, p := range res.Posts {
		_, err = postStmt.ExecContext(ctx, res.RunID, i, p.PostID.String, p.ActorID.String, p.ActorHandle,
			p.CreatedAt, p.BodyText.String, p.Application, p.IsReply(), p.IsReshare,
			p.ResharedActorID, p.ResharedActorHandle, p.ResharedActorName)
		if err != nil {
			return fmt.Errorf("insert post %s: %w", p.PostID.String, err)
		}
	}

	for i, f := range res.Hashtags.Ranked {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO hashtags (run_id, rank, tag, count) VALUES (?, ?, ?, ?)
		`, res.RunID, i+1, f.Tag, f.Count)
		if err != nil {
			return fmt.Errorf("insert hashtag %s: %w", f.Tag, err)
		}
	}

	for _, kind := range graph.Kinds {
		g := res.Graphs.Get(kind)
		if g == nil {
			continue
		}
		for i, e := range g.Edges() {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO edges (run_id, kind, position, source, target) VALUES (?, ?, ?, ?, ?)
			`, res.RunID, string(kind), i, e.A, e.B)
			if err != nil {
				return fmt.Errorf("insert %s edge: %w", kind, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetRun returns the stored run with the given id
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	var r Run
	err := s.db.QueryRowContext(ctx, `
		SELECT id, event, started_at, finished_at, input, kept, warnings FROM runs WHERE id = ?
	`, id).Scan(&r.ID, &r.Event, &r.StartedAt, &r.FinishedAt, &r.Input, &r.Kept, &r.Warnings)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CountPosts returns how many posts a run stored
func (s *Store) CountPosts(ctx context.Context, runID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts WHERE run_id = ?`, runID).Scan(&n)
	return n, err
}

// GetPosts returns the stored posts of a run in table order
func (s *Store) GetPosts(ctx context.Context, runID string) ([]PostRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, position, post_id, actor_id, actor_handle, created_at, body_text,
			application, is_reply, is_reshare, reshared_actor_handle
		FROM posts
		WHERE run_id = ?
		ORDER BY position
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []PostRow
	for rows.Next() {
		var p PostRow
		err := rows.Scan(&p.RunID, &p.Position, &p.PostID, &p.ActorID, &p.ActorHandle, &p.CreatedAt,
			&p.BodyText, &p.Application, &p.IsReply, &p.IsReshare, &p.ResharedActorHandle)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// EdgesFor returns the edges of one graph of a run in insertion order
func (s *Store) EdgesFor(ctx context.Context, runID string, kind graph.Kind) ([]EdgeRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, source, target FROM edges
		WHERE run_id = ? AND kind = ?
		ORDER BY position
	`, runID, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []EdgeRow
	for rows.Next() {
		var e EdgeRow
		if err := rows.Scan(&e.Kind, &e.Source, &e.Target); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// TopHashtags returns the n highest ranked hashtags of a run
func (s *Store) TopHashtags(ctx context.Context, runID string, n int) ([]HashtagCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rank, tag, count FROM hashtags
		WHERE run_id = ?
		ORDER BY rank
		LIMIT ?
	`, runID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []HashtagCount
	for rows.Next() {
		var h HashtagCount
		if err := rows.Scan(&h.Rank, &h.Tag, &h.Count); err != nil {
			return nil, err
		}
		tags = append(tags, h)
	}
	return tags, rows.Err()
}
