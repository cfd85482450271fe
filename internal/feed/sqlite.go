package feed

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/bool64/ctxd"
	_ "github.com/mattn/go-sqlite3" // SQLite driver.
)

// SQLiteSource reads posts from a SQLite table.
//
// Images are stored as a JSON array, dates as RFC3339 with nanoseconds in UTC.
type SQLiteSource struct {
	db *sql.DB
}

// OpenSQLite opens database and creates posts table if it does not exist.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, ctxd.WrapError(ctx, err, "failed to open database")
	}

	_, err = db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS posts (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL DEFAULT '',
		platform TEXT NOT NULL DEFAULT '',
		author TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL DEFAULT '',
		likes INTEGER NOT NULL DEFAULT 0,
		comments INTEGER NOT NULL DEFAULT 0,
		views INTEGER NOT NULL DEFAULT 0,
		image_url TEXT NOT NULL DEFAULT '',
		images TEXT NOT NULL DEFAULT '',
		caption TEXT NOT NULL DEFAULT '',
		is_album INTEGER NOT NULL DEFAULT 0
	)`)
	if err != nil {
		_ = db.Close() // nolint:errcheck

		return nil, ctxd.WrapError(ctx, err, "failed to create posts table")
	}

	return &SQLiteSource{db: db}, nil
}

// Add inserts or replaces a post.
func (s *SQLiteSource) Add(ctx context.Context, p Post) error {
	images, err := json.Marshal(p.Images)
	if err != nil {
		return ctxd.WrapError(ctx, err, "failed to encode post images", "id", p.ID)
	}

	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO posts
		(id, title, content, platform, author, date, likes, comments, views, image_url, images, caption, is_album)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Content, string(p.Platform), p.Author, p.Date.UTC().Format(time.RFC3339Nano),
		p.Likes, p.Comments, p.Views, p.ImageURL, string(images), p.Caption, p.IsAlbum,
	)
	if err != nil {
		return ctxd.WrapError(ctx, err, "failed to insert post", "id", p.ID)
	}

	return nil
}

// Posts selects all posts.
func (s *SQLiteSource) Posts(ctx context.Context) ([]Post, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		id, title, content, platform, author, date, likes, comments, views, image_url, images, caption, is_album
		FROM posts`)
	if err != nil {
		return nil, ctxd.WrapError(ctx, err, "failed to query posts")
	}

	defer func() {
		_ = rows.Close() // nolint:errcheck
	}()

	var posts []Post

	for rows.Next() {
		var (
			p              Post
			platform, date string
			images         string
		)

		err := rows.Scan(&p.ID, &p.Title, &p.Content, &platform, &p.Author, &date,
			&p.Likes, &p.Comments, &p.Views, &p.ImageURL, &images, &p.Caption, &p.IsAlbum)
		if err != nil {
			return nil, ctxd.WrapError(ctx, err, "failed to scan post")
		}

		p.Platform = Platform(platform)

		if date != "" {
			if p.Date, err = time.Parse(time.RFC3339Nano, date); err != nil {
				return nil, ctxd.WrapError(ctx, err, "failed to parse post date", "id", p.ID)
			}
		}

		if images != "" {
			if err := json.Unmarshal([]byte(images), &p.Images); err != nil {
				return nil, ctxd.WrapError(ctx, err, "failed to decode post images", "id", p.ID)
			}
		}

		posts = append(posts, normalize(p, len(posts)))
	}

	if err := rows.Err(); err != nil {
		return nil, ctxd.WrapError(ctx, err, "failed to iterate posts")
	}

	return posts, nil
}

// Close closes database.
func (s *SQLiteSource) Close() error {
	return s.db.Close()
}
