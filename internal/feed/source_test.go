package feed_test

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veartutop/feedcache/internal/feed"
)

const postsYAML = `posts:
  - id: p1
    title: Hello
    platform: chamet
    author: Alice
    date: 2025-10-26T00:55:23Z
    likes: 10
    images:
      - https://drive.google.com/file/d/abc/view
      - https://example.com/2.jpg
  - title: World
    date: 2025-10-25T10:00:00Z
    image_url: https://example.com/3.jpg
`

func TestFileSource_Posts(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "posts.yaml")
	require.NoError(t, os.WriteFile(fn, []byte(postsYAML), 0o600))

	posts, err := feed.FileSource{Path: fn}.Posts(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 2)

	assert.Equal(t, "p1", posts[0].ID)
	assert.Equal(t, feed.Chamet, posts[0].Platform)
	assert.Equal(t, "Alice", posts[0].Author)
	assert.Equal(t, 10, posts[0].Likes)
	assert.True(t, posts[0].IsAlbum)
	assert.Equal(t, []string{"https://drive.google.com/uc?export=view&id=abc", "https://example.com/2.jpg"}, posts[0].Images)
	assert.True(t, time.Date(2025, 10, 26, 0, 55, 23, 0, time.UTC).Equal(posts[0].Date))

	assert.Equal(t, feed.Other, posts[1].Platform)
	assert.Equal(t, feed.DefaultAuthor, posts[1].Author)
	assert.NotEmpty(t, posts[1].ID)
	assert.Equal(t, []string{"https://example.com/3.jpg"}, posts[1].Images)
	assert.False(t, posts[1].IsAlbum)
}

func TestFileSource_Posts_failed(t *testing.T) {
	dir := t.TempDir()

	_, err := feed.FileSource{Path: filepath.Join(dir, "missing.yaml")}.Posts(context.Background())
	assert.Error(t, err)

	fn := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(fn, []byte("posts: {"), 0o600))

	_, err = feed.FileSource{Path: fn}.Posts(context.Background())
	assert.Error(t, err)
}

func TestFileSource_Watch(t *testing.T) {
	dir := t.TempDir()
	fn := filepath.Join(dir, "posts.yaml")
	require.NoError(t, os.WriteFile(fn, []byte(postsYAML), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	changes := int64(0)
	done := make(chan error, 1)

	go func() {
		done <- feed.FileSource{Path: fn}.Watch(ctx, func(ctx context.Context) {
			atomic.AddInt64(&changes, 1)
		})
	}()

	// Unrelated file in the same directory is ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("a: b"), 0o600))

	assert.Eventually(t, func() bool {
		// Watcher may not be registered yet, so the file is rewritten on every check.
		require.NoError(t, os.WriteFile(fn, []byte(postsYAML), 0o600))

		return atomic.LoadInt64(&changes) > 0
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
