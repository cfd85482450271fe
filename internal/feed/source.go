package feed

import (
	"context"
	"os"
	"path/filepath"

	"github.com/bool64/ctxd"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Source fetches all available posts.
type Source interface {
	Posts(ctx context.Context) ([]Post, error)
}

// SourceFunc implements Source with a function.
type SourceFunc func(ctx context.Context) ([]Post, error)

// Posts calls function.
func (f SourceFunc) Posts(ctx context.Context) ([]Post, error) {
	return f(ctx)
}

// FileSource reads posts from a YAML file.
//
//	posts:
//	  - title: Hello
//	    platform: chamet
//	    date: 2025-10-26T00:55:23Z
//	    images: [https://example.com/1.jpg]
type FileSource struct {
	Path string
}

type postsFile struct {
	Posts []Post `yaml:"posts"`
}

// Posts reads and decodes file.
func (s FileSource) Posts(ctx context.Context) ([]Post, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, ctxd.WrapError(ctx, err, "failed to read posts file", "path", s.Path)
	}

	var f postsFile

	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, ctxd.WrapError(ctx, err, "failed to decode posts file", "path", s.Path)
	}

	posts := make([]Post, 0, len(f.Posts))

	for i, p := range f.Posts {
		posts = append(posts, normalize(p, i))
	}

	return posts, nil
}

// Watch calls onChange when file is written, created or replaced, until context is done.
func (s FileSource) Watch(ctx context.Context, onChange func(ctx context.Context)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return ctxd.WrapError(ctx, err, "failed to create watcher")
	}

	defer func() {
		_ = w.Close() // nolint:errcheck
	}()

	// Watching directory to survive file replacement by editors.
	if err := w.Add(filepath.Dir(s.Path)); err != nil {
		return ctxd.WrapError(ctx, err, "failed to watch posts file", "path", s.Path)
	}

	name := filepath.Clean(s.Path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}

			return ctxd.WrapError(ctx, err, "failed to watch posts file", "path", s.Path)
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(ev.Name) != name {
				continue
			}

			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				onChange(ctx)
			}
		}
	}
}
