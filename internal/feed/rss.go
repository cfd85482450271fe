package feed

import (
	"context"
	"strings"

	"github.com/bool64/ctxd"
	"github.com/mmcdole/gofeed"
)

// RSSSource reads posts from RSS or Atom feed.
type RSSSource struct {
	URL string

	// Platform is assigned to all posts of the feed, default Other.
	Platform Platform
}

// Posts fetches and parses feed.
func (s RSSSource) Posts(ctx context.Context) ([]Post, error) {
	f, err := gofeed.NewParser().ParseURLWithContext(s.URL, ctx)
	if err != nil {
		return nil, ctxd.WrapError(ctx, err, "failed to parse feed", "url", s.URL)
	}

	return s.posts(f), nil
}

func (s RSSSource) posts(f *gofeed.Feed) []Post {
	posts := make([]Post, 0, len(f.Items))

	for i, item := range f.Items {
		p := Post{
			ID:       item.GUID,
			Title:    item.Title,
			Content:  item.Description,
			Platform: s.Platform,
		}

		if p.ID == "" {
			p.ID = item.Link
		}

		if p.Content == "" {
			p.Content = item.Content
		}

		if item.Author != nil {
			p.Author = item.Author.Name
		}

		switch {
		case item.PublishedParsed != nil:
			p.Date = *item.PublishedParsed
		case item.UpdatedParsed != nil:
			p.Date = *item.UpdatedParsed
		}

		if item.Image != nil {
			p.ImageURL = item.Image.URL
		}

		for _, enc := range item.Enclosures {
			if strings.HasPrefix(enc.Type, "image/") || strings.HasPrefix(enc.Type, "video/") || IsVideoURL(enc.URL) {
				p.Images = append(p.Images, enc.URL)
			}
		}

		posts = append(posts, normalize(p, i))
	}

	return posts
}
