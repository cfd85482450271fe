package feed

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bool64/ctxd"
	"github.com/swaggest/usecase/status"
	cache "github.com/veartutop/feedcache"
)

var dateLayouts = []string{"2006-01-02", "01/02/2006", time.RFC3339}

// ServiceConfig is optional configuration for NewService.
type ServiceConfig struct {
	// Logger collects messages with context.
	Logger ctxd.Logger

	// Location defines calendar day boundaries of date filter, default time.UTC.
	Location *time.Location
}

// PostsResult is a list of posts.
type PostsResult struct {
	Posts []Post

	// Cached is true if posts were served from cache.
	Cached bool

	// Stale is true if posts have expired and are being refreshed.
	Stale bool
}

// GalleryResult is a list of gallery images.
type GalleryResult struct {
	Images []Image
	Cached bool
	Stale  bool
}

// Service serves posts and gallery images.
type Service struct {
	source Source
	rv     *cache.Revalidator
	log    ctxd.Logger
	loc    *time.Location
}

// NewService creates Service.
//
// Use cache.NewRevalidator(cache.NoOp{}, ...) to serve uncached results.
func NewService(source Source, rv *cache.Revalidator, cfg ServiceConfig) *Service {
	s := &Service{
		source: source,
		rv:     rv,
		log:    cfg.Logger,
		loc:    cfg.Location,
	}

	if s.log == nil {
		s.log = ctxd.NoOpLogger{}
	}

	if s.loc == nil {
		s.loc = time.UTC
	}

	return s
}

// Posts returns newest first posts of a calendar date and platform, "all" or empty value disables filter.
func (s *Service) Posts(ctx context.Context, date, platform string) (PostsResult, error) {
	date, platform = orAll(date), orAll(platform)

	var day time.Time

	if date != All {
		d, err := s.parseDate(date)
		if err != nil {
			return PostsResult{}, err
		}

		day = d
	}

	res, err := s.rv.Get(ctx, PostsKey(date, platform), func(ctx context.Context) (interface{}, error) {
		posts, err := s.fetch(ctx)
		if err != nil {
			return nil, err
		}

		return s.filter(posts, day, platform), nil
	})
	if err != nil {
		return PostsResult{}, err
	}

	return PostsResult{Posts: res.Value.([]Post), Cached: res.Cached, Stale: res.Stale}, nil
}

// Gallery returns images of posts from a folder (platform), "all" or empty value disables filter.
func (s *Service) Gallery(ctx context.Context, folder string) (GalleryResult, error) {
	folder = orAll(folder)

	res, err := s.rv.Get(ctx, GalleryKey(folder), func(ctx context.Context) (interface{}, error) {
		posts, err := s.fetch(ctx)
		if err != nil {
			return nil, err
		}

		images := Images(posts)

		if folder == All {
			return images, nil
		}

		filtered := make([]Image, 0, len(images))

		for _, img := range images {
			if string(img.Folder) == folder {
				filtered = append(filtered, img)
			}
		}

		return filtered, nil
	})
	if err != nil {
		return GalleryResult{}, err
	}

	return GalleryResult{Images: res.Value.([]Image), Cached: res.Cached, Stale: res.Stale}, nil
}

func (s *Service) parseDate(date string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if d, err := time.ParseInLocation(layout, date, s.loc); err == nil {
			return d, nil
		}
	}

	return time.Time{}, status.Wrap(fmt.Errorf("invalid date: %q", date), status.InvalidArgument)
}

// fetch returns newest first posts from source.
func (s *Service) fetch(ctx context.Context) ([]Post, error) {
	start := time.Now()

	posts, err := s.source.Posts(ctx)
	if err != nil {
		return nil, status.Wrap(err, status.Unavailable)
	}

	posts = append([]Post(nil), posts...)

	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Date.After(posts[j].Date)
	})

	s.log.Debug(ctx, "fetched posts",
		"count", len(posts),
		"elapsed", time.Since(start).String())

	return posts, nil
}

func (s *Service) filter(posts []Post, day time.Time, platform string) []Post {
	filtered := make([]Post, 0, len(posts))

	for _, p := range posts {
		if platform != All && string(p.Platform) != platform {
			continue
		}

		if !day.IsZero() {
			y, m, d := p.Date.In(s.loc).Date()
			if y != day.Year() || m != day.Month() || d != day.Day() {
				continue
			}
		}

		filtered = append(filtered, p)
	}

	return filtered
}
