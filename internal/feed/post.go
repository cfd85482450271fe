// Package feed serves social media posts and gallery images through a stale-while-revalidate cache.
package feed

import (
	"fmt"
	"strings"
	"time"
)

// All selects any date, platform or folder.
const All = "all"

// DefaultAuthor is used for posts without author.
const DefaultAuthor = "leakurge DEMO"

// Platform is a source platform of a post.
type Platform string

// Known platforms.
const (
	Chamet Platform = "chamet"
	Tango  Platform = "tango"
	Viral  Platform = "viral"
	Other  Platform = "other"
)

// Post is a social media post.
type Post struct {
	ID       string    `json:"id" yaml:"id"`
	Title    string    `json:"title" yaml:"title"`
	Content  string    `json:"content" yaml:"content"`
	Platform Platform  `json:"platform" yaml:"platform"`
	Author   string    `json:"author" yaml:"author"`
	Date     time.Time `json:"date" yaml:"date"`
	Likes    int       `json:"likes" yaml:"likes"`
	Comments int       `json:"comments" yaml:"comments"`
	Views    int       `json:"views" yaml:"views"`
	ImageURL string    `json:"imageUrl,omitempty" yaml:"image_url"`
	Images   []string  `json:"images,omitempty" yaml:"images"`
	Caption  string    `json:"caption,omitempty" yaml:"caption"`
	IsAlbum  bool      `json:"isAlbum" yaml:"is_album"`
}

// Image is a gallery item, a single image or an album of a post.
type Image struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Alt         string    `json:"alt"`
	UploadedAt  time.Time `json:"uploadedAt"`
	Folder      Platform  `json:"folder"`
	IsAlbum     bool      `json:"isAlbum"`
	IsVideo     bool      `json:"isVideo"`
	AlbumImages []string  `json:"albumImages,omitempty"`
	AlbumCount  int       `json:"albumCount,omitempty"`
	Author      string    `json:"author"`
	Platform    Platform  `json:"platform"`
	Content     string    `json:"content"`
	Caption     string    `json:"caption"`
}

// normalize fills defaults of a post received from a source.
func normalize(p Post, i int) Post {
	if p.Platform == "" {
		p.Platform = Other
	}

	if p.Author == "" {
		p.Author = DefaultAuthor
	}

	if p.ID == "" {
		p.ID = fmt.Sprintf("%s-%d-%d", p.Platform, p.Date.Unix(), i)
	}

	p.ImageURL = DirectURL(strings.TrimSpace(p.ImageURL))

	images := make([]string, 0, len(p.Images))

	for _, img := range p.Images {
		if img = DirectURL(strings.TrimSpace(img)); img != "" {
			images = append(images, img)
		}
	}

	if len(images) == 0 && p.ImageURL != "" {
		images = append(images, p.ImageURL)
	}

	p.Images = nil
	if len(images) > 0 {
		p.Images = images
	}

	p.IsAlbum = p.IsAlbum || len(p.Images) > 1

	return p
}
