package feed

// PostsKey returns cache key of posts filtered by date and platform.
func PostsKey(date, platform string) string {
	return "posts-" + orAll(date) + "-" + orAll(platform)
}

// GalleryKey returns cache key of gallery images of a folder.
func GalleryKey(folder string) string {
	return "gallery-" + orAll(folder)
}

func orAll(s string) string {
	if s == "" {
		return All
	}

	return s
}
