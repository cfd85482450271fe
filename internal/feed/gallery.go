package feed

// Images extracts gallery items from posts.
//
// Post with multiple images becomes an album with first image as a thumbnail,
// post without images array falls back to its image URL, post without images is skipped.
func Images(posts []Post) []Image {
	images := make([]Image, 0, len(posts))

	for _, p := range posts {
		img := Image{
			Title:      p.Title,
			Alt:        p.Caption,
			UploadedAt: p.Date,
			Folder:     p.Platform,
			Author:     p.Author,
			Platform:   p.Platform,
			Content:    p.Content,
			Caption:    p.Caption,
		}

		if img.Alt == "" {
			img.Alt = p.Title
		}

		switch {
		case p.IsAlbum && len(p.Images) > 1:
			img.ID = p.ID + "-album"
			img.IsAlbum = true
			img.AlbumCount = len(p.Images)
			img.AlbumImages = make([]string, 0, len(p.Images))

			for _, u := range p.Images {
				img.AlbumImages = append(img.AlbumImages, DirectURL(u))
			}

			img.URL = img.AlbumImages[0]
		case len(p.Images) >= 1:
			img.ID = p.ID + "-single"
			img.URL = DirectURL(p.Images[0])
		case p.ImageURL != "":
			img.ID = p.ID + "-single"
			img.URL = DirectURL(p.ImageURL)
		default:
			continue
		}

		img.IsVideo = IsVideoURL(img.URL)
		images = append(images, img)
	}

	return images
}
