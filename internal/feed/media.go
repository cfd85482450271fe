package feed

import (
	"regexp"
	"strings"
)

var driveFileID = regexp.MustCompile(`/file/d/([a-zA-Z0-9_-]+)`)

// DirectURL converts Google Drive sharing link to a direct view link, other links are returned as is.
func DirectURL(u string) string {
	if !strings.Contains(u, "drive.google.com") {
		return u
	}

	m := driveFileID.FindStringSubmatch(u)
	if m == nil {
		return u
	}

	return "https://drive.google.com/uc?export=view&id=" + m[1]
}

var (
	videoExtensions = []string{".mp4", ".webm", ".ogg", ".mov", ".avi", ".mkv", ".m4v", ".3gp", ".flv", ".wmv"}
	videoMimes      = []string{"video/", "video%2f"}
)

// IsVideoURL checks if URL is likely to point to a video file.
func IsVideoURL(u string) bool {
	if u == "" {
		return false
	}

	u = strings.ToLower(u)

	for _, ext := range videoExtensions {
		if strings.Contains(u, ext) {
			return true
		}
	}

	for _, m := range videoMimes {
		if strings.Contains(u, m) {
			return true
		}
	}

	return false
}
