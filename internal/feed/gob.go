package feed

import (
	"sync"

	cache "github.com/veartutop/feedcache"
)

var gobOnce sync.Once

// GobRegister enables dump and restore of cached posts and gallery images.
func GobRegister() {
	gobOnce.Do(func() {
		cache.GobRegister([]Post{}, []Image{})
	})
}
