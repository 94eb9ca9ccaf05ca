package memory

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// FileHashCache remembers which upload a dedup key resolved to.
type FileHashCache struct {
	cache *cache.Cache
}

func NewFileHashCache(ttl time.Duration) *FileHashCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &FileHashCache{
		cache: cache.New(ttl, 10*time.Minute),
	}
}

func (r *FileHashCache) Save(key string, fileId uuid.UUID) {
	r.cache.Set(key, fileId, cache.DefaultExpiration)
}

func (r *FileHashCache) Get(key string) (uuid.UUID, bool) {
	if x, found := r.cache.Get(key); found {
		return x.(uuid.UUID), true
	}
	return uuid.Nil, false
}

func (r *FileHashCache) Delete(key string) {
	r.cache.Delete(key)
}
