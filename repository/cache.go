package repository

import (
	"dag-node/models"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
)

// metadataCache keeps recently decoded metadata. Metadata is written once and
// never changes, so entries never need invalidation.
type metadataCache struct {
	entries *lru.Cache
}

// newMetadataCache returns a cache holding size entries, or a disabled cache when size <= 0.
func newMetadataCache(size int) (*metadataCache, error) {
	if size <= 0 {
		return &metadataCache{}, nil
	}
	entries, err := lru.New(size)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create metadata cache")
	}
	return &metadataCache{entries: entries}, nil
}

func (c *metadataCache) get(id string) (*models.BlockMetadata, bool) {
	if c.entries == nil {
		return nil, false
	}
	v, ok := c.entries.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*models.BlockMetadata).Clone(), true
}

func (c *metadataCache) add(id string, metadata *models.BlockMetadata) {
	if c.entries == nil {
		return
	}
	c.entries.Add(id, metadata.Clone())
}

func (c *metadataCache) contains(id string) bool {
	return c.entries != nil && c.entries.Contains(id)
}
