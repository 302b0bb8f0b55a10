package classify

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the memo used by NewCached when size <= 0.
const DefaultCacheSize = 1024

type cacheKey struct {
	sale   bool
	vendor string
	item   string
}

// Cached memoizes classifications keyed by kind, vendor and item.
type Cached struct {
	inner *Classifier
	memo  *lru.Cache[cacheKey, Result]
}

// NewCached wraps c with an LRU memo of the given size.
func NewCached(c *Classifier, size int) (*Cached, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	memo, err := lru.New[cacheKey, Result](size)
	if err != nil {
		return nil, err
	}
	return &Cached{inner: c, memo: memo}, nil
}

// Sale classifies a sale, consulting the memo first.
func (c *Cached) Sale(vendor, item string) Result {
	key := cacheKey{sale: true, vendor: vendor, item: item}
	if res, ok := c.memo.Get(key); ok {
		return res
	}
	res := c.inner.Sale(vendor, item)
	c.memo.Add(key, res)
	return res
}

// Purchase classifies a purchase, consulting the memo first.
func (c *Cached) Purchase(item string) Result {
	key := cacheKey{item: item}
	if res, ok := c.memo.Get(key); ok {
		return res
	}
	res := c.inner.Purchase(item)
	c.memo.Add(key, res)
	return res
}

// Len reports the number of memoized entries.
func (c *Cached) Len() int {
	return c.memo.Len()
}

// Version reports the wrapped rule table's version.
func (c *Cached) Version() string {
	return c.inner.Version()
}
