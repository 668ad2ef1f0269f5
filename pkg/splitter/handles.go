package splitter

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
)

// unitState is the accumulator for one grouping key. It outlives any open
// file: eviction closes the handle but the counters and part index persist,
// so a reopened key continues exactly where it stopped.
type unitState struct {
	key         string
	count       int64
	approxBytes int64
	partIndex   int
	opened      bool      // current part's file has been created
	handle      *appender // nil while no file is open
}

// handleCache bounds how many output files are open at once. Capacity
// eviction, explicit removal, and the final purge all funnel through one
// callback that closes the victim's handle before the entry is gone, so no
// writer can reach a half-evicted handle.
type handleCache struct {
	lru *lru.Cache[string, *unitState]
	log zerolog.Logger
}

func newHandleCache(capacity int, log zerolog.Logger) (*handleCache, error) {
	c := &handleCache{log: log}
	inner, err := lru.NewWithEvict(capacity, c.onEvict)
	if err != nil {
		return nil, err
	}
	c.lru = inner
	return c, nil
}

func (c *handleCache) onEvict(key string, st *unitState) {
	if st.handle == nil {
		return
	}
	path := st.handle.path
	err := st.handle.Close()
	st.handle = nil
	if err != nil {
		c.log.Error().Err(err).Str("key", key).Str("path", path).Msg("closing evicted output failed")
	} else {
		c.log.Debug().Str("key", key).Str("path", path).Msg("output handle evicted")
	}
}

// track registers a freshly opened state, evicting the least recently used
// entry when over capacity. The new entry is never its own victim.
func (c *handleCache) track(st *unitState) {
	c.lru.Add(st.key, st)
}

// touch refreshes recency for a key that already holds an open handle.
func (c *handleCache) touch(key string) {
	c.lru.Get(key)
}

// drop closes and forgets one key's handle.
func (c *handleCache) drop(key string) {
	c.lru.Remove(key)
}

// closeAll closes every handle still open.
func (c *handleCache) closeAll() {
	c.lru.Purge()
}

// openCount reports how many handles are currently open.
func (c *handleCache) openCount() int {
	return c.lru.Len()
}
