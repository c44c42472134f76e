package symbols

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"relist/internal/demangle"
	"relist/internal/tokens"
)

// DefaultCacheSize is the number of demangled names kept by default.
const DefaultCacheSize = 4096

type demangled struct {
	toks   *tokens.Stream
	scheme demangle.Scheme
}

var (
	cacheMu sync.RWMutex
	cache   *lru.Cache[string, demangled]
)

func init() {
	cache, _ = lru.New[string, demangled](DefaultCacheSize)
}

// SetCacheSize replaces the demangle cache with one holding size
// entries. A size of zero or less disables caching.
func SetCacheSize(size int) error {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	if size <= 0 {
		cache = nil
		return nil
	}
	c, err := lru.New[string, demangled](size)
	if err != nil {
		return err
	}
	cache = c
	return nil
}

// CacheLen returns the number of cached names.
func CacheLen() int {
	cacheMu.RLock()
	defer cacheMu.RUnlock()
	if cache == nil {
		return 0
	}
	return cache.Len()
}

// Demangle runs name through the demangling chain, consulting the
// cache first. The returned stream is shared and must not be modified.
func Demangle(name string) (*tokens.Stream, demangle.Scheme) {
	cacheMu.RLock()
	c := cache
	cacheMu.RUnlock()

	if c != nil {
		if d, ok := c.Get(name); ok {
			return d.toks, d.scheme
		}
	}

	toks, scheme := demangle.Symbol(name)
	if c != nil {
		c.Add(name, demangled{toks: toks, scheme: scheme})
	}
	return toks, scheme
}
