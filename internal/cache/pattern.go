package cache

import (
	"regexp"
	"strings"

	"github.com/dgraph-io/ristretto"
)

// patternCache memoises compiled invalidation patterns. Services invalidate
// the same handful of patterns on every mutation.
type patternCache struct {
	compiled *ristretto.Cache
}

func newPatternCache() *patternCache {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10000,
		MaxCost:     1000,
		BufferItems: 64,
	})
	if err != nil {
		// fall back to compiling every time
		return &patternCache{}
	}
	return &patternCache{compiled: c}
}

// compile returns the anchored regexp for a wildcard pattern, or nil if it
// cannot be compiled.
func (p *patternCache) compile(pattern string) *regexp.Regexp {
	if p.compiled != nil {
		if v, ok := p.compiled.Get(pattern); ok {
			if re, ok := v.(*regexp.Regexp); ok {
				return re
			}
		}
	}

	re, err := compilePattern(pattern)
	if err != nil {
		return nil
	}
	if p.compiled != nil {
		p.compiled.Set(pattern, re, 1)
	}
	return re
}

func (p *patternCache) close() {
	if p.compiled != nil {
		p.compiled.Close()
	}
}

// compilePattern escapes every regexp metacharacter and turns '*' into '.*'.
// The result must match the entire key.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	quoted := regexp.QuoteMeta(pattern)
	return regexp.Compile("^" + strings.ReplaceAll(quoted, `\*`, ".*") + "$")
}
