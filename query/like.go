package query

import (
	"regexp"
	"strings"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// DefaultPatternCacheSize is the number of compiled LIKE patterns kept per engine.
const DefaultPatternCacheSize = 1000

// PatternCache compiles LIKE patterns into regular expressions and keeps
// the most recently used ones. Concurrent requests for the same pattern
// share a single compilation.
type PatternCache struct {
	cache *lru.Cache[string, *regexp.Regexp]
	group singleflight.Group
}

// NewPatternCache creates a cache holding up to size patterns.
func NewPatternCache(size int) *PatternCache {
	if size <= 0 {
		size = DefaultPatternCacheSize
	}
	cache, _ := lru.New[string, *regexp.Regexp](size) // only fails for size <= 0
	return &PatternCache{cache: cache}
}

// Len returns the number of cached patterns.
func (c *PatternCache) Len() int {
	return c.cache.Len()
}

// Compile returns the case-insensitive, whole-string regular expression for
// a LIKE pattern. escape is empty or a single character.
func (c *PatternCache) Compile(pattern, escape string) (*regexp.Regexp, error) {
	key := escape + "\x00" + pattern
	if re, ok := c.cache.Get(key); ok {
		return re, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		if re, ok := c.cache.Get(key); ok {
			return re, nil
		}
		expr, err := TranslateLike(pattern, escape)
		if err != nil {
			return nil, err
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, newError(CodePattern, pattern, "invalid LIKE pattern: %v", err)
		}
		c.cache.Add(key, re)
		return re, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*regexp.Regexp), nil
}

// Match reports whether value matches the LIKE pattern.
func (c *PatternCache) Match(value, pattern, escape string) (bool, error) {
	re, err := c.Compile(pattern, escape)
	if err != nil {
		return false, err
	}
	return re.MatchString(value), nil
}

// TranslateLike rewrites a LIKE pattern as a regular expression.
//
// % matches any run of characters and _ any single character. [...] and
// [^...] are character sets. The escape character makes the following
// character literal; an escape at the end of the pattern is itself literal.
func TranslateLike(pattern, escape string) (string, error) {
	if utf8.RuneCountInString(escape) > 1 {
		return "", newError(CodePattern, escape, "ESCAPE must be a single character")
	}
	esc, _ := utf8.DecodeRuneInString(escape)
	hasEscape := escape != ""

	var b strings.Builder
	b.WriteString("(?is)^")
	runes := []rune(pattern)
	inSet := false
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if hasEscape && r == esc {
			if i+1 < len(runes) {
				i++
				r = runes[i]
			}
			writeLiteral(&b, r, inSet)
			continue
		}
		switch {
		case r == '[' && !inSet:
			inSet = true
			b.WriteByte('[')
			if i+1 < len(runes) && runes[i+1] == '^' {
				b.WriteByte('^')
				i++
			}
		case r == ']' && inSet:
			inSet = false
			b.WriteByte(']')
		case r == '-' && inSet:
			b.WriteByte('-')
		case r == '%' && !inSet:
			b.WriteString(".*")
		case r == '_' && !inSet:
			b.WriteByte('.')
		default:
			writeLiteral(&b, r, inSet)
		}
	}
	b.WriteByte('$')
	if inSet {
		return "", newError(CodePattern, pattern, "unterminated character set")
	}
	return b.String(), nil
}

func writeLiteral(b *strings.Builder, r rune, inSet bool) {
	if !inSet {
		b.WriteString(regexp.QuoteMeta(string(r)))
		return
	}
	switch r {
	case '\\', ']', '[', '^', '-':
		b.WriteByte('\\')
	}
	b.WriteRune(r)
}
