package cache

import (
	"container/list"
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// patternRegexCache memoizes compiled glob-derived regexes so repeated
// DeletePattern calls with the same pattern (e.g. a recurring
// invalidation rule) don't recompile it every time.
var patternRegexCache sync.Map

// MatchPattern reports whether key matches pattern. A trailing single
// "*" is treated as a fast prefix match; "*" alone matches everything;
// anything else containing "*" or "?" is compiled to an anchored regex
// (cached) via glob semantics: "*" -> any run of characters, "?" -> any
// single character.
func MatchPattern(pattern, key string) (bool, error) {
	if pattern == "" {
		return false, fmt.Errorf("pattern cannot be empty")
	}
	if pattern == key || pattern == "*" {
		return pattern == key || pattern == "*", nil
	}
	if strings.HasSuffix(pattern, "*") && !strings.Contains(pattern[:len(pattern)-1], "*") {
		return strings.HasPrefix(key, pattern[:len(pattern)-1]), nil
	}

	if !strings.ContainsAny(pattern, "*?") {
		// No wildcard: only the exact match above can succeed.
		return false, nil
	}
	regexPattern := globToRegex(pattern)

	cached, ok := patternRegexCache.Load(regexPattern)
	var re *regexp.Regexp
	if ok {
		re = cached.(*regexp.Regexp)
	} else {
		var err error
		re, err = regexp.Compile("^" + regexPattern + "$")
		if err != nil {
			return false, fmt.Errorf("invalid invalidation pattern: %w", err)
		}
		patternRegexCache.Store(regexPattern, re)
	}
	return re.MatchString(key), nil
}

func globToRegex(pattern string) string {
	var b strings.Builder
	b.Grow(len(pattern) * 2)
	for i := 0; i < len(pattern); i++ {
		switch ch := pattern[i]; ch {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		case '.', '+', '(', ')', '|', '[', ']', '{', '}', '^', '$', '\\':
			b.WriteByte('\\')
			b.WriteByte(ch)
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

// DeletePattern removes every key matching pattern (glob syntax, see
// MatchPattern) and returns the count removed. This is the general form
// of DeletePrefix, used where an invalidation rule needs to express more
// than "everything under this prefix" — e.g. "vault://tag/*/recent".
func (c *Cache) DeletePattern(pattern string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var toDelete []*list.Element
	for k, el := range c.items {
		match, err := MatchPattern(pattern, k)
		if err != nil {
			return 0, err
		}
		if match {
			toDelete = append(toDelete, el)
		}
	}
	for _, el := range toDelete {
		c.removeElement(el)
	}
	return len(toDelete), nil
}
