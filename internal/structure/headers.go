package structure

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// MaxHeaderNameLength bounds a sanitized header name before
	// deduplication suffixes are added.
	MaxHeaderNameLength = 64
	// DataHeaderName names array content and otherwise empty names.
	DataHeaderName = "data"
)

var (
	unsafeHeaderChars   = regexp.MustCompile(`[^A-Za-z0-9_]+`)
	repeatedUnderscores = regexp.MustCompile(`_{2,}`)
)

// GenerateHeaderNames assigns a header name to every node below the
// top-level types that does not have one yet. Names are unique among
// siblings. Calling it again changes nothing.
func (s *Structure) GenerateHeaderNames() {
	for pair := s.top.children.Oldest(); pair != nil; pair = pair.Next() {
		assignHeaderNames(pair.Value)
	}
}

func assignHeaderNames(parent *node) {
	used := make(map[string]struct{}, parent.children.Len())
	for pair := parent.children.Oldest(); pair != nil; pair = pair.Next() {
		if h := pair.Value.headerName; h != "" {
			used[h] = struct{}{}
		}
	}
	// array content claims "data" before named siblings are deduplicated
	if c, ok := parent.child(ArrayMarker); ok && c.headerName == "" {
		c.headerName = uniqueHeaderName(DataHeaderName, used)
		used[c.headerName] = struct{}{}
	}
	for pair := parent.children.Oldest(); pair != nil; pair = pair.Next() {
		c := pair.Value
		if c.headerName == "" {
			c.headerName = uniqueHeaderName(SafeHeaderName(pair.Key), used)
			used[c.headerName] = struct{}{}
		}
		assignHeaderNames(c)
	}
}

// SafeHeaderName reduces a property name to [A-Za-z0-9_], collapsing runs
// of underscores. Names longer than MaxHeaderNameLength keep their
// trailing whole words.
func SafeHeaderName(name string) string {
	s := unsafeHeaderChars.ReplaceAllString(name, "_")
	s = repeatedUnderscores.ReplaceAllString(s, "_")
	if len(s) > MaxHeaderNameLength {
		tail := s[len(s)-MaxHeaderNameLength:]
		if i := strings.IndexByte(tail[1:], '_'); i >= 0 {
			tail = tail[i+1:]
		}
		s = strings.TrimLeft(tail, "_")
	}
	if s == "" {
		return DataHeaderName
	}
	return s
}

func uniqueHeaderName(name string, used map[string]struct{}) string {
	if _, taken := used[name]; !taken {
		return name
	}
	for i := 0; ; i++ {
		candidate := fmt.Sprintf("%s_u%d", name, i)
		if _, taken := used[candidate]; !taken {
			return candidate
		}
	}
}
