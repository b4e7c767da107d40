package routing

import (
	"fmt"
	"strings"
)

// Kind identifies how a Config resolves streams.
type Kind int

// Routing kinds.
const (
	KindNone Kind = iota
	KindSingle
	KindPatterns
	KindDynamic
)

// CatchAll is the pattern matching any path not matched otherwise.
const CatchAll = "*"

const prefixSuffix = "/*"

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindPatterns:
		return "patterns"
	case KindDynamic:
		return "dynamic"
	default:
		return "none"
	}
}

// ResolveFunc picks a stream for a request. Returning false means no stream.
type ResolveFunc func(*RequestView) (string, bool)

// Pattern maps a path pattern to a stream ID.
type Pattern struct {
	Pattern  string `yaml:"pattern" json:"pattern"`
	StreamID string `yaml:"streamId" json:"streamId"`
}

// Config is an immutable routing configuration.
type Config struct {
	kind     Kind
	streamID string
	patterns []Pattern
	exact    map[string]string
	resolve  ResolveFunc
}

// Single routes every request to streamID.
func Single(streamID string) *Config {
	return &Config{kind: KindSingle, streamID: streamID}
}

// Patterns routes by path pattern. The slice is copied; its order is the
// tie-breaking order for overlapping prefixes.
func Patterns(patterns ...Pattern) *Config {
	c := &Config{
		kind:     KindPatterns,
		patterns: make([]Pattern, len(patterns)),
		exact:    make(map[string]string, len(patterns)),
	}
	copy(c.patterns, patterns)

	for _, p := range c.patterns {
		// First declaration of a duplicate pattern wins.
		if _, exists := c.exact[p.Pattern]; !exists {
			c.exact[p.Pattern] = p.StreamID
		}
	}
	return c
}

// Dynamic routes with fn.
func Dynamic(fn ResolveFunc) *Config {
	return &Config{kind: KindDynamic, resolve: fn}
}

// FromOptions picks a Config from whichever options are set, with a
// resolve function taking precedence over patterns and patterns over a
// single stream ID. It returns nil when nothing is configured.
func FromOptions(streamID string, patterns []Pattern, fn ResolveFunc) *Config {
	switch {
	case fn != nil:
		return Dynamic(fn)
	case patterns != nil:
		return Patterns(patterns...)
	case streamID != "":
		return Single(streamID)
	default:
		return nil
	}
}

// Kind returns the configuration kind.
func (c *Config) Kind() Kind {
	if c == nil {
		return KindNone
	}
	return c.kind
}

// Resolve returns the stream for v, or false when the request should not
// be mirrored.
func (c *Config) Resolve(v *RequestView) (string, bool) {
	if c == nil {
		return "", false
	}

	switch c.kind {
	case KindDynamic:
		if c.resolve == nil {
			return "", false
		}
		return c.resolve(v)
	case KindPatterns:
		return c.resolvePattern(NormalizePath(v))
	case KindSingle:
		return c.streamID, true
	default:
		return "", false
	}
}

func (c *Config) resolvePattern(path string) (string, bool) {
	if id, ok := c.exact[path]; ok {
		return id, true
	}

	for _, p := range c.patterns {
		if p.Pattern == CatchAll || p.Pattern == path {
			continue
		}
		prefix, ok := strings.CutSuffix(p.Pattern, prefixSuffix)
		if !ok {
			continue
		}
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return p.StreamID, true
		}
	}

	if id, ok := c.exact[CatchAll]; ok {
		return id, true
	}
	return "", false
}

// DeadPatterns returns the patterns that can only ever match by exact
// equality yet cannot equal a normalized path, which is almost always a
// typo such as "api/*" or "/api*". They are kept, not rejected.
func (c *Config) DeadPatterns() []string {
	if c == nil || c.kind != KindPatterns {
		return nil
	}

	var dead []string
	for _, p := range c.patterns {
		if p.Pattern == CatchAll {
			continue
		}
		if !strings.HasPrefix(p.Pattern, "/") || strings.Contains(p.Pattern, "?") ||
			(strings.Contains(p.Pattern, "*") && !strings.HasSuffix(p.Pattern, prefixSuffix)) {
			dead = append(dead, p.Pattern)
		}
	}
	return dead
}

// String describes the configuration for logs.
func (c *Config) String() string {
	switch c.Kind() {
	case KindSingle:
		return fmt.Sprintf("single(%s)", c.streamID)
	case KindPatterns:
		return fmt.Sprintf("patterns(%d)", len(c.patterns))
	case KindDynamic:
		return "dynamic"
	default:
		return "none"
	}
}
