package template

import (
	"fmt"
	"regexp"
	"strings"
)

// Token matching classes. Tokens occupying a whole path segment may match
// anything except a separator; tokens sharing a segment with literals or
// other tokens are restricted to word characters so underscore-delimited
// filenames stay unambiguous. Path-valued tokens (job_path, entity_path,
// work_dir) may span directories and are normally pre-bound via ApplyData.
const (
	segmentClass = `[^/]+`
	inlineClass  = `[A-Za-z0-9]+`
	pathClass    = `.+`
	digitClass   = `\d+`
	// frameClass also accepts a printf-style wildcard so sequence paths
	// like render.%04d.exr parse without expanding frames.
	frameClass = `(?:%0?\d*d|\d+|[#]+)`
)

var pathTokens = map[string]struct{}{
	"job_path":    {},
	"entity_path": {},
	"work_dir":    {},
}

var digitTokens = map[string]struct{}{
	"ver": {},
}

var frameTokens = map[string]struct{}{
	"frame": {},
}

// compileVariant turns one concrete pattern (no optional groups left) into
// a matcher plus the ordered token list it extracts.
func compileVariant(pattern string) (*variant, error) {
	var expr strings.Builder
	expr.WriteString("^")
	var keys []string

	rest := pattern
	offset := 0
	for {
		start := strings.IndexByte(rest, '{')
		if start < 0 {
			expr.WriteString(regexp.QuoteMeta(rest))
			break
		}
		end := strings.IndexByte(rest[start:], '}')
		if end < 0 {
			return nil, fmt.Errorf("unterminated token in pattern %q", pattern)
		}

		expr.WriteString(regexp.QuoteMeta(rest[:start]))
		token := rest[start+1 : start+end]
		name, spec := token, ""
		if sep := strings.IndexByte(token, ':'); sep >= 0 {
			name, spec = token[:sep], token[sep+1:]
		}
		if name == "" {
			return nil, fmt.Errorf("empty token in pattern %q", pattern)
		}

		fullSegment := isFullSegment(pattern, offset+start, offset+start+end+1)
		expr.WriteString("(")
		expr.WriteString(tokenClass(name, spec, fullSegment))
		expr.WriteString(")")
		keys = append(keys, name)

		offset += start + end + 1
		rest = rest[start+end+1:]
	}
	expr.WriteString("$")

	re, err := regexp.Compile(expr.String())
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}
	return &variant{pattern: pattern, keys: keys, re: re}, nil
}

func tokenClass(name, spec string, fullSegment bool) string {
	if _, ok := frameTokens[name]; ok {
		return frameClass
	}
	if _, ok := digitTokens[name]; ok {
		return digitClass
	}
	if strings.HasSuffix(spec, "d") {
		return digitClass
	}
	if _, ok := pathTokens[name]; ok {
		return pathClass
	}
	if fullSegment {
		return segmentClass
	}
	return inlineClass
}

// isFullSegment reports whether the token between start and end occupies an
// entire path segment of the pattern.
func isFullSegment(pattern string, start, end int) bool {
	before := start == 0 || pattern[start-1] == '/'
	after := end >= len(pattern) || pattern[end] == '/'
	return before && after
}
