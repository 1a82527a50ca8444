package template

import (
	"sort"
	"strings"
)

// expandOptionals expands [bracketed] groups into every on/off combination.
// More specific patterns (more groups enabled) come first so they are
// matched in preference to less specific ones.
func expandOptionals(pattern string) []string {
	if !strings.Contains(pattern, "[") {
		return []string{pattern}
	}

	var groups []string
	rest := pattern
	for {
		start := strings.IndexByte(rest, '[')
		if start < 0 {
			break
		}
		end := strings.IndexByte(rest[start:], ']')
		if end < 0 {
			break
		}
		groups = append(groups, rest[start+1:start+end])
		rest = rest[start+end+1:]
	}

	type expansion struct {
		pattern string
		enabled int
	}
	total := 1 << len(groups)
	expansions := make([]expansion, 0, total)
	for mask := 0; mask < total; mask++ {
		expanded := pattern
		enabled := 0
		for idx, group := range groups {
			token := "[" + group + "]"
			if mask&(1<<idx) != 0 {
				expanded = strings.Replace(expanded, token, group, 1)
				enabled++
			} else {
				expanded = strings.Replace(expanded, token, "", 1)
			}
		}
		expansions = append(expansions, expansion{pattern: expanded, enabled: enabled})
	}

	sort.SliceStable(expansions, func(i, j int) bool {
		return expansions[i].enabled > expansions[j].enabled
	})

	patterns := make([]string, 0, total)
	seen := map[string]struct{}{}
	for _, e := range expansions {
		if _, dup := seen[e.pattern]; dup {
			continue
		}
		seen[e.pattern] = struct{}{}
		patterns = append(patterns, e.pattern)
	}
	return patterns
}
