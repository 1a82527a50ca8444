package template

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Data holds token values extracted from or applied to a path pattern.
// Values are stored exactly as they appear in paths (version numbers keep
// their zero padding).
type Data map[string]string

// Clone returns an independent copy of the data.
func (d Data) Clone() Data {
	clone := make(Data, len(d))
	for key, value := range d {
		clone[key] = value
	}
	return clone
}

// Template is a named path pattern with {token} placeholders and [optional]
// bracket groups. A template may be scoped to a profile (asset/shot) and a
// DCC name. Templates are immutable once built; ApplyData returns a
// specialized copy rather than mutating in place.
type Template struct {
	Name    string
	Pattern string
	Profile string
	DCC     string

	embedded Data
	variants []*variant
}

// variant is one expansion of the optional groups: a concrete pattern with a
// compiled matcher and the ordered token list it extracts.
type variant struct {
	pattern string
	keys    []string
	re      *regexp.Regexp
}

// New compiles a pattern into a template. Optional bracket groups are
// expanded up front so matching never backtracks over them.
func New(name, pattern string) (*Template, error) {
	tmpl := &Template{
		Name:     name,
		Pattern:  normPattern(pattern),
		embedded: Data{},
	}
	if err := tmpl.compile(); err != nil {
		return nil, err
	}
	return tmpl, nil
}

// MustNew is New for statically known patterns; it panics on a bad pattern.
func MustNew(name, pattern string) *Template {
	tmpl, err := New(name, pattern)
	if err != nil {
		panic(err)
	}
	return tmpl
}

func (t *Template) compile() error {
	if strings.Count(t.Pattern, "[") != strings.Count(t.Pattern, "]") {
		return fmt.Errorf("template %s: unbalanced optional brackets in %q", t.Name, t.Pattern)
	}
	patterns := expandOptionals(t.Pattern)
	t.variants = make([]*variant, 0, len(patterns))
	for _, pattern := range patterns {
		compiled, err := compileVariant(pattern)
		if err != nil {
			return fmt.Errorf("template %s: %w", t.Name, err)
		}
		t.variants = append(t.variants, compiled)
	}
	return nil
}

// Keys returns every token the fullest variant can extract, sorted.
func (t *Template) Keys() []string {
	seen := map[string]struct{}{}
	for _, v := range t.variants {
		for _, key := range v.keys {
			seen[key] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// RequiredKeys returns tokens present in every variant (i.e. outside any
// optional group), sorted.
func (t *Template) RequiredKeys() []string {
	if len(t.variants) == 0 {
		return nil
	}
	counts := map[string]int{}
	for _, v := range t.variants {
		seen := map[string]struct{}{}
		for _, key := range v.keys {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			counts[key]++
		}
	}
	keys := make([]string, 0, len(counts))
	for key, n := range counts {
		if n == len(t.variants) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// HasKey reports whether the template can carry the given token.
func (t *Template) HasKey(token string) bool {
	for _, v := range t.variants {
		for _, key := range v.keys {
			if key == token {
				return true
			}
		}
	}
	return false
}

// Embedded returns the tokens already bound on this template.
func (t *Template) Embedded() Data {
	return t.embedded.Clone()
}

// ApplyData returns a copy of the template with the given tokens pre-bound.
// Bound tokens become literal text in the pattern, so later Parse calls only
// extract the remaining tokens (and return the bound values merged back in).
func (t *Template) ApplyData(data Data) (*Template, error) {
	pattern := t.Pattern
	merged := t.embedded.Clone()
	for token, value := range data {
		pattern = strings.ReplaceAll(pattern, "{"+token+"}", value)
		pattern = replaceSpecTokens(pattern, token, value)
		merged[token] = value
	}
	clone := &Template{
		Name:     t.Name,
		Pattern:  pattern,
		Profile:  t.Profile,
		DCC:      t.DCC,
		embedded: merged,
	}
	if err := clone.compile(); err != nil {
		return nil, err
	}
	return clone, nil
}

// replaceSpecTokens substitutes occurrences that carry a format spec, e.g.
// {ver:03d} with a concrete value.
func replaceSpecTokens(pattern, token, value string) string {
	prefix := "{" + token + ":"
	for {
		start := strings.Index(pattern, prefix)
		if start < 0 {
			return pattern
		}
		end := strings.Index(pattern[start:], "}")
		if end < 0 {
			return pattern
		}
		pattern = pattern[:start] + value + pattern[start+end+1:]
	}
}

// Parse extracts token values from path. Variants are attempted most
// specific first; the first structural match wins. A *ParseError is returned
// when no variant matches.
func (t *Template) Parse(path string) (Data, error) {
	normalized := normPattern(path)
	for _, v := range t.variants {
		match := v.re.FindStringSubmatch(normalized)
		if match == nil {
			continue
		}
		data := t.embedded.Clone()
		consistent := true
		for idx, key := range v.keys {
			value := match[idx+1]
			if existing, ok := data[key]; ok && existing != value {
				consistent = false
				break
			}
			data[key] = value
		}
		if !consistent {
			continue
		}
		return data, nil
	}
	return nil, &ParseError{Path: normalized, Template: t.Name, Pattern: t.Pattern}
}

// Format builds a path from token values. The most specific variant whose
// tokens are all available is used; a *MissingTokenError is returned when a
// required token is absent.
func (t *Template) Format(data Data) (string, error) {
	merged := t.embedded.Clone()
	for key, value := range data {
		merged[key] = value
	}

	for _, v := range t.variants {
		if !hasAllKeys(v.keys, merged) {
			continue
		}
		return formatPattern(v.pattern, merged), nil
	}

	// Nothing satisfiable: report the first missing required token.
	for _, key := range t.RequiredKeys() {
		if _, ok := merged[key]; !ok {
			return "", &MissingTokenError{Token: key, Template: t.Name}
		}
	}
	return "", &MissingTokenError{Template: t.Name}
}

func hasAllKeys(keys []string, data Data) bool {
	for _, key := range keys {
		if value, ok := data[key]; !ok || value == "" {
			return false
		}
	}
	return true
}

func formatPattern(pattern string, data Data) string {
	var out strings.Builder
	rest := pattern
	for {
		start := strings.IndexByte(rest, '{')
		if start < 0 {
			out.WriteString(rest)
			return out.String()
		}
		end := strings.IndexByte(rest[start:], '}')
		if end < 0 {
			out.WriteString(rest)
			return out.String()
		}
		out.WriteString(rest[:start])
		token := rest[start+1 : start+end]
		rest = rest[start+end+1:]

		name, spec := token, ""
		if sep := strings.IndexByte(token, ':'); sep >= 0 {
			name, spec = token[:sep], token[sep+1:]
		}
		out.WriteString(applySpec(data[name], spec))
	}
}

// applySpec zero-pads all-digit values for %0Nd style specs. Non-numeric
// values (such as a literal %04d frame wildcard) pass through untouched.
func applySpec(value, spec string) string {
	if spec == "" || value == "" {
		return value
	}
	if !strings.HasPrefix(spec, "0") || !strings.HasSuffix(spec, "d") {
		return value
	}
	width := 0
	if _, err := fmt.Sscanf(spec, "0%dd", &width); err != nil || width <= 0 {
		return value
	}
	if !isDigits(value) {
		return value
	}
	for len(value) < width {
		value = "0" + value
	}
	return value
}

func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func normPattern(pattern string) string {
	return strings.ReplaceAll(pattern, "\\", "/")
}

func (t *Template) String() string {
	return fmt.Sprintf("Template(%s %s)", t.Name, t.Pattern)
}
