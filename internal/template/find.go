package template

import "sort"

// Opts narrows a template set during selection.
type Opts struct {
	// Name restricts selection to templates with this name.
	Name string
	// Profile restricts selection to asset or shot scoped templates.
	// Templates without a profile match either.
	Profile string
	// DCC restricts selection to templates scoped to a DCC. Templates
	// without a DCC scope match any.
	DCC string
	// HasKey is a hard predicate: the template must (true) or must not
	// (false) carry the token.
	HasKey map[string]bool
	// WantKey is a soft preference applied only to break ties between
	// multiple surviving templates.
	WantKey map[string]bool
}

func (o Opts) accepts(tmpl *Template) bool {
	if o.Name != "" && tmpl.Name != o.Name {
		return false
	}
	if o.Profile != "" && tmpl.Profile != "" && tmpl.Profile != o.Profile {
		return false
	}
	if o.DCC != "" && tmpl.DCC != "" && tmpl.DCC != o.DCC {
		return false
	}
	for token, want := range o.HasKey {
		if tmpl.HasKey(token) != want {
			return false
		}
	}
	return true
}

func (o Opts) wantScore(tmpl *Template) int {
	score := 0
	for token, want := range o.WantKey {
		if tmpl.HasKey(token) == want {
			score++
		}
	}
	return score
}

// Find narrows templates to exactly one. Zero survivors yield a
// *NoMatchError, more than one (after want-key tie-breaking) a
// *AmbiguousError.
func Find(templates []*Template, opts Opts) (*Template, error) {
	var survivors []*Template
	searched := make([]string, 0, len(templates))
	for _, tmpl := range templates {
		searched = append(searched, tmpl.Name)
		if opts.accepts(tmpl) {
			survivors = append(survivors, tmpl)
		}
	}

	if len(survivors) > 1 && len(opts.WantKey) > 0 {
		best := -1
		var preferred []*Template
		for _, tmpl := range survivors {
			score := opts.wantScore(tmpl)
			switch {
			case score > best:
				best = score
				preferred = []*Template{tmpl}
			case score == best:
				preferred = append(preferred, tmpl)
			}
		}
		survivors = preferred
	}

	switch len(survivors) {
	case 0:
		return nil, &NoMatchError{Searched: searched}
	case 1:
		return survivors[0], nil
	default:
		return nil, &AmbiguousError{Candidates: names(survivors)}
	}
}

// Match parses path against every template surviving the narrowing options
// and returns the single best match. When several templates match
// structurally the one extracting the most tokens is preferred (a template
// with a tag segment beats one without); an exact tie is ambiguous.
func Match(templates []*Template, path string, opts Opts) (*Template, Data, error) {
	type candidate struct {
		tmpl *Template
		data Data
	}
	var matched []candidate
	searched := make([]string, 0, len(templates))
	for _, tmpl := range templates {
		if !opts.accepts(tmpl) {
			continue
		}
		searched = append(searched, tmpl.Name)
		data, err := tmpl.Parse(path)
		if err != nil {
			continue
		}
		matched = append(matched, candidate{tmpl: tmpl, data: data})
	}

	switch len(matched) {
	case 0:
		return nil, nil, &NoMatchError{Path: path, Searched: searched}
	case 1:
		return matched[0].tmpl, matched[0].data, nil
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return len(matched[i].data) > len(matched[j].data)
	})
	if len(matched[0].data) > len(matched[1].data) {
		return matched[0].tmpl, matched[0].data, nil
	}

	var ambiguous []string
	top := len(matched[0].data)
	for _, c := range matched {
		if len(c.data) == top {
			ambiguous = append(ambiguous, c.tmpl.Name)
		}
	}
	return nil, nil, &AmbiguousError{Path: path, Candidates: ambiguous}
}

func names(templates []*Template) []string {
	out := make([]string, 0, len(templates))
	for _, tmpl := range templates {
		out = append(out, tmpl.Name)
	}
	return out
}
