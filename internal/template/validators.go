package template

import (
	"fmt"
	"regexp"
	"strings"
)

// Validators maps token names to full-match patterns restricting their
// allowed values. Jobs declare these in their config so site conventions
// (no dots in output names, lowercase tasks, ...) are enforced at parse and
// format time rather than after files land on disk.
type Validators map[string]*regexp.Regexp

// CompileValidators builds validators from token name to pattern source.
// Patterns are anchored automatically.
func CompileValidators(rules map[string]string) (Validators, error) {
	validators := make(Validators, len(rules))
	for token, rule := range rules {
		rule = strings.TrimSpace(rule)
		if rule == "" {
			continue
		}
		re, err := regexp.Compile("^(?:" + rule + ")$")
		if err != nil {
			return nil, fmt.Errorf("token validator %s: %w", token, err)
		}
		validators[token] = re
	}
	return validators, nil
}

// IsValid reports whether value is acceptable for token. Tokens without a
// rule accept anything.
func (v Validators) IsValid(token, value string) bool {
	re, ok := v[token]
	if !ok {
		return true
	}
	return re.MatchString(value)
}

// Validate checks every token in data, returning the first violation.
func (v Validators) Validate(data Data) error {
	for token, value := range data {
		if !v.IsValid(token, value) {
			return fmt.Errorf("invalid value %q for token %q", value, token)
		}
	}
	return nil
}
