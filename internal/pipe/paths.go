package pipe

import (
	"path"
	"path/filepath"
	"strings"
)

// NormPath normalizes a path for identity comparison: forward slashes,
// cleaned, no trailing separator. Every map key and equality check in the
// cache layer goes through this.
func NormPath(p string) string {
	if p == "" {
		return ""
	}
	normalized := strings.ReplaceAll(p, "\\", "/")
	normalized = path.Clean(normalized)
	if len(normalized) > 1 {
		normalized = strings.TrimSuffix(normalized, "/")
	}
	return normalized
}

// AbsPath normalizes p to an absolute identity path.
func AbsPath(p string) string {
	if p == "" {
		return ""
	}
	if !path.IsAbs(NormPath(p)) {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
	}
	return NormPath(p)
}
