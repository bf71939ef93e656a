package splitkit

import (
	"fmt"
	"strings"
)

// Matches reports whether a target falls inside a scope pattern.
//
// Three pattern forms, checked in this precedence:
//
//  1. "*" matches any target.
//  2. A pattern ending in "/*" matches anything strictly below the
//     base path: "/services/*" matches "/services/web" but not
//     "/services" itself and not "/services-2". Scoping an experiment
//     to a section and its index page takes two patterns.
//  3. Anything else is exact string equality.
//
// No regex, no case folding, no trailing-slash normalization. Callers
// supply already-normalized targets; patterns stay auditable by the
// people authoring experiment configuration.
func Matches(target, pattern string) bool {
	if pattern == "*" {
		return true
	}
	if base, ok := strings.CutSuffix(pattern, "/*"); ok {
		return strings.HasPrefix(target, base+"/")
	}
	return target == pattern
}

// ValidatePattern rejects patterns the matcher cannot express.
// A wildcard is only meaningful as the whole pattern ("*") or as a
// trailing "/*" segment.
func ValidatePattern(pattern string) error {
	if pattern == "" {
		return fmt.Errorf("%w: empty pattern", ErrBadPattern)
	}
	if pattern == "*" {
		return nil
	}
	trimmed := strings.TrimSuffix(pattern, "/*")
	if strings.Contains(trimmed, "*") {
		return fmt.Errorf("%w: %q (wildcard only allowed as trailing /*)", ErrBadPattern, pattern)
	}
	return nil
}
