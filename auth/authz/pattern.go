package authz

import (
	"path"
	"strings"
)

// matchPattern checks a repository path or tag name against a glob pattern:
//
//   - "*" and "?" behave like path.Match: "*" does not cross "/"
//   - "**" matches any number of path segments, in any position
//
// Malformed patterns never match: a broken rule must not grant anything, and
// must keep restricting whatever it still unambiguously names.
func matchPattern(pattern, name string) bool {
	if pattern == "**" {
		return true
	}

	if !strings.Contains(pattern, "**") {
		matched, err := path.Match(pattern, name)
		if err != nil {
			return false
		}

		return matched
	}

	if prefix, ok := strings.CutSuffix(pattern, "/**"); ok {
		if matchPattern(prefix, name) {
			return true
		}

		for rest := name; ; {
			i := strings.LastIndex(rest, "/")
			if i < 0 {
				return false
			}

			rest = rest[:i]
			if matchPattern(prefix, rest) {
				return true
			}
		}
	}

	if suffix, ok := strings.CutPrefix(pattern, "**/"); ok {
		if matchPattern(suffix, name) {
			return true
		}

		for rest := name; ; {
			i := strings.Index(rest, "/")
			if i < 0 {
				return false
			}

			rest = rest[i+1:]
			if matchPattern(suffix, rest) {
				return true
			}
		}
	}

	// Interior "**": absorb zero or more whole segments in the middle.
	parts := strings.SplitN(pattern, "**", 2)
	head := strings.TrimSuffix(parts[0], "/")
	tail := strings.TrimPrefix(parts[1], "/")

	segments := strings.Split(name, "/")
	for i := 0; i <= len(segments); i++ {
		if matchPattern(head, strings.Join(segments[:i], "/")) && matchPattern("**/"+tail, strings.Join(segments[i:], "/")) {
			return true
		}
	}

	return false
}
