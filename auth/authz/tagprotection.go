package authz

import (
	"github.com/forgegate/registry-auth/auth"
)

// TagDenyAccessPatterns computes, for a principal at the given effective
// access level, the tag name patterns the principal may still not push or
// delete even though the repository-level action was granted.
//
// The result maps "push" and "delete" to pattern lists. A key is present
// whenever at least one rule governs that action, even when the principal
// satisfies every such rule (empty list); a missing key means no tag rule
// applies to the action at all. Downstream tag enforcement relies on that
// distinction.
func TagDenyAccessPatterns(rules []auth.TagProtectionRule, level auth.AccessLevel) map[string][]string {
	var patterns map[string][]string

	record := func(action string, pattern string, minimum auth.AccessLevel) {
		if minimum == auth.LevelNone {
			// Rule does not govern this action.
			return
		}

		if patterns == nil {
			patterns = make(map[string][]string)
		}

		if patterns[action] == nil {
			patterns[action] = []string{}
		}

		if level < minimum {
			patterns[action] = append(patterns[action], pattern)
		}
	}

	for _, rule := range rules {
		record(auth.ActionPush, rule.TagNamePattern, rule.MinimumAccessLevelForPush)
		record(auth.ActionDelete, rule.TagNamePattern, rule.MinimumAccessLevelForDelete)
	}

	return patterns
}
