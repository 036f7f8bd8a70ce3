package authz

import (
	"github.com/forgegate/registry-auth/auth"
)

// EffectiveMinimumPushLevel matches a repository path against every push
// protection rule of its project and returns the minimum access level a
// principal must hold to push.
//
// It is a fold over all matching rules, never a first-match: when patterns
// overlap, the most restrictive (highest) level wins deterministically.
// The second return value is false when no rule matches, meaning pushing is
// governed by the ordinary role requirement alone.
func EffectiveMinimumPushLevel(rules []auth.ProtectionRule, repositoryPath string) (auth.AccessLevel, bool) {
	var (
		level   auth.AccessLevel
		matched bool
	)

	for _, rule := range rules {
		if !matchPattern(rule.RepositoryPathPattern, repositoryPath) {
			continue
		}

		matched = true
		if rule.MinimumAccessLevelForPush > level {
			level = rule.MinimumAccessLevelForPush
		}
	}

	return level, matched
}
