package auth

import (
	"context"

	"github.com/forgegate/registry-auth/pkg/option"
)

// Visibility of a project (or of its container registry, when overridden).
type Visibility string

const (
	VisibilityPrivate  Visibility = "private"
	VisibilityInternal Visibility = "internal"
	VisibilityPublic   Visibility = "public"
)

// Project is the read-only view of a project this service needs.
// Ownership of this data lives elsewhere; a Project is a per-request snapshot.
type Project struct {
	ID       int64
	FullPath string

	// RootNamespaceID identifies the top-level group, surfaced in grant
	// metadata so the registry can attribute storage without another lookup.
	RootNamespaceID int64

	Visibility Visibility

	// RegistryVisibility overrides Visibility for the container registry
	// only. Empty means the registry follows the project.
	RegistryVisibility Visibility

	// RegistryEnabled gates all registry access to the project.
	RegistryEnabled bool

	// ForkNetworkID links forks; deploy tokens associated with one member
	// of a network can reach the others. Zero means not part of a network.
	ForkNetworkID int64
}

func (p Project) registryVisibility() Visibility {
	if p.RegistryVisibility != "" {
		return p.RegistryVisibility
	}

	return p.Visibility
}

// AnonymousPullable reports whether anyone, even unauthenticated, may pull.
func (p Project) AnonymousPullable() bool {
	return p.RegistryEnabled && p.registryVisibility() == VisibilityPublic
}

// MemberlessPullable reports whether any authenticated non-external user may
// pull without holding a membership.
func (p Project) MemberlessPullable() bool {
	if !p.RegistryEnabled {
		return false
	}

	v := p.registryVisibility()

	return v == VisibilityPublic || v == VisibilityInternal
}

// ProtectionRule restricts which role may push to matching repository paths.
// When several rules match one path, the highest minimum level wins.
type ProtectionRule struct {
	RepositoryPathPattern     string
	MinimumAccessLevelForPush AccessLevel
}

// TagProtectionRule restricts which role may push or delete matching tag names.
// Unlike ProtectionRule it does not withhold the repository-level action;
// it contributes deny patterns to the grant metadata instead.
// A zero minimum level means the rule does not govern that action.
type TagProtectionRule struct {
	TagNamePattern string

	MinimumAccessLevelForPush   AccessLevel
	MinimumAccessLevelForDelete AccessLevel
}

// ProjectStore provides the read-only facts access resolution consults.
//
// Implementations should batch lookups where they can: one token request may
// carry many scopes. When a read fails (including by deadline), the caller
// fails the whole request closed.
type ProjectStore interface {
	// ResolveProject resolves a repository path to its owning project.
	// Nested image paths ("group/project/image") and wildcard suffixes
	// ("group/project/*") resolve to the closest containing project.
	ResolveProject(ctx context.Context, path string) (option.Option[Project], error)

	// RoleOf returns the user's effective access level in the project,
	// LevelNone when the user is not a member.
	RoleOf(ctx context.Context, user User, project Project) (AccessLevel, error)

	// ProtectionRulesFor lists the push protection rules of the project.
	ProtectionRulesFor(ctx context.Context, project Project) ([]ProtectionRule, error)

	// TagProtectionRulesFor lists the tag protection rules of the project.
	TagProtectionRulesFor(ctx context.Context, project Project) ([]TagProtectionRule, error)

	// DeployTokenHasAccess reports whether the deploy token is associated
	// with the project, directly or through its fork network.
	DeployTokenHasAccess(ctx context.Context, token DeployToken, project Project) (bool, error)
}
