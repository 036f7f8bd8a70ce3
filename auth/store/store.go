// Package store provides an in-memory implementation of auth.ProjectStore.
//
// The snapshot is immutable after construction, so lookups are safe from any
// number of goroutines without locking. It backs single-node deployments and
// tests; production deployments typically put a database-backed implementation
// behind the same interface.
package store

import (
	"context"
	"strings"

	optionlib "github.com/sagikazarmark/go-option"
	"golang.org/x/exp/slices"

	"github.com/forgegate/registry-auth/auth"
	"github.com/forgegate/registry-auth/pkg/option"
)

// Member is a membership entry of a project.
type Member struct {
	UserID int64
	Level  auth.AccessLevel
}

// ProjectRecord bundles a project with the facts attached to it.
type ProjectRecord struct {
	Project auth.Project

	Members            []Member
	ProtectionRules    []auth.ProtectionRule
	TagProtectionRules []auth.TagProtectionRule
}

// InMemoryStore is an immutable auth.ProjectStore.
type InMemoryStore struct {
	projectsByPath map[string]auth.Project
	projectsByID   map[int64]auth.Project

	membership      map[int64]map[int64]auth.AccessLevel
	protectionRules map[int64][]auth.ProtectionRule
	tagRules        map[int64][]auth.TagProtectionRule
}

// NewInMemoryStore returns a new InMemoryStore holding the given records.
func NewInMemoryStore(records []ProjectRecord) *InMemoryStore {
	s := &InMemoryStore{
		projectsByPath:  make(map[string]auth.Project, len(records)),
		projectsByID:    make(map[int64]auth.Project, len(records)),
		membership:      make(map[int64]map[int64]auth.AccessLevel),
		protectionRules: make(map[int64][]auth.ProtectionRule),
		tagRules:        make(map[int64][]auth.TagProtectionRule),
	}

	for _, record := range records {
		project := record.Project

		s.projectsByPath[project.FullPath] = project
		s.projectsByID[project.ID] = project

		if len(record.Members) > 0 {
			members := make(map[int64]auth.AccessLevel, len(record.Members))
			for _, member := range record.Members {
				members[member.UserID] = member.Level
			}
			s.membership[project.ID] = members
		}

		s.protectionRules[project.ID] = slices.Clone(record.ProtectionRules)
		s.tagRules[project.ID] = slices.Clone(record.TagProtectionRules)
	}

	return s
}

// ResolveProject implements auth.ProjectStore.
//
// The repository path is matched against project paths from the most specific
// to the least: "group/project/image" resolves to "group/project" when no
// project lives at the full path.
func (s *InMemoryStore) ResolveProject(ctx context.Context, path string) (option.Option[auth.Project], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path = strings.TrimSuffix(path, "/*")

	for path != "" {
		if project, ok := s.projectsByPath[path]; ok {
			return optionlib.Some(project), nil
		}

		i := strings.LastIndex(path, "/")
		if i < 0 {
			break
		}

		path = path[:i]
	}

	return optionlib.None[auth.Project](), nil
}

// RoleOf implements auth.ProjectStore.
func (s *InMemoryStore) RoleOf(ctx context.Context, user auth.User, project auth.Project) (auth.AccessLevel, error) {
	if err := ctx.Err(); err != nil {
		return auth.LevelNone, err
	}

	return s.membership[project.ID][user.UserID], nil
}

// ProtectionRulesFor implements auth.ProjectStore.
func (s *InMemoryStore) ProtectionRulesFor(ctx context.Context, project auth.Project) ([]auth.ProtectionRule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return s.protectionRules[project.ID], nil
}

// TagProtectionRulesFor implements auth.ProjectStore.
func (s *InMemoryStore) TagProtectionRulesFor(ctx context.Context, project auth.Project) ([]auth.TagProtectionRule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return s.tagRules[project.ID], nil
}

// DeployTokenHasAccess implements auth.ProjectStore.
func (s *InMemoryStore) DeployTokenHasAccess(ctx context.Context, token auth.DeployToken, project auth.Project) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	if slices.Contains(token.ProjectIDs, project.ID) {
		return true, nil
	}

	if project.ForkNetworkID == 0 {
		return false, nil
	}

	// Associations travel along the fork network: a token bound to any
	// member of the network reaches the others.
	for _, id := range token.ProjectIDs {
		if associated, ok := s.projectsByID[id]; ok && associated.ForkNetworkID == project.ForkNetworkID {
			return true, nil
		}
	}

	return false, nil
}
