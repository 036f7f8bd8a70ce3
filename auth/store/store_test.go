package store_test

import (
	"context"
	"testing"

	optionlib "github.com/sagikazarmark/go-option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgegate/registry-auth/auth"
	"github.com/forgegate/registry-auth/auth/store"
)

func newStore() *store.InMemoryStore {
	return store.NewInMemoryStore([]store.ProjectRecord{
		{
			Project: auth.Project{ID: 1, FullPath: "group/project", RegistryEnabled: true},
			Members: []store.Member{
				{UserID: 1, Level: auth.LevelDeveloper},
			},
			ProtectionRules: []auth.ProtectionRule{
				{RepositoryPathPattern: "group/project/**", MinimumAccessLevelForPush: auth.LevelOwner},
			},
			TagProtectionRules: []auth.TagProtectionRule{
				{TagNamePattern: "latest", MinimumAccessLevelForPush: auth.LevelMaintainer},
			},
		},
		{
			Project: auth.Project{ID: 2, FullPath: "group/project/sub", RegistryEnabled: true},
		},
		{
			Project: auth.Project{ID: 3, FullPath: "group/upstream", ForkNetworkID: 7},
		},
		{
			Project: auth.Project{ID: 4, FullPath: "group/fork", ForkNetworkID: 7},
		},
	})
}

func TestInMemoryStore_ResolveProject(t *testing.T) {
	s := newStore()

	testCases := []struct {
		path     string
		expected int64
	}{
		{"group/project", 1},
		{"group/project/image", 1},
		{"group/project/image/layer", 1},
		{"group/project/*", 1},

		// The deepest project wins.
		{"group/project/sub", 2},
		{"group/project/sub/image", 2},
	}

	for _, testCase := range testCases {
		testCase := testCase

		t.Run(testCase.path, func(t *testing.T) {
			project, err := s.ResolveProject(context.Background(), testCase.path)
			require.NoError(t, err)
			require.True(t, project.HasValue())

			assert.Equal(t, testCase.expected, optionlib.Unwrap[auth.Project](project).ID)
		})
	}

	t.Run("Unknown", func(t *testing.T) {
		project, err := s.ResolveProject(context.Background(), "nowhere/at/all")
		require.NoError(t, err)

		assert.True(t, optionlib.IsNone[auth.Project](project))
	})

	t.Run("ContextCanceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := s.ResolveProject(ctx, "group/project")

		assert.Error(t, err)
	})
}

func TestInMemoryStore_RoleOf(t *testing.T) {
	s := newStore()

	project, err := s.ResolveProject(context.Background(), "group/project")
	require.NoError(t, err)

	t.Run("Member", func(t *testing.T) {
		level, err := s.RoleOf(context.Background(), auth.User{UserID: 1}, optionlib.Unwrap[auth.Project](project))
		require.NoError(t, err)

		assert.Equal(t, auth.LevelDeveloper, level)
	})

	t.Run("NonMember", func(t *testing.T) {
		level, err := s.RoleOf(context.Background(), auth.User{UserID: 99}, optionlib.Unwrap[auth.Project](project))
		require.NoError(t, err)

		assert.Equal(t, auth.LevelNone, level)
	})
}

func TestInMemoryStore_Rules(t *testing.T) {
	s := newStore()
	project := auth.Project{ID: 1}

	rules, err := s.ProtectionRulesFor(context.Background(), project)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, auth.LevelOwner, rules[0].MinimumAccessLevelForPush)

	tagRules, err := s.TagProtectionRulesFor(context.Background(), project)
	require.NoError(t, err)
	require.Len(t, tagRules, 1)
	assert.Equal(t, "latest", tagRules[0].TagNamePattern)
}

func TestInMemoryStore_DeployTokenHasAccess(t *testing.T) {
	s := newStore()

	testCases := []struct {
		name     string
		token    auth.DeployToken
		project  auth.Project
		expected bool
	}{
		{
			name:     "DirectAssociation",
			token:    auth.DeployToken{ProjectIDs: []int64{1}},
			project:  auth.Project{ID: 1},
			expected: true,
		},
		{
			name:     "NoAssociation",
			token:    auth.DeployToken{ProjectIDs: []int64{1}},
			project:  auth.Project{ID: 2},
			expected: false,
		},
		{
			name:     "ForkNetwork",
			token:    auth.DeployToken{ProjectIDs: []int64{3}},
			project:  auth.Project{ID: 4, ForkNetworkID: 7},
			expected: true,
		},
		{
			name:     "OutsideForkNetwork",
			token:    auth.DeployToken{ProjectIDs: []int64{1}},
			project:  auth.Project{ID: 4, ForkNetworkID: 7},
			expected: false,
		},
	}

	for _, testCase := range testCases {
		testCase := testCase

		t.Run(testCase.name, func(t *testing.T) {
			ok, err := s.DeployTokenHasAccess(context.Background(), testCase.token, testCase.project)
			require.NoError(t, err)

			assert.Equal(t, testCase.expected, ok)
		})
	}
}
