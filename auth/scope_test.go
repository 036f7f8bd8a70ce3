package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgegate/registry-auth/auth"
)

func TestParseScope(t *testing.T) {
	t.Run("OK", func(t *testing.T) {
		testCases := []struct {
			scope    string
			expected auth.Scope
		}{
			{
				"repository:path/to/repo:pull,push",
				auth.Scope{
					Resource: auth.Resource{
						Type:  "repository",
						Class: "",
						Name:  "path/to/repo",
					},
					Actions: []string{"pull", "push"},
				},
			},
			{
				"repository:path/to/repo: pull , push ",
				auth.Scope{
					Resource: auth.Resource{
						Type:  "repository",
						Class: "",
						Name:  "path/to/repo",
					},
					Actions: []string{"pull", "push"},
				},
			},
			{
				"repository(class):path/to/repo:pull",
				auth.Scope{
					Resource: auth.Resource{
						Type:  "repository",
						Class: "class",
						Name:  "path/to/repo",
					},
					Actions: []string{"pull"},
				},
			},
			{
				// duplicates collapse, order of first occurrence wins
				"repository:path/to/repo:pull,push,pull",
				auth.Scope{
					Resource: auth.Resource{
						Type:  "repository",
						Class: "",
						Name:  "path/to/repo",
					},
					Actions: []string{"pull", "push"},
				},
			},
			{
				// names may contain colons (registry address with port)
				"repository:registry.example.com:5000/path/to/repo:pull",
				auth.Scope{
					Resource: auth.Resource{
						Type:  "repository",
						Class: "",
						Name:  "registry.example.com:5000/path/to/repo",
					},
					Actions: []string{"pull"},
				},
			},
			{
				// wildcard suffix requests nested paths too
				"repository:path/to/group/*:pull",
				auth.Scope{
					Resource: auth.Resource{
						Type:  "repository",
						Class: "",
						Name:  "path/to/group/*",
					},
					Actions: []string{"pull"},
				},
			},
			{
				// unknown types parse fine and resolve to empty grants later
				"invalid:aa:bb",
				auth.Scope{
					Resource: auth.Resource{
						Type:  "invalid",
						Class: "",
						Name:  "aa",
					},
					Actions: []string{"bb"},
				},
			},
		}

		for _, testCase := range testCases {
			testCase := testCase

			t.Run("", func(t *testing.T) {
				actual, err := auth.ParseScope(testCase.scope)
				require.NoError(t, err)

				assert.Equal(t, testCase.expected, actual)
			})
		}
	})

	t.Run("Error", func(t *testing.T) {
		testCases := []string{
			"repository : path/to/repo : pull , push ",
			"repository",
			"repository:path/to/repo",
			"UPPERCASE:path/to/repo:pull",
		}

		for _, testCase := range testCases {
			testCase := testCase

			t.Run("", func(t *testing.T) {
				_, err := auth.ParseScope(testCase)
				require.Error(t, err)
			})
		}
	})
}

func TestParseScopes(t *testing.T) {
	scopes, err := auth.ParseScopes([]string{
		"repository:a/b:pull",
		"repository:c/d:push,pull",
	})
	require.NoError(t, err)

	// order must round-trip
	assert.Equal(t, "repository:a/b:pull repository:c/d:push,pull", scopes.String())
}

func TestScope_String(t *testing.T) {
	testCases := []struct {
		scope    auth.Scope
		expected string
	}{
		{
			auth.Scope{
				Resource: auth.Resource{
					Type:  "repository",
					Class: "",
					Name:  "path/to/repo",
				},
				Actions: []string{"pull", "push"},
			},
			"repository:path/to/repo:pull,push",
		},
	}

	for _, testCase := range testCases {
		testCase := testCase

		t.Run("", func(t *testing.T) {
			actual := testCase.scope.String()

			assert.Equal(t, testCase.expected, actual)
		})
	}
}
