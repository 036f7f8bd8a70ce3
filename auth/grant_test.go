package auth_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgegate/registry-auth/auth"
)

// The grant JSON shape is consumed by the registry and must stay stable.
func TestGrant_WireFormat(t *testing.T) {
	t.Run("Full", func(t *testing.T) {
		grant := auth.Grant{
			Type:    "repository",
			Name:    "group/project",
			Actions: []string{"pull", "push"},
			Meta: &auth.GrantMeta{
				ProjectPath:     "group/project",
				ProjectID:       1,
				RootNamespaceID: 10,
				TagDenyAccessPatterns: map[string][]string{
					"push":   {"latest"},
					"delete": {},
				},
			},
		}

		encoded, err := json.Marshal(grant)
		require.NoError(t, err)

		assert.JSONEq(t, `{
			"type": "repository",
			"name": "group/project",
			"actions": ["pull", "push"],
			"meta": {
				"project_path": "group/project",
				"project_id": 1,
				"root_namespace_id": 10,
				"tag_deny_access_patterns": {"push": ["latest"], "delete": []}
			}
		}`, string(encoded))
	})

	t.Run("Denied", func(t *testing.T) {
		grant := auth.Grant{
			Type:    "repository",
			Name:    "group/project",
			Actions: []string{},
		}

		encoded, err := json.Marshal(grant)
		require.NoError(t, err)

		// Denied scopes serialize with an explicit empty action array and no meta.
		assert.JSONEq(t, `{"type": "repository", "name": "group/project", "actions": []}`, string(encoded))
	})
}

func TestGrantedActions(t *testing.T) {
	grants := []auth.Grant{
		{Actions: []string{"pull", "push"}},
		{Actions: []string{}},
		{Actions: []string{"*"}},
	}

	assert.Equal(t, 3, auth.GrantedActions(grants))
}
