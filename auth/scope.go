package auth

import (
	"fmt"
	"regexp"
	"strings"
)

// Actions a registry client may request on a resource.
//
// ActionAll is shorthand for every action on the resource and is only granted
// when each individual action would be granted.
const (
	ActionPull   = "pull"
	ActionPush   = "push"
	ActionDelete = "delete"
	ActionAll    = "*"
)

// Resource types understood by the authorization service.
// Scopes with any other type parse fine, but always resolve to empty grants.
const (
	ResourceTypeRepository = "repository"
	ResourceTypeRegistry   = "registry"
)

// Resource describes a resource by type and name as described in the [Token Authentication Specification].
//
// [Token Authentication Specification]: https://github.com/distribution/distribution/blob/main/docs/spec/auth/token.md
type Resource struct {
	Type  string
	Class string
	Name  string
}

// Scope is an access request to a resource described in the [Token Scope documentation].
//
// A repository name ending in "/*" requests access to the named path and every
// path nested below it.
//
// [Token Scope documentation]: https://github.com/distribution/distribution/blob/main/docs/spec/auth/scope.md
type Scope struct {
	Resource

	Actions []string
}

func (s Scope) String() string {
	resourceType := s.Type
	if s.Class != "" {
		resourceType = fmt.Sprintf("%s(%s)", resourceType, s.Class)
	}

	return fmt.Sprintf("%s:%s:%s", resourceType, s.Name, strings.Join(s.Actions, ","))
}

// Scopes is a list of scopes.
type Scopes []Scope

func (s Scopes) String() string {
	scopes := make([]string, 0, len(s))

	for _, scope := range s {
		scopes = append(scopes, scope.String())
	}

	return strings.Join(scopes, " ")
}

var resourceTypeRegexp = regexp.MustCompile(`^([a-z0-9-]+)(\(([a-z0-9-]+)\))?$`)

// ParseScope parses a scope string of the form "type:name:action[,action...]".
//
// Repository names may contain colons (eg. a registry address with a port),
// so everything between the first separator and the last is the name.
// Duplicate actions are dropped, unknown actions are retained
// (they resolve to nothing later).
// Only a structurally malformed string is an error: fewer than two separators,
// an invalid resource type or an empty or blank-padded name.
func ParseScope(scope string) (Scope, error) {
	parts := strings.Split(scope, ":")
	if len(parts) < 3 {
		return Scope{}, fmt.Errorf("invalid scope format: %q", scope)
	}

	match := resourceTypeRegexp.FindStringSubmatch(parts[0])
	if match == nil {
		return Scope{}, fmt.Errorf("invalid resource type in scope: %q", scope)
	}

	name := strings.Join(parts[1:len(parts)-1], ":")
	if name == "" || strings.ContainsAny(name, " \t") {
		return Scope{}, fmt.Errorf("invalid resource name in scope: %q", scope)
	}

	var actions []string
	seen := make(map[string]bool)

	for _, action := range strings.Split(parts[len(parts)-1], ",") {
		action = strings.TrimSpace(action)
		if action == "" || seen[action] {
			continue
		}

		seen[action] = true
		actions = append(actions, action)
	}

	return Scope{
		Resource: Resource{
			Type:  match[1],
			Class: match[3],
			Name:  name,
		},
		Actions: actions,
	}, nil
}

// ParseScopes parses a list of raw scope strings, preserving order.
func ParseScopes(scopes []string) (Scopes, error) {
	parsed := make(Scopes, 0, len(scopes))

	for _, scope := range scopes {
		s, err := ParseScope(scope)
		if err != nil {
			return nil, err
		}

		parsed = append(parsed, s)
	}

	return parsed, nil
}
