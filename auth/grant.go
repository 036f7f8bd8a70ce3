package auth

// GrantMeta is auxiliary grant information consumed by the registry.
//
// TagDenyAccessPatterns is only set on repository grants that include push or
// delete. Key presence is meaningful: a key mapping to an empty list means tag
// rules govern that action but the principal satisfies all of them, while a
// missing key means no tag rule applies to the action at all.
type GrantMeta struct {
	ProjectPath     string `json:"project_path,omitempty"`
	ProjectID       int64  `json:"project_id,omitempty"`
	RootNamespaceID int64  `json:"root_namespace_id,omitempty"`

	TagDenyAccessPatterns map[string][]string `json:"tag_deny_access_patterns,omitempty"`
}

// Grant is the resolved outcome of a single scope: the subset of the requested
// actions the principal is actually authorized for. Actions may be empty; the
// scope is still echoed in the token so clients can tell "known but denied"
// apart from "dropped".
//
// The JSON field names are part of the registry token wire format and must not
// change.
type Grant struct {
	Type    string     `json:"type"`
	Name    string     `json:"name"`
	Actions []string   `json:"actions"`
	Meta    *GrantMeta `json:"meta,omitempty"`
}

// GrantedActions sums the granted actions across grants.
func GrantedActions(grants []Grant) int {
	var n int
	for _, grant := range grants {
		n += len(grant.Actions)
	}

	return n
}
