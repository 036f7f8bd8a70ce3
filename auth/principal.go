package auth

import (
	"fmt"
	"strconv"
)

// AccessLevel is a role in a project, ordered from least to most privileged.
//
// The numeric values follow the membership model of the upstream forge, which
// leaves room for intermediate levels. LevelAdmin is not a membership level:
// it only appears in protection rules as a tier above LevelOwner.
type AccessLevel int

const (
	LevelNone       AccessLevel = 0
	LevelGuest      AccessLevel = 10
	LevelReporter   AccessLevel = 20
	LevelDeveloper  AccessLevel = 30
	LevelMaintainer AccessLevel = 40
	LevelOwner      AccessLevel = 50
	LevelAdmin      AccessLevel = 60
)

func (l AccessLevel) String() string {
	switch l {
	case LevelNone:
		return "none"
	case LevelGuest:
		return "guest"
	case LevelReporter:
		return "reporter"
	case LevelDeveloper:
		return "developer"
	case LevelMaintainer:
		return "maintainer"
	case LevelOwner:
		return "owner"
	case LevelAdmin:
		return "admin"
	}

	return fmt.Sprintf("AccessLevel(%d)", int(l))
}

// ParseAccessLevel parses an access level name (as it appears in configuration).
func ParseAccessLevel(s string) (AccessLevel, error) {
	switch s {
	case "none", "":
		return LevelNone, nil
	case "guest":
		return LevelGuest, nil
	case "reporter":
		return LevelReporter, nil
	case "developer":
		return LevelDeveloper, nil
	case "maintainer":
		return LevelMaintainer, nil
	case "owner":
		return LevelOwner, nil
	case "admin":
		return LevelAdmin, nil
	}

	return LevelNone, fmt.Errorf("unknown access level: %q", s)
}

// Principal is the authenticated (or anonymous) party requesting registry access.
//
// It is a closed union: Anonymous, User, DeployToken, BuildToken and
// AdminOverride are the only implementations, and the access resolver matches
// on them exhaustively. Everything authorization needs to know about a
// principal is captured here as an immutable snapshot taken when the request
// arrives; in particular the admin-mode flag is read exactly once, so a toggle
// mid-request cannot yield a token that is internally inconsistent.
type Principal interface {
	// ID is the identifier placed in the "sub" claim of issued tokens.
	// It is empty for anonymous principals.
	ID() string

	principal()
}

// Anonymous is a principal that presented no credentials.
type Anonymous struct{}

func (Anonymous) ID() string { return "" }
func (Anonymous) principal() {}

// User is a human (or at least interactive) account.
type User struct {
	UserID   int64
	Username string

	// External users only see projects they are explicitly a member of,
	// regardless of project visibility.
	External bool

	Admin bool

	// AdminModeEnabled records whether the admin elevated their session.
	// Admin alone grants nothing; see NewRequestPrincipal.
	AdminModeEnabled bool
}

func (u User) ID() string { return u.Username }
func (User) principal()   {}

// DeployToken is a non-human credential scoped to specific projects and capabilities.
type DeployToken struct {
	TokenID  int64
	Username string

	// Projects the token is directly associated with. Members of the same
	// fork network as an associated project are reachable too.
	ProjectIDs []int64

	ReadRepository bool
	ReadRegistry   bool
	WriteRegistry  bool

	Revoked bool
	Expired bool
}

func (t DeployToken) ID() string { return t.Username }
func (DeployToken) principal()   {}

// Valid reports whether the token may be used at all.
func (t DeployToken) Valid() bool { return !t.Revoked && !t.Expired }

// BuildToken is a CI job token, bound to the project the job runs in.
type BuildToken struct {
	JobID     int64
	ProjectID int64
	Username  string

	ReadContainerImage    bool
	CreateContainerImage  bool
	DestroyContainerImage bool
}

func (t BuildToken) ID() string {
	if t.Username != "" {
		return t.Username
	}

	return strconv.FormatInt(t.JobID, 10)
}
func (BuildToken) principal() {}

// AdminOverride wraps an instance administrator whose session had admin mode
// enabled when the request arrived. It bypasses role checks for repository
// scopes of any project and is the only principal allowed to browse the catalog.
type AdminOverride struct {
	User User
}

func (o AdminOverride) ID() string { return o.User.Username }
func (AdminOverride) principal()   {}

// NewRequestPrincipal snapshots a user into the principal used for the rest of
// the request. Administrators with admin mode enabled are promoted to
// AdminOverride here and nowhere else, so the flag is consulted exactly once
// per request.
func NewRequestPrincipal(u User) Principal {
	if u.Admin && u.AdminModeEnabled {
		return AdminOverride{User: u}
	}

	return u
}
