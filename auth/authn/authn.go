// Package authn resolves registry credentials into auth.Principal snapshots.
//
// The service itself only consumes the snapshot; in larger deployments the
// upstream middleware performs this step against real user, deploy-token and
// job records. StaticCredentialAuthenticator covers single-node deployments
// and tests with entries loaded from configuration.
package authn

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/forgegate/registry-auth/auth"
)

// User is a static user entry.
//
// AdminModeEnabled mirrors the session elevation flag of a real deployment:
// it is part of the credential record here because there is no session store,
// and it becomes part of the Principal snapshot at authentication time.
type User struct {
	UserID       int64
	Username     string
	PasswordHash string

	External         bool
	Admin            bool
	AdminModeEnabled bool
}

// DeployToken is a static deploy token entry.
type DeployToken struct {
	TokenID   int64
	Username  string
	TokenHash string

	ProjectIDs []int64

	ReadRepository bool
	ReadRegistry   bool
	WriteRegistry  bool

	Revoked bool
	Expired bool
}

// BuildToken is a static CI job token entry.
type BuildToken struct {
	JobID     int64
	ProjectID int64
	Username  string
	TokenHash string

	ReadContainerImage    bool
	CreateContainerImage  bool
	DestroyContainerImage bool
}

// StaticCredentialAuthenticator authenticates against static credential lists.
type StaticCredentialAuthenticator struct {
	users        map[string]User
	deployTokens map[string]DeployToken
	buildTokens  map[string]BuildToken
}

// NewStaticCredentialAuthenticator returns a new StaticCredentialAuthenticator.
func NewStaticCredentialAuthenticator(users []User, deployTokens []DeployToken, buildTokens []BuildToken) StaticCredentialAuthenticator {
	a := StaticCredentialAuthenticator{
		users:        make(map[string]User, len(users)),
		deployTokens: make(map[string]DeployToken, len(deployTokens)),
		buildTokens:  make(map[string]BuildToken, len(buildTokens)),
	}

	for _, user := range users {
		a.users[user.Username] = user
	}

	for _, token := range deployTokens {
		a.deployTokens[token.Username] = token
	}

	for _, token := range buildTokens {
		a.buildTokens[token.Username] = token
	}

	return a
}

// Authenticate implements auth.CredentialAuthenticator.
//
// Revoked and expired deploy tokens still authenticate: they identify a
// principal with no registry capability, which resolves to empty grants
// instead of failing the whole request.
func (a StaticCredentialAuthenticator) Authenticate(_ context.Context, username string, password string) (auth.Principal, error) {
	if user, ok := a.users[username]; ok {
		if !verify(user.PasswordHash, password) {
			return nil, auth.ErrAuthenticationFailed
		}

		return auth.NewRequestPrincipal(auth.User{
			UserID:           user.UserID,
			Username:         user.Username,
			External:         user.External,
			Admin:            user.Admin,
			AdminModeEnabled: user.AdminModeEnabled,
		}), nil
	}

	if token, ok := a.deployTokens[username]; ok {
		if !verify(token.TokenHash, password) {
			return nil, auth.ErrAuthenticationFailed
		}

		return auth.DeployToken{
			TokenID:        token.TokenID,
			Username:       token.Username,
			ProjectIDs:     token.ProjectIDs,
			ReadRepository: token.ReadRepository,
			ReadRegistry:   token.ReadRegistry,
			WriteRegistry:  token.WriteRegistry,
			Revoked:        token.Revoked,
			Expired:        token.Expired,
		}, nil
	}

	if token, ok := a.buildTokens[username]; ok {
		if !verify(token.TokenHash, password) {
			return nil, auth.ErrAuthenticationFailed
		}

		return auth.BuildToken{
			JobID:                 token.JobID,
			ProjectID:             token.ProjectID,
			Username:              token.Username,
			ReadContainerImage:    token.ReadContainerImage,
			CreateContainerImage:  token.CreateContainerImage,
			DestroyContainerImage: token.DestroyContainerImage,
		}, nil
	}

	// timing attack paranoia
	bcrypt.CompareHashAndPassword([]byte{}, []byte(password))

	return nil, auth.ErrAuthenticationFailed
}

func verify(hash string, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
