package auth

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// TokenService implements the server side of the [Docker Registry v2 authentication] specification.
//
// [Docker Registry v2 authentication]: https://github.com/distribution/distribution/blob/main/docs/spec/auth/token.md
type TokenService interface {
	TokenHandler(ctx context.Context, r TokenRequest) (TokenResponse, error)
}

// TokenRequest is a decoded token endpoint request.
type TokenRequest struct {
	Service      string
	ClientID     string
	Account      string
	OfflineToken bool
	Scopes       []string

	Anonymous bool
	Username  string
	Password  string
}

// TokenResponse is the token endpoint response body.
type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in,omitempty"`
	IssuedAt  string `json:"issued_at,omitempty"`
}

// TokenServiceImpl resolves and issues registry access tokens.
//
// The pipeline is fixed: authenticate the credentials into a Principal
// snapshot, parse the scopes, resolve every scope into a grant, then sign one
// token covering all of them. Everything, including the internal access-token
// helpers, goes through the same pipeline.
type TokenServiceImpl struct {
	Authenticator CredentialAuthenticator
	Authorizer    Authorizer
	Issuer        AccessTokenIssuer

	// Service is the audience used by the internal token helpers.
	Service string

	Logger  *zap.Logger
	Metrics TokenMetrics
}

// TokenMetrics counts token endpoint outcomes.
// All methods must accept a nil receiver being absent; see pkg/metrics.
type TokenMetrics interface {
	TokenIssued(grantedActions int)
	RequestDenied(reason string)
}

// TokenHandler implements the [Docker Registry v2 authentication] specification.
//
// [Docker Registry v2 authentication]: https://github.com/distribution/distribution/blob/main/docs/spec/auth/token.md
func (s TokenServiceImpl) TokenHandler(ctx context.Context, r TokenRequest) (TokenResponse, error) {
	principal := Principal(Anonymous{})

	if !r.Anonymous {
		var err error

		principal, err = s.Authenticator.Authenticate(ctx, r.Username, r.Password)
		if err != nil {
			s.countDenied("authentication")

			return TokenResponse{}, err
		}
	}

	scopes, err := ParseScopes(r.Scopes)
	if err != nil {
		s.countDenied("malformed_scope")

		return TokenResponse{}, fmt.Errorf("%w: %s", ErrInvalidScope, err)
	}

	token, err := s.issue(ctx, r.Service, principal, scopes)
	if err != nil {
		return TokenResponse{}, err
	}

	return TokenResponse{
		Token:     token.Payload,
		ExpiresIn: int(token.ExpiresIn.Seconds()),
		IssuedAt:  token.IssuedAt.UTC().Format(time.RFC3339),
	}, nil
}

func (s TokenServiceImpl) issue(ctx context.Context, service string, principal Principal, scopes Scopes) (AccessToken, error) {
	grants, err := s.Authorizer.Authorize(ctx, principal, scopes)
	if err != nil {
		// Fail closed: an unresolvable request never becomes an open one.
		s.logger().Warn("access resolution failed", zap.Error(err))
		s.countDenied("resolution_failed")

		return AccessToken{}, fmt.Errorf("%w: resolving access: %s", ErrUnauthorized, err)
	}

	granted := GrantedActions(grants)

	// A scope-less request is a login probe: it succeeds only for principals
	// holding a registry-capable credential. A request with scopes succeeds
	// even when everything resolved empty, unless the principal is anonymous,
	// in which case 403 prompts the client to retry with credentials.
	if len(scopes) == 0 {
		if !registryLoginable(principal) {
			s.countDenied("login")

			return AccessToken{}, ErrUnauthorized
		}
	} else if granted == 0 {
		if _, anonymous := principal.(Anonymous); anonymous {
			s.countDenied("anonymous")

			return AccessToken{}, ErrUnauthorized
		}
	}

	token, err := s.Issuer.IssueAccessToken(ctx, service, principal, grants)
	if err != nil {
		return AccessToken{}, err
	}

	if s.Metrics != nil {
		s.Metrics.TokenIssued(granted)
	}

	return token, nil
}

// FullAccessToken issues an internal token with every action on the given
// repository path. Used by housekeeping tasks that act on behalf of the
// instance itself.
func (s TokenServiceImpl) FullAccessToken(ctx context.Context, path string) (AccessToken, error) {
	return s.internalToken(ctx, Scope{
		Resource: Resource{Type: ResourceTypeRepository, Name: path},
		Actions:  []string{ActionAll},
	})
}

// PullAccessToken issues an internal pull-only token for the given path.
func (s TokenServiceImpl) PullAccessToken(ctx context.Context, path string) (AccessToken, error) {
	return s.internalToken(ctx, Scope{
		Resource: Resource{Type: ResourceTypeRepository, Name: path},
		Actions:  []string{ActionPull},
	})
}

// PushPullAccessToken issues an internal push+pull token for the given path.
func (s TokenServiceImpl) PushPullAccessToken(ctx context.Context, path string) (AccessToken, error) {
	return s.internalToken(ctx, Scope{
		Resource: Resource{Type: ResourceTypeRepository, Name: path},
		Actions:  []string{ActionPull, ActionPush},
	})
}

// PushPullMoveAccessToken issues an internal token for moving a repository
// across namespaces: pull+push on the current path and push on the new one.
func (s TokenServiceImpl) PushPullMoveAccessToken(ctx context.Context, path string, newPath string) (AccessToken, error) {
	return s.internalToken(ctx,
		Scope{
			Resource: Resource{Type: ResourceTypeRepository, Name: path},
			Actions:  []string{ActionPull, ActionPush},
		},
		Scope{
			Resource: Resource{Type: ResourceTypeRepository, Name: newPath},
			Actions:  []string{ActionPull, ActionPush},
		},
	)
}

// internalPrincipal acts on behalf of the instance itself. It deliberately
// runs through the ordinary resolver instead of short-circuiting it.
var internalPrincipal = AdminOverride{
	User: User{
		Username:         "registry-internal",
		Admin:            true,
		AdminModeEnabled: true,
	},
}

func (s TokenServiceImpl) internalToken(ctx context.Context, scopes ...Scope) (AccessToken, error) {
	return s.issue(ctx, s.Service, internalPrincipal, scopes)
}

func (s TokenServiceImpl) countDenied(reason string) {
	if s.Metrics != nil {
		s.Metrics.RequestDenied(reason)
	}
}

func (s TokenServiceImpl) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}

	return s.Logger
}

func registryLoginable(principal Principal) bool {
	switch p := principal.(type) {
	case Anonymous:
		return false
	case DeployToken:
		return p.Valid() && (p.ReadRegistry || p.WriteRegistry)
	case BuildToken:
		return p.ReadContainerImage || p.CreateContainerImage || p.DestroyContainerImage
	default:
		return true
	}
}
