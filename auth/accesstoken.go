package auth

import (
	"context"
	"time"
)

// AccessToken is a credential issued to a registry client described in the [Token Authentication Specification].
//
// [Token Authentication Specification]: https://github.com/distribution/distribution/blob/main/docs/spec/auth/token.md
type AccessToken struct {
	Payload string

	ExpiresIn time.Duration
	IssuedAt  time.Time
}

// AccessTokenIssuer issues a token described in the [Token Authentication Specification].
//
// [Token Authentication Specification]: https://github.com/distribution/distribution/blob/main/docs/spec/auth/token.md
type AccessTokenIssuer interface {
	IssueAccessToken(ctx context.Context, service string, principal Principal, grants []Grant) (AccessToken, error)
}
