package auth

import (
	"context"
	"errors"
)

// ErrAuthenticationFailed is returned when credential verification fails.
//
// Any other error (eg. connection problems) should be returned directly.
var ErrAuthenticationFailed = errors.New("authentication failed")

// CredentialAuthenticator resolves basic-auth credentials into a Principal.
//
// The returned Principal is a complete snapshot (including the admin-mode
// flag); nothing about it is re-read during the rest of the request.
// It returns ErrAuthenticationFailed when credentials are present but invalid.
type CredentialAuthenticator interface {
	Authenticate(ctx context.Context, username string, password string) (Principal, error)
}
