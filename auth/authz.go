package auth

import (
	"context"
	"errors"
)

// ErrUnauthorized is returned when nothing could be granted at all:
// a scope-less request from a principal that cannot authenticate to the
// registry, or an anonymous request that resolved to zero actions.
// It maps to HTTP 403 and no token is issued.
var ErrUnauthorized = errors.New("unauthorized")

// ErrInvalidScope is returned for a syntactically malformed scope string.
// This is a client error, distinct from a well-formed scope that resolves to
// an empty grant.
var ErrInvalidScope = errors.New("invalid scope")

// Authorizer resolves requested scopes into grants for a principal.
//
// A grant is returned for every requested scope, order preserved, with the
// granted actions possibly empty. Resolution never errors because access is
// denied; an error means resolution itself failed (eg. the backing store was
// unreachable) and the request must fail closed.
type Authorizer interface {
	Authorize(ctx context.Context, principal Principal, requestedScopes []Scope) ([]Grant, error)
}
