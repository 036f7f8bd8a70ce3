package jwt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/docker/libtrust"
	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v4"
	"github.com/jonboulle/clockwork"

	"github.com/forgegate/registry-auth/auth"
)

type claims struct {
	jwt.RegisteredClaims

	Access []auth.Grant `json:"access"`

	// User is a nested signed blob carrying identifying metadata for audit
	// logging, so the registry never has to re-query who a token belonged to.
	User string `json:"user,omitempty"`

	AuthType string `json:"auth_type,omitempty"`
}

type userClaims struct {
	jwt.RegisteredClaims

	TokenType string `json:"token_type"`
	UserID    int64  `json:"user_id,omitempty"`
	Username  string `json:"username,omitempty"`
}

// IDGenerator generates the "jti" claim of issued tokens.
type IDGenerator interface {
	GenerateID() (string, error)
}

type uuidGenerator struct{}

func (uuidGenerator) GenerateID() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

// AccessTokenIssuer issues tokens according to the [Token Authentication Specification] and [Token Authentication Implementation].
//
// [Token Authentication Specification]: https://github.com/distribution/distribution/blob/main/docs/spec/auth/token.md
// [Token Authentication Implementation]: https://github.com/distribution/distribution/blob/main/docs/spec/auth/jwt.md
type AccessTokenIssuer struct {
	issuer     string
	signingKey libtrust.PrivateKey
	expiration time.Duration

	clock       clockwork.Clock
	idGenerator IDGenerator
}

// AccessTokenIssuerOption configures an AccessTokenIssuer.
type AccessTokenIssuerOption interface {
	applyAccessTokenIssuer(i *AccessTokenIssuer)
}

type withClock struct{ clock clockwork.Clock }

func (o withClock) applyAccessTokenIssuer(i *AccessTokenIssuer) { i.clock = o.clock }

// WithClock configures a clock (primarily for testing).
func WithClock(clock clockwork.Clock) AccessTokenIssuerOption {
	return withClock{clock: clock}
}

type withIDGenerator struct{ idGenerator IDGenerator }

func (o withIDGenerator) applyAccessTokenIssuer(i *AccessTokenIssuer) { i.idGenerator = o.idGenerator }

// WithIDGenerator configures an IDGenerator (primarily for testing).
func WithIDGenerator(idGenerator IDGenerator) AccessTokenIssuerOption {
	return withIDGenerator{idGenerator: idGenerator}
}

// NewAccessTokenIssuer returns a new AccessTokenIssuer.
func NewAccessTokenIssuer(issuer string, signingKey libtrust.PrivateKey, expiration time.Duration, opts ...AccessTokenIssuerOption) AccessTokenIssuer {
	i := AccessTokenIssuer{
		issuer:     issuer,
		signingKey: signingKey,
		expiration: expiration,
	}

	for _, opt := range opts {
		opt.applyAccessTokenIssuer(&i)
	}

	if i.clock == nil {
		i.clock = clockwork.NewRealClock()
	}

	if i.idGenerator == nil {
		i.idGenerator = uuidGenerator{}
	}

	return i
}

// DefaultExpiration applies when the issuer is constructed without one.
const DefaultExpiration = 10 * time.Minute

// IssueAccessToken implements auth.AccessTokenIssuer.
func (i AccessTokenIssuer) IssueAccessToken(_ context.Context, service string, principal auth.Principal, grants []auth.Grant) (auth.AccessToken, error) {
	alg, err := detectSigningMethod(i.signingKey)
	if err != nil {
		return auth.AccessToken{}, err
	}

	id, err := i.idGenerator.GenerateID()
	if err != nil {
		return auth.AccessToken{}, err
	}

	now := i.clock.Now()

	expiration := i.expiration
	if expiration == 0 {
		expiration = DefaultExpiration
	}

	userBlob, err := i.signUserBlob(alg, principal, now)
	if err != nil {
		return auth.AccessToken{}, err
	}

	claims := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   principal.ID(),
			Audience:  []string{service},
			ExpiresAt: jwt.NewNumericDate(now.Add(expiration)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        id,
		},
		Access:   grants,
		User:     userBlob,
		AuthType: authType(principal),
	}

	token := jwt.NewWithClaims(alg, claims)

	if x5c := i.signingKey.GetExtendedField("x5c"); x5c != nil {
		token.Header["x5c"] = x5c.([]string)
	} else {
		var jwkMessage json.RawMessage
		jwkMessage, err = i.signingKey.PublicKey().MarshalJSON()
		if err != nil {
			return auth.AccessToken{}, err
		}
		token.Header["jwk"] = &jwkMessage
	}

	signedToken, err := token.SignedString(i.signingKey.CryptoPrivateKey())
	if err != nil {
		return auth.AccessToken{}, err
	}

	return auth.AccessToken{
		Payload:   signedToken,
		ExpiresIn: expiration,
		IssuedAt:  now,
	}, nil
}

// signUserBlob signs the audit metadata of the principal with the same key as
// the surrounding token. Anonymous principals carry no blob.
func (i AccessTokenIssuer) signUserBlob(alg jwt.SigningMethod, principal auth.Principal, now time.Time) (string, error) {
	uc := userClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   i.issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}

	switch p := principal.(type) {
	case auth.Anonymous:
		return "", nil
	case auth.User:
		uc.TokenType = "personal_access_token"
		uc.UserID = p.UserID
		uc.Username = p.Username
	case auth.AdminOverride:
		uc.TokenType = "personal_access_token"
		uc.UserID = p.User.UserID
		uc.Username = p.User.Username
	case auth.DeployToken:
		uc.TokenType = "deploy_token"
		uc.UserID = p.TokenID
		uc.Username = p.Username
	case auth.BuildToken:
		uc.TokenType = "build"
		uc.UserID = p.JobID
		uc.Username = p.Username
	}

	return jwt.NewWithClaims(alg, uc).SignedString(i.signingKey.CryptoPrivateKey())
}

func authType(principal auth.Principal) string {
	switch principal.(type) {
	case auth.DeployToken:
		return "deploy_token"
	case auth.BuildToken:
		return "build"
	default:
		return ""
	}
}

func detectSigningMethod(signingKey libtrust.PrivateKey) (jwt.SigningMethod, error) {
	switch signingKey.KeyType() {
	case "RSA":
		return jwt.SigningMethodRS256, nil
	case "EC":
		return jwt.SigningMethodES256, nil
	default:
		return nil, fmt.Errorf("unsupported signing key type %q", signingKey.KeyType())
	}
}
