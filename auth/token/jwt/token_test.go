package jwt

import (
	"context"
	"testing"
	"time"

	"github.com/docker/libtrust"
	"github.com/golang-jwt/jwt/v4"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgegate/registry-auth/auth"
)

type idGeneratorStub struct {
	id string
}

func (g idGeneratorStub) GenerateID() (string, error) {
	return g.id, nil
}

func newIssuer(t *testing.T) (AccessTokenIssuer, libtrust.PrivateKey, clockwork.FakeClock) {
	t.Helper()

	signingKey, err := libtrust.GenerateECP256PrivateKey()
	require.NoError(t, err)

	clock := clockwork.NewFakeClockAt(time.Now().Truncate(time.Second))

	issuer := NewAccessTokenIssuer(
		"issuer.example.com",
		signingKey,
		15*time.Minute,
		WithClock(clock),
		WithIDGenerator(idGeneratorStub{id: "token-id"}),
	)

	return issuer, signingKey, clock
}

func parseToken(t *testing.T, signingKey libtrust.PrivateKey, payload string) claims {
	t.Helper()

	var parsed claims

	_, err := jwt.ParseWithClaims(payload, &parsed, func(token *jwt.Token) (interface{}, error) {
		return signingKey.CryptoPublicKey(), nil
	})
	require.NoError(t, err)

	return parsed
}

func TestAccessTokenIssuer_IssueAccessToken(t *testing.T) {
	issuer, signingKey, clock := newIssuer(t)

	grants := []auth.Grant{
		{
			Type:    "repository",
			Name:    "group/project",
			Actions: []string{"pull", "push"},
			Meta: &auth.GrantMeta{
				ProjectPath:     "group/project",
				ProjectID:       1,
				RootNamespaceID: 10,
			},
		},
	}

	principal := auth.User{UserID: 42, Username: "user"}

	token, err := issuer.IssueAccessToken(context.Background(), "container_registry", principal, grants)
	require.NoError(t, err)

	assert.Equal(t, 15*time.Minute, token.ExpiresIn)
	assert.Equal(t, clock.Now(), token.IssuedAt)

	parsed := parseToken(t, signingKey, token.Payload)

	assert.Equal(t, "issuer.example.com", parsed.Issuer)
	assert.Equal(t, principal.ID(), parsed.Subject)
	assert.Equal(t, jwt.ClaimStrings{"container_registry"}, parsed.Audience)
	assert.Equal(t, "token-id", parsed.ID)
	assert.Equal(t, clock.Now().Unix(), parsed.IssuedAt.Unix())
	assert.Equal(t, clock.Now().Unix(), parsed.NotBefore.Unix())
	assert.Equal(t, clock.Now().Add(15*time.Minute).Unix(), parsed.ExpiresAt.Unix())
	assert.Equal(t, grants, parsed.Access)
	assert.Empty(t, parsed.AuthType)

	var user userClaims

	_, err = jwt.ParseWithClaims(parsed.User, &user, func(token *jwt.Token) (interface{}, error) {
		return signingKey.CryptoPublicKey(), nil
	})
	require.NoError(t, err)

	assert.Equal(t, "personal_access_token", user.TokenType)
	assert.Equal(t, int64(42), user.UserID)
	assert.Equal(t, "user", user.Username)
}

func TestAccessTokenIssuer_IssueAccessToken_Header(t *testing.T) {
	issuer, signingKey, _ := newIssuer(t)

	token, err := issuer.IssueAccessToken(context.Background(), "container_registry", auth.Anonymous{}, []auth.Grant{})
	require.NoError(t, err)

	parsed, err := jwt.Parse(token.Payload, func(token *jwt.Token) (interface{}, error) {
		return signingKey.CryptoPublicKey(), nil
	})
	require.NoError(t, err)

	assert.Equal(t, "ES256", parsed.Header["alg"])
	assert.Contains(t, parsed.Header, "jwk")
}

func TestAccessTokenIssuer_IssueAccessToken_RSA(t *testing.T) {
	signingKey, err := libtrust.GenerateRSA2048PrivateKey()
	require.NoError(t, err)

	issuer := NewAccessTokenIssuer("issuer.example.com", signingKey, time.Minute)

	token, err := issuer.IssueAccessToken(context.Background(), "container_registry", auth.Anonymous{}, []auth.Grant{})
	require.NoError(t, err)

	parsed, err := jwt.Parse(token.Payload, func(token *jwt.Token) (interface{}, error) {
		return signingKey.CryptoPublicKey(), nil
	})
	require.NoError(t, err)

	assert.Equal(t, "RS256", parsed.Header["alg"])
}

func TestAccessTokenIssuer_IssueAccessToken_Anonymous(t *testing.T) {
	issuer, signingKey, _ := newIssuer(t)

	token, err := issuer.IssueAccessToken(context.Background(), "container_registry", auth.Anonymous{}, []auth.Grant{})
	require.NoError(t, err)

	parsed := parseToken(t, signingKey, token.Payload)

	assert.Empty(t, parsed.User)
	assert.Empty(t, parsed.AuthType)
}

func TestAccessTokenIssuer_IssueAccessToken_AuthType(t *testing.T) {
	issuer, signingKey, _ := newIssuer(t)

	t.Run("DeployToken", func(t *testing.T) {
		principal := auth.DeployToken{TokenID: 7, Username: "deploy-token-7", ProjectIDs: []int64{1}, ReadRegistry: true}

		token, err := issuer.IssueAccessToken(context.Background(), "container_registry", principal, []auth.Grant{})
		require.NoError(t, err)

		parsed := parseToken(t, signingKey, token.Payload)

		assert.Equal(t, "deploy_token", parsed.AuthType)

		var user userClaims

		_, err = jwt.ParseWithClaims(parsed.User, &user, func(token *jwt.Token) (interface{}, error) {
			return signingKey.CryptoPublicKey(), nil
		})
		require.NoError(t, err)

		assert.Equal(t, "deploy_token", user.TokenType)
		assert.Equal(t, int64(7), user.UserID)
	})

	t.Run("BuildToken", func(t *testing.T) {
		principal := auth.BuildToken{JobID: 9, ProjectID: 1, Username: "ci-job-9"}

		token, err := issuer.IssueAccessToken(context.Background(), "container_registry", principal, []auth.Grant{})
		require.NoError(t, err)

		parsed := parseToken(t, signingKey, token.Payload)

		assert.Equal(t, "build", parsed.AuthType)
	})
}

func TestAccessTokenIssuer_DefaultExpiration(t *testing.T) {
	signingKey, err := libtrust.GenerateECP256PrivateKey()
	require.NoError(t, err)

	issuer := NewAccessTokenIssuer("issuer.example.com", signingKey, 0)

	token, err := issuer.IssueAccessToken(context.Background(), "container_registry", auth.Anonymous{}, []auth.Grant{})
	require.NoError(t, err)

	assert.Equal(t, DefaultExpiration, token.ExpiresIn)
}
