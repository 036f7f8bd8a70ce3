package config

import (
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/forgegate/registry-auth/auth"
	"github.com/forgegate/registry-auth/auth/authn"
	"github.com/forgegate/registry-auth/pkg/slices"
)

var (
	authenticatorFactoriesMu sync.RWMutex
	authenticatorFactories   = make(map[string]CredentialAuthenticatorFactory)
)

// RegisterCredentialAuthenticatorFactory makes a CredentialAuthenticatorFactory
// available by the provided name in configuration.
//
// If RegisterCredentialAuthenticatorFactory is called twice with the same name
// or if factory is nil, it panics.
func RegisterCredentialAuthenticatorFactory(name string, factory CredentialAuthenticatorFactory) {
	authenticatorFactoriesMu.Lock()
	defer authenticatorFactoriesMu.Unlock()

	if factory == nil {
		panic("registering credential authenticator factory: factory is nil")
	}

	if _, dup := authenticatorFactories[name]; dup {
		panic("registering credential authenticator factory: registration called twice for factory " + name)
	}

	authenticatorFactories[name] = factory
}

func init() {
	RegisterCredentialAuthenticatorFactory("static", staticAuthenticator{})
}

// Authenticator is the configuration for an auth.CredentialAuthenticator.
type Authenticator struct {
	Config CredentialAuthenticatorFactory
}

func (c *Authenticator) UnmarshalYAML(value *yaml.Node) error {
	var rawConfig rawConfig

	err := value.Decode(&rawConfig)
	if err != nil {
		return err
	}

	authenticatorFactoriesMu.RLock()
	factory, ok := authenticatorFactories[rawConfig.Type]
	authenticatorFactoriesMu.RUnlock()

	if !ok {
		return fmt.Errorf("unknown credential authenticator type: %s", rawConfig.Type)
	}

	factory = factory.New()

	err = decode(rawConfig.Config, &factory)
	if err != nil {
		return err
	}

	c.Config = factory

	return nil
}

// CredentialAuthenticatorFactory creates a new auth.CredentialAuthenticator.
type CredentialAuthenticatorFactory interface {
	New() CredentialAuthenticatorFactory
	CreateCredentialAuthenticator() (auth.CredentialAuthenticator, error)
	Validate() error
}

type staticAuthenticator struct {
	Users []staticUser `mapstructure:"users"`

	DeployTokens []staticDeployToken `mapstructure:"deployTokens"`
	BuildTokens  []staticBuildToken  `mapstructure:"buildTokens"`
}

type staticUser struct {
	ID           int64  `mapstructure:"id"`
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"passwordHash"`

	External         bool `mapstructure:"external"`
	Admin            bool `mapstructure:"admin"`
	AdminModeEnabled bool `mapstructure:"adminModeEnabled"`
}

type staticDeployToken struct {
	ID        int64  `mapstructure:"id"`
	Username  string `mapstructure:"username"`
	TokenHash string `mapstructure:"tokenHash"`

	ProjectIDs []int64 `mapstructure:"projectIds"`

	ReadRepository bool `mapstructure:"readRepository"`
	ReadRegistry   bool `mapstructure:"readRegistry"`
	WriteRegistry  bool `mapstructure:"writeRegistry"`

	Revoked bool `mapstructure:"revoked"`
	Expired bool `mapstructure:"expired"`
}

type staticBuildToken struct {
	JobID     int64  `mapstructure:"jobId"`
	ProjectID int64  `mapstructure:"projectId"`
	Username  string `mapstructure:"username"`
	TokenHash string `mapstructure:"tokenHash"`

	ReadContainerImage    bool `mapstructure:"readContainerImage"`
	CreateContainerImage  bool `mapstructure:"createContainerImage"`
	DestroyContainerImage bool `mapstructure:"destroyContainerImage"`
}

func (c staticAuthenticator) New() CredentialAuthenticatorFactory {
	return staticAuthenticator{}
}

func (c staticAuthenticator) CreateCredentialAuthenticator() (auth.CredentialAuthenticator, error) {
	users := slices.Map(c.Users, func(v staticUser) authn.User {
		return authn.User{
			UserID:           v.ID,
			Username:         v.Username,
			PasswordHash:     v.PasswordHash,
			External:         v.External,
			Admin:            v.Admin,
			AdminModeEnabled: v.AdminModeEnabled,
		}
	})

	deployTokens := slices.Map(c.DeployTokens, func(v staticDeployToken) authn.DeployToken {
		return authn.DeployToken{
			TokenID:        v.ID,
			Username:       v.Username,
			TokenHash:      v.TokenHash,
			ProjectIDs:     v.ProjectIDs,
			ReadRepository: v.ReadRepository,
			ReadRegistry:   v.ReadRegistry,
			WriteRegistry:  v.WriteRegistry,
			Revoked:        v.Revoked,
			Expired:        v.Expired,
		}
	})

	buildTokens := slices.Map(c.BuildTokens, func(v staticBuildToken) authn.BuildToken {
		return authn.BuildToken{
			JobID:                 v.JobID,
			ProjectID:             v.ProjectID,
			Username:              v.Username,
			TokenHash:             v.TokenHash,
			ReadContainerImage:    v.ReadContainerImage,
			CreateContainerImage:  v.CreateContainerImage,
			DestroyContainerImage: v.DestroyContainerImage,
		}
	})

	return authn.NewStaticCredentialAuthenticator(users, deployTokens, buildTokens), nil
}

func (c staticAuthenticator) Validate() error {
	for i, user := range c.Users {
		if user.Username == "" {
			return fmt.Errorf("authenticator: static: users[%d]: username is required", i)
		}

		if user.PasswordHash == "" {
			return fmt.Errorf("authenticator: static: users[%d]: password hash is required", i)
		}
	}

	for i, token := range c.DeployTokens {
		if token.Username == "" {
			return fmt.Errorf("authenticator: static: deployTokens[%d]: username is required", i)
		}

		if token.TokenHash == "" {
			return fmt.Errorf("authenticator: static: deployTokens[%d]: token hash is required", i)
		}
	}

	for i, token := range c.BuildTokens {
		if token.Username == "" {
			return fmt.Errorf("authenticator: static: buildTokens[%d]: username is required", i)
		}

		if token.TokenHash == "" {
			return fmt.Errorf("authenticator: static: buildTokens[%d]: token hash is required", i)
		}
	}

	return nil
}
