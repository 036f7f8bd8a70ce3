// Package config loads the service configuration from YAML.
//
// Component sections carry a type discriminator and an opaque config map that
// is decoded by the factory registered for the type, so alternative
// implementations (eg. a database-backed store) plug in without touching this
// package.
package config

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Config collects all configuration options.
type Config struct {
	Authenticator     Authenticator     `yaml:"authenticator"`
	AccessTokenIssuer AccessTokenIssuer `yaml:"accessTokenIssuer"`
	Store             Store             `yaml:"store"`
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.Authenticator.Config == nil {
		return fmt.Errorf("authenticator is required")
	}

	if err := c.Authenticator.Config.Validate(); err != nil {
		return err
	}

	if c.AccessTokenIssuer.Config == nil {
		return fmt.Errorf("access token issuer is required")
	}

	if err := c.AccessTokenIssuer.Config.Validate(); err != nil {
		return err
	}

	if c.Store.Config == nil {
		return fmt.Errorf("store is required")
	}

	return c.Store.Config.Validate()
}

// rawConfig is a general struct to be used by other config structs to unmarshal yaml config first.
type rawConfig struct {
	Type   string                 `yaml:"type"`
	Config map[string]interface{} `yaml:"config"`
}

func decode(input interface{}, output interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
		WeaklyTypedInput: true,
		Result:           output,
	})
	if err != nil {
		return err
	}

	return decoder.Decode(input)
}
