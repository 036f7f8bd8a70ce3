package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/forgegate/registry-auth/auth"
	"github.com/forgegate/registry-auth/auth/store"
)

// Store is the configuration for an auth.ProjectStore.
type Store struct {
	Config StoreFactory
}

func (c *Store) UnmarshalYAML(value *yaml.Node) error {
	var rawConfig rawConfig

	err := value.Decode(&rawConfig)
	if err != nil {
		return err
	}

	var config StoreFactory

	switch rawConfig.Type {
	case "memory":
		var factory memoryStore

		err := decode(rawConfig.Config, &factory)
		if err != nil {
			return err
		}

		config = factory
	default:
		return fmt.Errorf("unknown store type: %s", rawConfig.Type)
	}

	c.Config = config

	return nil
}

// StoreFactory creates a new auth.ProjectStore.
type StoreFactory interface {
	CreateStore() (auth.ProjectStore, error)
	Validate() error
}

type memoryStore struct {
	Projects []memoryProject `mapstructure:"projects"`
}

type memoryProject struct {
	ID              int64  `mapstructure:"id"`
	Path            string `mapstructure:"path"`
	RootNamespaceID int64  `mapstructure:"rootNamespaceId"`

	Visibility         string `mapstructure:"visibility"`
	RegistryVisibility string `mapstructure:"registryVisibility"`
	RegistryEnabled    bool   `mapstructure:"registryEnabled"`
	ForkNetworkID      int64  `mapstructure:"forkNetworkId"`

	Members            []memoryMember            `mapstructure:"members"`
	ProtectionRules    []memoryProtectionRule    `mapstructure:"protectionRules"`
	TagProtectionRules []memoryTagProtectionRule `mapstructure:"tagProtectionRules"`
}

type memoryMember struct {
	UserID int64  `mapstructure:"userId"`
	Level  string `mapstructure:"level"`
}

type memoryProtectionRule struct {
	RepositoryPathPattern     string `mapstructure:"repositoryPathPattern"`
	MinimumAccessLevelForPush string `mapstructure:"minimumAccessLevelForPush"`
}

type memoryTagProtectionRule struct {
	TagNamePattern              string `mapstructure:"tagNamePattern"`
	MinimumAccessLevelForPush   string `mapstructure:"minimumAccessLevelForPush"`
	MinimumAccessLevelForDelete string `mapstructure:"minimumAccessLevelForDelete"`
}

func (c memoryStore) CreateStore() (auth.ProjectStore, error) {
	records := make([]store.ProjectRecord, 0, len(c.Projects))

	for _, p := range c.Projects {
		record := store.ProjectRecord{
			Project: auth.Project{
				ID:                 p.ID,
				FullPath:           p.Path,
				RootNamespaceID:    p.RootNamespaceID,
				Visibility:         auth.Visibility(p.Visibility),
				RegistryVisibility: auth.Visibility(p.RegistryVisibility),
				RegistryEnabled:    p.RegistryEnabled,
				ForkNetworkID:      p.ForkNetworkID,
			},
		}

		for _, m := range p.Members {
			level, err := auth.ParseAccessLevel(m.Level)
			if err != nil {
				return nil, fmt.Errorf("store: project %q: %w", p.Path, err)
			}

			record.Members = append(record.Members, store.Member{
				UserID: m.UserID,
				Level:  level,
			})
		}

		for _, r := range p.ProtectionRules {
			level, err := auth.ParseAccessLevel(r.MinimumAccessLevelForPush)
			if err != nil {
				return nil, fmt.Errorf("store: project %q: %w", p.Path, err)
			}

			record.ProtectionRules = append(record.ProtectionRules, auth.ProtectionRule{
				RepositoryPathPattern:     r.RepositoryPathPattern,
				MinimumAccessLevelForPush: level,
			})
		}

		for _, r := range p.TagProtectionRules {
			pushLevel, err := auth.ParseAccessLevel(r.MinimumAccessLevelForPush)
			if err != nil {
				return nil, fmt.Errorf("store: project %q: %w", p.Path, err)
			}

			deleteLevel, err := auth.ParseAccessLevel(r.MinimumAccessLevelForDelete)
			if err != nil {
				return nil, fmt.Errorf("store: project %q: %w", p.Path, err)
			}

			record.TagProtectionRules = append(record.TagProtectionRules, auth.TagProtectionRule{
				TagNamePattern:              r.TagNamePattern,
				MinimumAccessLevelForPush:   pushLevel,
				MinimumAccessLevelForDelete: deleteLevel,
			})
		}

		records = append(records, record)
	}

	return store.NewInMemoryStore(records), nil
}

func (c memoryStore) Validate() error {
	for i, p := range c.Projects {
		if p.Path == "" {
			return fmt.Errorf("store: memory: projects[%d]: path is required", i)
		}

		if p.ID == 0 {
			return fmt.Errorf("store: memory: projects[%d]: id is required", i)
		}
	}

	return nil
}
