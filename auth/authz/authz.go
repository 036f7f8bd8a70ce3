package authz

import (
	"context"
	"fmt"
	"strings"

	optionlib "github.com/sagikazarmark/go-option"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"

	"github.com/forgegate/registry-auth/auth"
)

// Resolver resolves requested scopes into grants by reconciling project
// visibility, role membership, deploy-token and build-token capabilities,
// the admin override and the protection rule engines into one minimal result.
//
// Every decision is derived from the Principal snapshot and the facts read
// from the store during this request; nothing is cached across requests.
type Resolver struct {
	store auth.ProjectStore

	logger *zap.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption interface {
	applyResolver(r *Resolver)
}

type withLogger struct{ logger *zap.Logger }

func (o withLogger) applyResolver(r *Resolver) { r.logger = o.logger }

// WithLogger configures a logger.
func WithLogger(logger *zap.Logger) ResolverOption {
	return withLogger{logger: logger}
}

// NewResolver returns a new Resolver.
func NewResolver(store auth.ProjectStore, opts ...ResolverOption) Resolver {
	r := Resolver{
		store: store,
	}

	for _, opt := range opts {
		opt.applyResolver(&r)
	}

	if r.logger == nil {
		r.logger = zap.NewNop()
	}

	return r
}

// Authorize implements auth.Authorizer.
//
// One grant is returned per requested scope, in request order. Denial is
// expressed as an empty action list, never as an error.
func (r Resolver) Authorize(ctx context.Context, principal auth.Principal, requestedScopes []auth.Scope) ([]auth.Grant, error) {
	grants := make([]auth.Grant, 0, len(requestedScopes))

	for _, scope := range requestedScopes {
		grant, err := r.resolveScope(ctx, principal, scope)
		if err != nil {
			return nil, fmt.Errorf("resolving scope %q: %w", scope.String(), err)
		}

		if len(grant.Actions) == 0 {
			if len(scope.Actions) > 0 {
				r.logger.Warn("denied container registry permissions",
					zap.String("scope_type", scope.Type),
					zap.String("requested_path", scope.Name),
					zap.Strings("requested_actions", scope.Actions),
					zap.Strings("authorized_actions", grant.Actions),
					zap.String("principal", principal.ID()),
				)
			}

			// Denied repository scopes are echoed with empty actions so
			// clients can tell them apart from dropped ones; denied
			// registry scopes are dropped outright.
			if scope.Type == auth.ResourceTypeRegistry {
				continue
			}
		}

		grants = append(grants, grant)
	}

	return grants, nil
}

func (r Resolver) resolveScope(ctx context.Context, principal auth.Principal, scope auth.Scope) (auth.Grant, error) {
	grant := auth.Grant{
		Type:    scope.Type,
		Name:    scope.Name,
		Actions: []string{},
	}

	switch scope.Type {
	case auth.ResourceTypeRegistry:
		// Catalog browsing is admin-only, regardless of any role.
		if scope.Name != "catalog" {
			return grant, nil
		}

		if _, ok := principal.(auth.AdminOverride); !ok {
			return grant, nil
		}

		for _, action := range scope.Actions {
			if knownAction(action) {
				grant.Actions = append(grant.Actions, action)
			}
		}

		return grant, nil
	case auth.ResourceTypeRepository:
		return r.resolveRepositoryScope(ctx, principal, scope, grant)
	default:
		r.logger.Debug("unsupported resource type in scope", zap.String("type", scope.Type))

		return grant, nil
	}
}

func (r Resolver) resolveRepositoryScope(ctx context.Context, principal auth.Principal, scope auth.Scope, grant auth.Grant) (auth.Grant, error) {
	// A trailing "/*" requests the path and everything nested below it;
	// authority is decided by the containing project either way.
	repositoryPath := strings.TrimSuffix(scope.Name, "/*")

	optionalProject, err := r.store.ResolveProject(ctx, repositoryPath)
	if err != nil {
		return auth.Grant{}, err
	}

	if optionlib.IsNone[auth.Project](optionalProject) {
		return grant, nil
	}

	project := optionlib.Unwrap[auth.Project](optionalProject)

	if !project.RegistryEnabled {
		return grant, nil
	}

	level, err := r.effectiveLevel(ctx, principal, project)
	if err != nil {
		return auth.Grant{}, err
	}

	pull, push, del, err := r.baseActions(ctx, principal, project, level)
	if err != nil {
		return auth.Grant{}, err
	}

	if push {
		rules, err := r.store.ProtectionRulesFor(ctx, project)
		if err != nil {
			return auth.Grant{}, err
		}

		if minimum, protected := EffectiveMinimumPushLevel(rules, repositoryPath); protected && level < minimum {
			push = false
		}
	}

	for _, action := range scope.Actions {
		switch action {
		case auth.ActionPull:
			if pull {
				grant.Actions = append(grant.Actions, action)
			}
		case auth.ActionPush:
			if push {
				grant.Actions = append(grant.Actions, action)
			}
		case auth.ActionDelete:
			if del {
				grant.Actions = append(grant.Actions, action)
			}
		case auth.ActionAll:
			// "*" is atomic: granted only when every action would be.
			if pull && push && del {
				grant.Actions = append(grant.Actions, action)
			}
		}
	}

	if len(grant.Actions) == 0 {
		// No metadata on denied scopes; the echoed name is all a client
		// without access learns about the project.
		return grant, nil
	}

	grant.Meta = &auth.GrantMeta{
		ProjectPath:     project.FullPath,
		ProjectID:       project.ID,
		RootNamespaceID: project.RootNamespaceID,
	}

	if grantsWrite(grant.Actions) {
		tagRules, err := r.store.TagProtectionRulesFor(ctx, project)
		if err != nil {
			return auth.Grant{}, err
		}

		grant.Meta.TagDenyAccessPatterns = TagDenyAccessPatterns(tagRules, level)
	}

	return grant, nil
}

// effectiveLevel is the access level used for protection rule comparisons.
// The admin override counts as the admin tier, above any membership.
func (r Resolver) effectiveLevel(ctx context.Context, principal auth.Principal, project auth.Project) (auth.AccessLevel, error) {
	switch p := principal.(type) {
	case auth.AdminOverride:
		return auth.LevelAdmin, nil
	case auth.User:
		return r.store.RoleOf(ctx, p, project)
	default:
		return auth.LevelNone, nil
	}
}

func (r Resolver) baseActions(ctx context.Context, principal auth.Principal, project auth.Project, level auth.AccessLevel) (pull, push, del bool, err error) {
	switch p := principal.(type) {
	case auth.Anonymous:
		pull = project.AnonymousPullable()
	case auth.User:
		pull = level >= auth.LevelReporter ||
			(!p.External && project.MemberlessPullable()) ||
			project.AnonymousPullable()
		push = level >= auth.LevelDeveloper
		del = level >= auth.LevelMaintainer
	case auth.DeployToken:
		associated, aerr := r.store.DeployTokenHasAccess(ctx, p, project)
		if aerr != nil {
			return false, false, false, aerr
		}

		usable := p.Valid() && associated
		pull = (usable && p.ReadRegistry) || project.AnonymousPullable()
		push = usable && p.WriteRegistry
		del = usable && p.WriteRegistry
	case auth.BuildToken:
		if p.ProjectID == project.ID {
			pull = p.ReadContainerImage
			push = p.CreateContainerImage
			del = p.DestroyContainerImage
		} else {
			// Job tokens only carry authority in their own project;
			// elsewhere they are no better than anonymous.
			pull = project.AnonymousPullable()
		}
	case auth.AdminOverride:
		pull, push, del = true, true, true
	}

	return pull, push, del, nil
}

func grantsWrite(actions []string) bool {
	return slices.Contains(actions, auth.ActionPush) ||
		slices.Contains(actions, auth.ActionDelete) ||
		slices.Contains(actions, auth.ActionAll)
}

func knownAction(action string) bool {
	switch action {
	case auth.ActionPull, auth.ActionPush, auth.ActionDelete, auth.ActionAll:
		return true
	}

	return false
}
