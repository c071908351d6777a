package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// Grant is the flattened authorization surface of a set of roles: distinct
// role names, the distinct names of their active modules, and the distinct
// names of their usable permissions.
type Grant struct {
	Roles       []string `json:"roles"`
	Modules     []string `json:"modules"`
	Permissions []string `json:"permissions"`
}

// Profile is the identity payload returned to an authenticated caller.
type Profile struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	CreatedAt time.Time `json:"createdAt"`
	Grant
}

// GrantResolver flattens the role graph into the Grant shape consumed by
// clients. Inactive roles and inactive modules are filtered at the query,
// and a permission only survives when it is global or its owning module is
// active.
type GrantResolver struct {
	repo   RepositoryManager
	logger Logger
}

func NewGrantResolver(repo RepositoryManager, logger Logger) *GrantResolver {
	if logger == nil {
		logger = defLogger{}
	}
	return &GrantResolver{repo: repo, logger: logger}
}

// ResolveForUser builds the profile for an authenticated user.
func (r *GrantResolver) ResolveForUser(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	user, err := r.repo.Users().GetWithActiveRoleGraph(ctx, userID)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load role graph")
	}

	profile := &Profile{
		UserID:    user.ID.String(),
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Grant:     flattenRoles(user.Roles),
	}
	if user.CreatedAt != nil {
		profile.CreatedAt = *user.CreatedAt
	}

	return profile, nil
}

// ResolveGuest returns the grant for unauthenticated callers. A missing or
// inactive guest role degrades to an empty grant rather than an error, and
// the role list is always exactly ["guest"].
func (r *GrantResolver) ResolveGuest(ctx context.Context) *Grant {
	grant := &Grant{
		Roles:       []string{RoleGuest},
		Modules:     []string{},
		Permissions: []string{},
	}

	role, err := r.repo.Roles().GetActiveGraphByName(ctx, RoleGuest)
	if err != nil {
		if !repository.IsRecordNotFound(err) {
			r.logger.Warn("failed to load guest role graph: %v", err)
		}
		return grant
	}

	flat := flattenRoles([]*Role{role})
	grant.Modules = flat.Modules
	grant.Permissions = flat.Permissions
	return grant
}

func flattenRoles(roles []*Role) Grant {
	grant := Grant{
		Roles:       []string{},
		Modules:     []string{},
		Permissions: []string{},
	}

	seenRoles := map[string]bool{}
	seenModules := map[string]bool{}
	seenPermissions := map[string]bool{}

	for _, role := range roles {
		if role == nil {
			continue
		}

		if !seenRoles[role.Name] {
			seenRoles[role.Name] = true
			grant.Roles = append(grant.Roles, role.Name)
		}

		for _, mod := range role.Modules {
			if mod == nil || seenModules[mod.Name] {
				continue
			}
			seenModules[mod.Name] = true
			grant.Modules = append(grant.Modules, mod.Name)
		}

		for _, perm := range role.Permissions {
			if perm == nil || seenPermissions[perm.Name] {
				continue
			}
			// Module-scoped permissions are only usable while their module
			// is active; global permissions always are.
			if perm.Module != nil && !perm.Module.IsActive {
				continue
			}
			seenPermissions[perm.Name] = true
			grant.Permissions = append(grant.Permissions, perm.Name)
		}
	}

	return grant
}
