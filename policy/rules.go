package policy

import (
	"context"
	"fmt"
	"slices"
)

// Viewer represents the authenticated principal making a request.
// Applications implement this on their own user type.
type Viewer interface {
	// GetID returns the viewer's unique identifier.
	GetID() string
	// GetRoles returns the viewer's roles.
	GetRoles() []string
	// GetTenantID returns the viewer's tenant identifier, or the empty
	// string when multi-tenancy does not apply.
	GetTenantID() string
}

type viewerCtxKey struct{}

// WithViewer returns a new context with the viewer attached.
func WithViewer(ctx context.Context, viewer Viewer) context.Context {
	return context.WithValue(ctx, viewerCtxKey{}, viewer)
}

// ViewerFromContext retrieves the viewer from the context, or nil.
func ViewerFromContext(ctx context.Context) Viewer {
	v, _ := ctx.Value(viewerCtxKey{}).(Viewer)
	return v
}

// SimpleViewer is a basic Viewer implementation for tests and simple
// deployments.
type SimpleViewer struct {
	UserID   string
	Roles    []string
	TenantID string
}

// GetID returns the user ID.
func (v *SimpleViewer) GetID() string { return v.UserID }

// GetRoles returns the user's roles.
func (v *SimpleViewer) GetRoles() []string { return v.Roles }

// GetTenantID returns the tenant ID.
func (v *SimpleViewer) GetTenantID() string { return v.TenantID }

// DenyIfNoViewer returns a rule denying access when no viewer is present
// in the context. Typically the first rule of a policy.
func DenyIfNoViewer() QueryMutationRule {
	return ContextQueryMutationRule(func(ctx context.Context) error {
		if ViewerFromContext(ctx) == nil {
			return Denyf("restql/policy: viewer required")
		}
		return Skip
	})
}

// HasRole returns a rule allowing access when the viewer holds the role,
// skipping otherwise.
func HasRole(role string) QueryMutationRule {
	return ContextQueryMutationRule(func(ctx context.Context) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil {
			return Skip
		}
		if slices.Contains(viewer.GetRoles(), role) {
			return Allow
		}
		return Skip
	})
}

// HasAnyRole returns a rule allowing access when the viewer holds any of
// the roles, skipping otherwise.
func HasAnyRole(roles ...string) QueryMutationRule {
	return ContextQueryMutationRule(func(ctx context.Context) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil {
			return Skip
		}
		viewerRoles := viewer.GetRoles()
		for _, role := range roles {
			if slices.Contains(viewerRoles, role) {
				return Allow
			}
		}
		return Skip
	})
}

// IsOwner returns a mutation rule allowing the write when the record's
// field matches the viewer's ID, skipping otherwise.
func IsOwner(field string) MutationRule {
	return MutationRuleFunc(func(ctx context.Context, m *Mutation) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil {
			return Skip
		}
		value, ok := m.Field(field)
		if !ok {
			return Skip
		}
		if fmt.Sprintf("%v", value) == viewer.GetID() {
			return Allow
		}
		return Skip
	})
}

// TenantRule returns a mutation rule allowing the write when the record's
// field matches the viewer's tenant and denying on a mismatch.
func TenantRule(field string) MutationRule {
	return MutationRuleFunc(func(ctx context.Context, m *Mutation) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil {
			return Skip
		}
		viewerTenant := viewer.GetTenantID()
		if viewerTenant == "" {
			return Skip
		}
		value, ok := m.Field(field)
		if !ok {
			return Skip
		}
		if fmt.Sprintf("%v", value) == viewerTenant {
			return Allow
		}
		return Denyf("restql/policy: tenant mismatch")
	})
}

// TenantQueryRule returns a query rule scoping the result set to the
// viewer's tenant by adding an equality filter on the given column. It
// denies when no viewer or tenant is present.
func TenantQueryRule(column string) QueryRule {
	return QueryRuleFunc(func(ctx context.Context, q *Query) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil {
			return Denyf("restql/policy: viewer required for tenant-scoped query")
		}
		tenant := viewer.GetTenantID()
		if tenant == "" {
			return Denyf("restql/policy: tenant required")
		}
		q.Where[column] = tenant
		return Skip
	})
}

// FilterQueryRule returns a query rule that applies the given filters to
// every evaluated query and continues the chain.
func FilterQueryRule(filter func(ctx context.Context, q *Query)) QueryRule {
	return QueryRuleFunc(func(ctx context.Context, q *Query) error {
		filter(ctx, q)
		return Skip
	})
}
