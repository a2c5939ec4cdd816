package rbac

import (
	"context"
	"fmt"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultGraphCacheSize = 64

// Graph answers role to permission questions. Resolved permission sets are
// cached per role; Invalidate must be called after any grant or revoke so
// the next check reloads from the database.
type Graph struct {
	repo  Repository
	cache *lru.Cache[string, map[string]struct{}]
}

// NewGraph builds a permission graph over the rbac repository.
func NewGraph(repo Repository) (*Graph, error) {
	if repo == nil {
		return nil, fmt.Errorf("rbac graph requires a repository")
	}
	cache, err := lru.New[string, map[string]struct{}](defaultGraphCacheSize)
	if err != nil {
		return nil, fmt.Errorf("building role cache: %w", err)
	}
	return &Graph{repo: repo, cache: cache}, nil
}

// PermissionKey is the canonical "resource:action" form used throughout
// checks and the seeded catalog.
func PermissionKey(resource, action string) string {
	return resource + ":" + action
}

// HasPermission reports whether the role holds resource:action. Lookup
// failures surface as errors so callers can deny access.
func (g *Graph) HasPermission(ctx context.Context, role, resource, action string) (bool, error) {
	set, err := g.load(ctx, role)
	if err != nil {
		return false, err
	}
	_, ok := set[PermissionKey(resource, action)]
	return ok, nil
}

// HasAny reports whether the role holds at least one of the given keys.
func (g *Graph) HasAny(ctx context.Context, role string, keys ...string) (bool, error) {
	set, err := g.load(ctx, role)
	if err != nil {
		return false, err
	}
	for _, key := range keys {
		if _, ok := set[key]; ok {
			return true, nil
		}
	}
	return false, nil
}

// HasAll reports whether the role holds every one of the given keys.
func (g *Graph) HasAll(ctx context.Context, role string, keys ...string) (bool, error) {
	set, err := g.load(ctx, role)
	if err != nil {
		return false, err
	}
	for _, key := range keys {
		if _, ok := set[key]; !ok {
			return false, nil
		}
	}
	return true, nil
}

// Permissions returns the role's permission keys sorted alphabetically.
func (g *Graph) Permissions(ctx context.Context, role string) ([]string, error) {
	set, err := g.load(ctx, role)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// Invalidate drops the cached permission set for one role.
func (g *Graph) Invalidate(role string) {
	g.cache.Remove(role)
}

// Reset drops every cached role.
func (g *Graph) Reset() {
	g.cache.Purge()
}

func (g *Graph) load(ctx context.Context, role string) (map[string]struct{}, error) {
	if set, ok := g.cache.Get(role); ok {
		return set, nil
	}

	permissions, err := g.repo.PermissionsForRole(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("loading permissions for role %q: %w", role, err)
	}

	set := make(map[string]struct{}, len(permissions))
	for _, permission := range permissions {
		set[PermissionKey(permission.Resource, permission.Action)] = struct{}{}
	}
	g.cache.Add(role, set)
	return set, nil
}
