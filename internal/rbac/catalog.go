package rbac

// Resource names used across permission checks.
const (
	ResourceUsers         = "users"
	ResourceProfiles      = "profiles"
	ResourceNotifications = "notifications"
	ResourceLogs          = "logs"
	ResourceRoles         = "roles"
)

// Action names used across permission checks.
const (
	ActionCreate      = "create"
	ActionRead        = "read"
	ActionUpdate      = "update"
	ActionDelete      = "delete"
	ActionList        = "list"
	ActionActivate    = "activate"
	ActionDeactivate  = "deactivate"
	ActionManageRoles = "manage_roles"
	ActionSend        = "send"
	ActionGrant       = "grant"
	ActionRevoke      = "revoke"
)

// Built-in role names. Every user holds exactly one of these unless an
// admin has created additional roles.
const (
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
	RoleUser      = "user"
)

// CatalogEntry describes one seeded permission.
type CatalogEntry struct {
	Resource    string
	Action      string
	Description string
}

// Name returns the canonical permission name.
func (e CatalogEntry) Name() string {
	return PermissionKey(e.Resource, e.Action)
}

// Catalog is the full permission catalog seeded at bootstrap. It mirrors
// the seed migration so tests and dev environments can build the same
// graph without running goose.
func Catalog() []CatalogEntry {
	return []CatalogEntry{
		{ResourceUsers, ActionCreate, "Create user accounts"},
		{ResourceUsers, ActionRead, "Read any user account"},
		{ResourceUsers, ActionUpdate, "Update any user account"},
		{ResourceUsers, ActionDelete, "Delete user accounts"},
		{ResourceUsers, ActionList, "List and filter user accounts"},
		{ResourceUsers, ActionActivate, "Activate user accounts"},
		{ResourceUsers, ActionDeactivate, "Deactivate user accounts"},
		{ResourceUsers, ActionManageRoles, "Change the role of a user"},
		{ResourceProfiles, ActionRead, "Read any profile"},
		{ResourceProfiles, ActionUpdate, "Update any profile"},
		{ResourceProfiles, ActionDelete, "Delete profiles"},
		{ResourceProfiles, ActionList, "List and filter profiles"},
		{ResourceNotifications, ActionCreate, "Create notifications for any user"},
		{ResourceNotifications, ActionRead, "Read any notification"},
		{ResourceNotifications, ActionUpdate, "Update any notification"},
		{ResourceNotifications, ActionDelete, "Delete notifications"},
		{ResourceNotifications, ActionList, "List and filter notifications"},
		{ResourceNotifications, ActionSend, "Trigger notification dispatch"},
		{ResourceLogs, ActionRead, "Read audit log entries"},
		{ResourceLogs, ActionList, "List and filter audit log entries"},
		{ResourceLogs, ActionDelete, "Purge audit log entries"},
		{ResourceRoles, ActionRead, "Read roles and their permissions"},
		{ResourceRoles, ActionList, "List roles and permissions"},
		{ResourceRoles, ActionGrant, "Grant a permission to a role"},
		{ResourceRoles, ActionRevoke, "Revoke a permission from a role"},
	}
}

// DefaultRoleGrants maps each built-in role to the permission names it
// holds after seeding. The user role holds none; self access flows through
// the ownership rule in the guard.
func DefaultRoleGrants() map[string][]string {
	admin := make([]string, 0, len(Catalog()))
	for _, entry := range Catalog() {
		admin = append(admin, entry.Name())
	}

	return map[string][]string{
		RoleAdmin: admin,
		RoleModerator: {
			PermissionKey(ResourceUsers, ActionRead),
			PermissionKey(ResourceUsers, ActionList),
			PermissionKey(ResourceProfiles, ActionRead),
			PermissionKey(ResourceProfiles, ActionList),
			PermissionKey(ResourceNotifications, ActionRead),
			PermissionKey(ResourceNotifications, ActionList),
			PermissionKey(ResourceLogs, ActionRead),
			PermissionKey(ResourceLogs, ActionList),
			PermissionKey(ResourceRoles, ActionRead),
			PermissionKey(ResourceRoles, ActionList),
		},
		RoleUser: {},
	}
}
