package authz

// RBAC decision reasons.
const (
	ReasonSuperuser = "superuser"
	ReasonRoleGrant = "role grant"
	ReasonNoGrant   = "no role grants access"
)

// CheckGrants resolves RBAC access for one action using the supplied roles
// and their grants on the target feature. A role with GrantsAll wins
// immediately; otherwise grants from all roles are unioned and a single
// enabling grant suffices. Pure function; the caller owns all I/O.
func CheckGrants(roles []Role, grants []RoleFeatureGrant, action Action) (bool, string) {
	for _, role := range roles {
		if role.GrantsAll {
			return true, ReasonSuperuser
		}
	}
	for _, grant := range grants {
		if grant.Allows(action) {
			return true, ReasonRoleGrant
		}
	}
	return false, ReasonNoGrant
}
