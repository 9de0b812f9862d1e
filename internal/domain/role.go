package domain

// Role constants define the allowed customer roles.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// ValidRoles returns the set of valid customer roles.
func ValidRoles() []string {
	return []string{RoleCustomer, RoleAdmin}
}

// IsValidRole checks whether the given role string is a valid customer role.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles() {
		if r == role {
			return true
		}
	}
	return false
}
