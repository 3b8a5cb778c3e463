package authz

const (
	RoleClient     = 10
	RoleFreelancer = 20
	RoleModerator  = 30
	RoleAdmin      = 40
)

func IsStaff(roleID int) bool {
	return roleID == RoleModerator || roleID == RoleAdmin
}
