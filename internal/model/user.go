package model

// User roles form a closed set; the database enforces nothing beyond
// uniqueness, so handlers validate the role before inserting.
const (
	RoleAdmin      = "admin"
	RoleManager    = "manager"
	RoleTechnician = "technician"
)

// ValidRole reports whether role belongs to the closed role set.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleTechnician:
		return true
	}
	return false
}

// User is an operator account. The built-in admin account is a seed row
// whose token is the configured admin constant; it cannot be modified
// through the user endpoints.
type User struct {
	ID        int64  `gorm:"primaryKey" json:"id"`
	Username  string `gorm:"uniqueIndex;size:128;not null" json:"username"`
	Password  string `gorm:"size:128;not null" json:"-"`
	Role      string `gorm:"size:32;not null" json:"role"`
	Token     string `gorm:"uniqueIndex;size:64;not null" json:"token"`
	CreatedAt int64  `gorm:"autoCreateTime" json:"created_at"`
}
