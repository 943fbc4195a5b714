package model

// Comment priorities, lowest to highest.
const (
	PriorityLow      = "low"
	PriorityNormal   = "normal"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// ValidPriority reports whether p belongs to the closed priority set.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// MaintenanceComment is an append-only maintenance note on a machine,
// attributed to the operator (or built-in admin) who wrote it. Machines
// cannot author comments.
type MaintenanceComment struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	MachineID int64  `gorm:"index;not null" json:"machine_id"`
	Username  string `gorm:"size:128;not null" json:"username"`
	Comment   string `gorm:"not null" json:"comment"`
	Priority  string `gorm:"size:16;not null;default:'normal'" json:"priority"`
	CreatedAt int64  `gorm:"not null" json:"created_at"`
}
