package model

// AlertSubscription holds a browser push subscription for maintenance
// alerts, linked to the machines the operator wants to follow.
type AlertSubscription struct {
	Endpoint  string `gorm:"primaryKey"`
	P256DH    string `gorm:"column:p256dh;not null"`
	Auth      string `gorm:"not null"`
	CreatedAt int64  `gorm:"autoCreateTime"`

	// Associations
	Machines []*Machine `gorm:"many2many:subscription_machine_mapping;"`
}
