package model

// Machine represents a fleet machine and its live telemetry state.
//
// APIKey is the machine's own credential. It never appears in JSON
// output; registration returns it once through a dedicated response
// type and it is otherwise write-only.
type Machine struct {
	ID            int64   `gorm:"primaryKey" json:"id"`
	Name          string  `gorm:"uniqueIndex;size:128;not null" json:"name"`
	Code          string  `gorm:"uniqueIndex;size:64;not null" json:"code"`
	APIKey        string  `gorm:"uniqueIndex;size:64;not null" json:"-"`
	Location      string  `gorm:"size:256" json:"location,omitempty"`
	MachineType   string  `gorm:"size:64" json:"machine_type,omitempty"`
	CurrentSpeed  float64 `gorm:"not null;default:0" json:"current_speed"`
	StatusMessage string  `gorm:"not null;default:''" json:"status_message"`
	IsOnline      bool    `gorm:"not null;default:false" json:"is_online"`
	LastUpdate    int64   `gorm:"not null;default:0" json:"last_update"`
	CreatedAt     int64   `gorm:"autoCreateTime" json:"created_at"`
}
