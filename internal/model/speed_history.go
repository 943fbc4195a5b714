package model

// SpeedHistory is one accepted telemetry sample (cold table). Rows are
// append-only: the recorder inserts exactly one per accepted update and
// nothing ever mutates or deletes them.
type SpeedHistory struct {
	ID        int64   `gorm:"primaryKey;autoIncrement" json:"-"`
	MachineID int64   `gorm:"index;not null" json:"-"`
	Speed     float64 `gorm:"not null" json:"speed"`
	Message   string  `gorm:"not null" json:"message"`
	Timestamp int64   `gorm:"index;not null" json:"timestamp"`
}
