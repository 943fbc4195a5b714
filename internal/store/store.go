package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"fleet-telemetry-backend/internal/model"
)

// Sentinel errors used by handlers to pick an HTTP status family.
var (
	// ErrDuplicate marks a uniqueness-constraint violation. The insert
	// that triggered it left no partial row behind.
	ErrDuplicate = errors.New("duplicate value for unique column")
	// ErrNotFound marks a reference to a nonexistent entity.
	ErrNotFound = errors.New("record not found")
)

// Store defines the interface for all database operations.
type Store interface {
	DB() *gorm.DB

	CreateMachine(ctx context.Context, m *model.Machine) error
	ListMachines(ctx context.Context) ([]model.Machine, error)
	GetMachine(ctx context.Context, id int64) (*model.Machine, error)
	UpdateMachine(ctx context.Context, id int64, patch MachinePatch) (*model.Machine, error)
	RecordTelemetry(ctx context.Context, machineID int64, speed float64, message string) (int64, error)

	CreateUser(ctx context.Context, u *model.User) error
	ListUsers(ctx context.Context) ([]model.User, error)
	GetUser(ctx context.Context, id int64) (*model.User, error)
	UpdateUser(ctx context.Context, id int64, patch UserPatch) (*model.User, error)
	FindUserByCredentials(ctx context.Context, username, password string) (*model.User, error)

	AddComment(ctx context.Context, c *model.MaintenanceComment) error
	ListComments(ctx context.Context, machineID int64) ([]model.MaintenanceComment, error)
	ListHistory(ctx context.Context, machineID int64, limit int) ([]model.SpeedHistory, error)
}

// MachinePatch carries the mutable registration fields of a machine.
// Nil fields are left untouched. Telemetry fields are excluded: only
// the recorder writes those.
type MachinePatch struct {
	Name        *string
	Code        *string
	Location    *string
	MachineType *string
}

// UserPatch carries the mutable fields of a user account.
type UserPatch struct {
	Role     *string
	Password *string
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// CreateMachine inserts a registered machine. A name, code, or API key
// collision fails the whole insert with ErrDuplicate.
func (s *gormStore) CreateMachine(ctx context.Context, m *model.Machine) error {
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("create machine %q: %w", m.Code, ErrDuplicate)
		}
		return fmt.Errorf("create machine %q: %w", m.Code, err)
	}
	return nil
}

func (s *gormStore) ListMachines(ctx context.Context) ([]model.Machine, error) {
	var machines []model.Machine
	if err := s.db.WithContext(ctx).Order("name").Find(&machines).Error; err != nil {
		return nil, fmt.Errorf("list machines: %w", err)
	}
	return machines, nil
}

func (s *gormStore) GetMachine(ctx context.Context, id int64) (*model.Machine, error) {
	var machine model.Machine
	err := s.db.WithContext(ctx).First(&machine, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get machine %d: %w", id, err)
	}
	return &machine, nil
}

func (s *gormStore) UpdateMachine(ctx context.Context, id int64, patch MachinePatch) (*model.Machine, error) {
	machine, err := s.GetMachine(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Code != nil {
		updates["code"] = *patch.Code
	}
	if patch.Location != nil {
		updates["location"] = *patch.Location
	}
	if patch.MachineType != nil {
		updates["machine_type"] = *patch.MachineType
	}
	if len(updates) == 0 {
		return machine, nil
	}

	if err := s.db.WithContext(ctx).Model(machine).Updates(updates).Error; err != nil {
		if isDuplicate(err) {
			return nil, fmt.Errorf("update machine %d: %w", id, ErrDuplicate)
		}
		return nil, fmt.Errorf("update machine %d: %w", id, err)
	}
	return s.GetMachine(ctx, id)
}

// RecordTelemetry applies one accepted telemetry sample: it updates the
// machine's live status fields and appends the matching history row
// inside a single transaction. Either write failing rolls back both, so
// a reader never observes a live update without its history row or vice
// versa. Each call appends its own row; replays are new samples, not
// upserts, and the live status is last-writer-wins by commit order.
func (s *gormStore) RecordTelemetry(ctx context.Context, machineID int64, speed float64, message string) (int64, error) {
	timestamp := time.Now().Unix()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Machine{}).Where("id = ?", machineID).Updates(map[string]any{
			"current_speed":  speed,
			"status_message": message,
			"is_online":      true,
			"last_update":    timestamp,
		})
		if res.Error != nil {
			return fmt.Errorf("update machine status: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		entry := model.SpeedHistory{
			MachineID: machineID,
			Speed:     speed,
			Message:   message,
			Timestamp: timestamp,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("append speed history: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("record telemetry for machine %d: %w", machineID, err)
	}
	return timestamp, nil
}

// CreateUser inserts an operator account. A username or token collision
// fails the whole insert with ErrDuplicate.
func (s *gormStore) CreateUser(ctx context.Context, u *model.User) error {
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("create user %q: %w", u.Username, ErrDuplicate)
		}
		return fmt.Errorf("create user %q: %w", u.Username, err)
	}
	return nil
}

func (s *gormStore) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := s.db.WithContext(ctx).Order("username").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *gormStore) GetUser(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return &user, nil
}

func (s *gormStore) UpdateUser(ctx context.Context, id int64, patch UserPatch) (*model.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if patch.Role != nil {
		updates["role"] = *patch.Role
	}
	if patch.Password != nil {
		updates["password"] = *patch.Password
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update user %d: %w", id, err)
	}
	return s.GetUser(ctx, id)
}

func (s *gormStore) FindUserByCredentials(ctx context.Context, username, password string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Where("username = ? AND password = ?", username, password).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user %q: %w", username, err)
	}
	return &user, nil
}

func (s *gormStore) AddComment(ctx context.Context, c *model.MaintenanceComment) error {
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("add comment for machine %d: %w", c.MachineID, err)
	}
	return nil
}

func (s *gormStore) ListComments(ctx context.Context, machineID int64) ([]model.MaintenanceComment, error) {
	var comments []model.MaintenanceComment
	err := s.db.WithContext(ctx).
		Where("machine_id = ?", machineID).
		Order("created_at DESC").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("list comments for machine %d: %w", machineID, err)
	}
	return comments, nil
}

// ListHistory returns the newest limit samples for a machine, newest
// first.
func (s *gormStore) ListHistory(ctx context.Context, machineID int64, limit int) ([]model.SpeedHistory, error) {
	var history []model.SpeedHistory
	err := s.db.WithContext(ctx).
		Where("machine_id = ?", machineID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&history).Error
	if err != nil {
		return nil, fmt.Errorf("list history for machine %d: %w", machineID, err)
	}
	return history, nil
}

// isDuplicate recognizes uniqueness violations from the drivers in use
// (postgres in production, sqlite in tests) as well as GORM's own
// translated sentinel.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "SQLSTATE 23505")
}
