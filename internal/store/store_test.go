package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"fleet-telemetry-backend/internal/auth"
	"fleet-telemetry-backend/internal/model"
)

// anyArg matches any bound argument in a sqlmock expectation.
type anyArg struct{}

func (anyArg) Match(v driver.Value) bool { return true }

// A helper function to create a mock database connection.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func newSqliteDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(
		&model.Machine{},
		&model.User{},
		&model.SpeedHistory{},
		&model.MaintenanceComment{},
	))
	return db
}

func TestRecordTelemetry_CommitsBothWrites(t *testing.T) {
	gormDB, mock := newMockDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "machines" SET`)).
		WithArgs(12.5, true, anyArg{}, "spinning", int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "speed_histories"`)).
		WithArgs(int64(42), 12.5, "spinning", anyArg{}).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	before := time.Now().Unix()
	ts, err := s.RecordTelemetry(context.Background(), 42, 12.5, "spinning")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, ts, before)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordTelemetry_HistoryFailureRollsBackStatus(t *testing.T) {
	gormDB, mock := newMockDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "machines" SET`)).
		WithArgs(12.5, true, anyArg{}, "spinning", int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "speed_histories"`)).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := s.RecordTelemetry(context.Background(), 42, 12.5, "spinning")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordTelemetry_UnknownMachine(t *testing.T) {
	gormDB, mock := newMockDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "machines" SET`)).
		WithArgs(1.0, true, anyArg{}, "", int64(9999)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := s.RecordTelemetry(context.Background(), 9999, 1.0, "")
	require.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordTelemetry_AppendsOneRowPerCall(t *testing.T) {
	db := newSqliteDB(t)
	s := NewGormStore(db)
	ctx := context.Background()

	machine := model.Machine{Name: "Lathe 1", Code: "LA-1", APIKey: auth.MintMachineKey()}
	require.NoError(t, s.CreateMachine(ctx, &machine))

	// Replaying the same payload is a new sample, not an upsert.
	_, err := s.RecordTelemetry(ctx, machine.ID, 55.5, "steady")
	require.NoError(t, err)
	_, err = s.RecordTelemetry(ctx, machine.ID, 55.5, "steady")
	require.NoError(t, err)

	history, err := s.ListHistory(ctx, machine.ID, 100)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	updated, err := s.GetMachine(ctx, machine.ID)
	require.NoError(t, err)
	assert.Equal(t, 55.5, updated.CurrentSpeed)
	assert.Equal(t, "steady", updated.StatusMessage)
	assert.True(t, updated.IsOnline)
}

func TestCreateMachine_DuplicateCode(t *testing.T) {
	db := newSqliteDB(t)
	s := NewGormStore(db)
	ctx := context.Background()

	first := model.Machine{Name: "Press 1", Code: "PR-1", APIKey: auth.MintMachineKey()}
	require.NoError(t, s.CreateMachine(ctx, &first))

	second := model.Machine{Name: "Press 2", Code: "PR-1", APIKey: auth.MintMachineKey()}
	err := s.CreateMachine(ctx, &second)
	require.ErrorIs(t, err, ErrDuplicate)

	// The failed insert must not leave a partial row or touch the first one.
	machines, err := s.ListMachines(ctx)
	require.NoError(t, err)
	require.Len(t, machines, 1)
	assert.Equal(t, "Press 1", machines[0].Name)
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	db := newSqliteDB(t)
	s := NewGormStore(db)
	ctx := context.Background()

	first := model.User{Username: "kim", Password: "pw", Role: model.RoleManager, Token: auth.MintUserToken()}
	require.NoError(t, s.CreateUser(ctx, &first))

	second := model.User{Username: "kim", Password: "pw2", Role: model.RoleTechnician, Token: auth.MintUserToken()}
	err := s.CreateUser(ctx, &second)
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestListHistory_NewestFirstWithLimit(t *testing.T) {
	db := newSqliteDB(t)
	s := NewGormStore(db)
	ctx := context.Background()

	machine := model.Machine{Name: "Mill 3", Code: "MI-3", APIKey: auth.MintMachineKey()}
	require.NoError(t, s.CreateMachine(ctx, &machine))

	for i := 0; i < 5; i++ {
		entry := model.SpeedHistory{MachineID: machine.ID, Speed: float64(i), Message: "", Timestamp: int64(1000 + i)}
		require.NoError(t, db.Create(&entry).Error)
	}

	history, err := s.ListHistory(ctx, machine.ID, 3)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, int64(1004), history[0].Timestamp)
	assert.Equal(t, int64(1003), history[1].Timestamp)
	assert.Equal(t, int64(1002), history[2].Timestamp)
}

func TestUpdateMachine_PatchAndDuplicate(t *testing.T) {
	db := newSqliteDB(t)
	s := NewGormStore(db)
	ctx := context.Background()

	a := model.Machine{Name: "Saw 1", Code: "SA-1", APIKey: auth.MintMachineKey()}
	require.NoError(t, s.CreateMachine(ctx, &a))
	b := model.Machine{Name: "Saw 2", Code: "SA-2", APIKey: auth.MintMachineKey()}
	require.NoError(t, s.CreateMachine(ctx, &b))

	loc := "hall B"
	updated, err := s.UpdateMachine(ctx, b.ID, MachinePatch{Location: &loc})
	require.NoError(t, err)
	assert.Equal(t, "hall B", updated.Location)

	taken := "SA-1"
	_, err = s.UpdateMachine(ctx, b.ID, MachinePatch{Code: &taken})
	require.ErrorIs(t, err, ErrDuplicate)

	_, err = s.UpdateMachine(ctx, 404, MachinePatch{Location: &loc})
	require.ErrorIs(t, err, ErrNotFound)
}
