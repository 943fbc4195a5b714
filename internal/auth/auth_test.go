package auth

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"fleet-telemetry-backend/internal/model"
)

const testAdminToken = "admin_token_12345"

func newTestDB(t *testing.T) *gorm.DB {
	// A named shared in-memory database keeps the schema visible across
	// pooled connections while isolating tests from each other.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&model.Machine{}, &model.User{}))
	return db
}

func TestMintNamespacesAreDisjoint(t *testing.T) {
	key := MintMachineKey()
	token := MintUserToken()

	assert.True(t, strings.HasPrefix(key, MachineKeyPrefix))
	assert.True(t, strings.HasPrefix(token, "user_"))
	assert.False(t, strings.HasPrefix(token, MachineKeyPrefix))
	assert.NotEqual(t, key, testAdminToken)
	assert.NotEqual(t, token, testAdminToken)

	// 32 hex characters after the prefix
	assert.Len(t, strings.TrimPrefix(key, MachineKeyPrefix), 32)
	assert.Len(t, strings.TrimPrefix(token, "user_"), 32)

	assert.NotEqual(t, MintMachineKey(), key)
	assert.NotEqual(t, MintUserToken(), token)
}

func TestResolveClassification(t *testing.T) {
	db := newTestDB(t)

	machine := model.Machine{Name: "Press 4", Code: "PR-4", APIKey: MintMachineKey()}
	require.NoError(t, db.Create(&machine).Error)

	user := model.User{Username: "kim", Password: "pw", Role: model.RoleTechnician, Token: MintUserToken()}
	require.NoError(t, db.Create(&user).Error)

	// A user token carrying the machine prefix cannot be minted, but if
	// one ever lands in the table the resolver must not honor it: the
	// prefix routes the lookup to the machine namespace and stops there.
	sneaky := model.User{Username: "sneaky", Password: "pw", Role: model.RoleTechnician, Token: "machine_not_a_real_key"}
	require.NoError(t, db.Create(&sneaky).Error)

	resolver := NewResolver(db, testAdminToken)
	ctx := context.Background()

	testCases := []struct {
		name   string
		bearer string
		want   Principal
	}{
		{"admin constant", testAdminToken, Principal{Kind: KindAdmin}},
		{"machine key", machine.APIKey, Principal{Kind: KindMachine, MachineID: machine.ID}},
		{"user token", user.Token, Principal{Kind: KindUser, Username: "kim"}},
		{"machine-prefixed miss stays none", "machine_not_a_real_key", Principal{}},
		{"unknown token", "user_0000", Principal{}},
		{"garbage", "not-a-credential", Principal{}},
		{"empty", "", Principal{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := resolver.Resolve(ctx, tc.bearer)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolveIgnoresAdminPrefixMatch(t *testing.T) {
	db := newTestDB(t)
	resolver := NewResolver(db, testAdminToken)

	// Equality with the admin constant must be exact, not prefix-based.
	p, err := resolver.Resolve(context.Background(), testAdminToken+"x")
	require.NoError(t, err)
	assert.Equal(t, KindNone, p.Kind)
}

func TestAuthorize(t *testing.T) {
	adminSet := []Kind{KindAdmin}
	operatorSet := []Kind{KindAdmin, KindUser}
	machineSet := []Kind{KindMachine}

	admin := Principal{Kind: KindAdmin}
	user := Principal{Kind: KindUser, Username: "kim"}
	machine := Principal{Kind: KindMachine, MachineID: 7}
	none := Principal{}

	assert.True(t, Authorize(admin, adminSet...))
	assert.False(t, Authorize(user, adminSet...))
	assert.False(t, Authorize(machine, adminSet...))

	assert.True(t, Authorize(admin, operatorSet...))
	assert.True(t, Authorize(user, operatorSet...))
	assert.False(t, Authorize(machine, operatorSet...))

	assert.True(t, Authorize(machine, machineSet...))
	assert.False(t, Authorize(admin, machineSet...))
	assert.False(t, Authorize(user, machineSet...))

	assert.False(t, Authorize(none, adminSet...))
	assert.False(t, Authorize(none, operatorSet...))
	assert.False(t, Authorize(none, machineSet...))
}
