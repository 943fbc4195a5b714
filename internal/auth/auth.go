package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"fleet-telemetry-backend/internal/model"
)

// Kind classifies a resolved bearer credential.
type Kind int

const (
	KindNone Kind = iota
	KindAdmin
	KindUser
	KindMachine
)

func (k Kind) String() string {
	switch k {
	case KindAdmin:
		return "admin"
	case KindUser:
		return "user"
	case KindMachine:
		return "machine"
	}
	return "none"
}

// Principal is the tagged result of resolving a bearer credential.
// Username is set only for KindUser, MachineID only for KindMachine.
type Principal struct {
	Kind      Kind
	Username  string
	MachineID int64
}

// MachineKeyPrefix is reserved for machine API keys. The resolver uses
// it to route a credential to the machine lookup without touching the
// user token namespace, so user tokens must never be minted with it.
const MachineKeyPrefix = "machine_"

const userTokenPrefix = "user_"

// MintMachineKey returns a fresh machine API key. Collisions with an
// existing key are possible in principle; the unique index on the
// api_key column catches them and the caller treats that as retryable.
func MintMachineKey() string {
	return MachineKeyPrefix + hexUUID()
}

// MintUserToken returns a fresh user session token. The user_ prefix
// keeps the token namespace disjoint from machine keys.
func MintUserToken() string {
	return userTokenPrefix + hexUUID()
}

func hexUUID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Resolver classifies bearer credentials against the credential store.
// It holds no cache: tokens and keys can be minted between requests, so
// every resolution re-reads the store.
type Resolver struct {
	db         *gorm.DB
	adminToken string
}

// NewResolver creates a resolver bound to the given store and the fixed
// built-in admin token.
func NewResolver(db *gorm.DB, adminToken string) *Resolver {
	return &Resolver{db: db, adminToken: adminToken}
}

// Resolve classifies bearer into Admin, User, Machine, or None.
//
// Order matters: the admin constant is checked first by exact equality,
// then machine-prefixed strings go to the machine lookup and never fall
// through to the user lookup, so a crafted machine_ prefix cannot
// collide with a token value. A non-nil error means the store itself
// failed, not that the credential is unknown.
func (r *Resolver) Resolve(ctx context.Context, bearer string) (Principal, error) {
	if bearer == "" {
		return Principal{}, nil
	}

	if bearer == r.adminToken {
		return Principal{Kind: KindAdmin}, nil
	}

	if strings.HasPrefix(bearer, MachineKeyPrefix) {
		var machine model.Machine
		err := r.db.WithContext(ctx).Select("id").Where("api_key = ?", bearer).First(&machine).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Principal{}, nil
		}
		if err != nil {
			return Principal{}, fmt.Errorf("machine key lookup: %w", err)
		}
		return Principal{Kind: KindMachine, MachineID: machine.ID}, nil
	}

	var user model.User
	err := r.db.WithContext(ctx).Select("username").Where("token = ?", bearer).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Principal{}, nil
	}
	if err != nil {
		return Principal{}, fmt.Errorf("user token lookup: %w", err)
	}
	return Principal{Kind: KindUser, Username: user.Username}, nil
}

// Authorize reports whether the resolved principal's kind belongs to
// the operation's required kind-set. It is a pure decision over the
// resolver's output and performs no store access. KindNone is always
// denied.
func Authorize(p Principal, allowed ...Kind) bool {
	if p.Kind == KindNone {
		return false
	}
	for _, k := range allowed {
		if p.Kind == k {
			return true
		}
	}
	return false
}
