package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Dan9191/recipe-service/internal/auth"
	"github.com/Dan9191/recipe-service/internal/models"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

// Repository provides user storage operations
type Repository interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context, q models.UserQuery) ([]*models.User, int, error)
	UpdateUser(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error)
	DeleteUser(ctx context.Context, id string) (*models.User, error)

	GraphStore

	// WithinTx runs fn against a transactional view of the repository.
	// The view commits when fn returns nil and rolls back otherwise.
	// Calling WithinTx on a transactional view runs fn in the same transaction.
	WithinTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
}

// GraphStore holds the follow relationship primitives. Each Add/Remove call
// changes one record and keeps its counter equal to the size of its set.
type GraphStore interface {
	// LockUsers takes write locks on the given records until the surrounding
	// transaction ends. Missing ids are ignored.
	LockUsers(ctx context.Context, ids ...string) error
	IsFollowing(ctx context.Context, followerID, followingID string) (bool, error)
	AddFollower(ctx context.Context, userID, followerID string) (*models.User, error)
	AddFollowing(ctx context.Context, userID, followingID string) (*models.User, error)
	RemoveFollower(ctx context.Context, userID, followerID string) (*models.User, error)
	RemoveFollowing(ctx context.Context, userID, followingID string) (*models.User, error)
	// PurgeReferences removes id from every followers/following set and
	// returns the number of records changed.
	PurgeReferences(ctx context.Context, id string) (int64, error)
	// ReconcileCounters resets counters that disagree with their sets and
	// returns the number of records repaired.
	ReconcileCounters(ctx context.Context) (int64, error)
}

// CredentialChangedAfter reports whether a password change happened after a
// token was issued. Both times are compared at auth.IssuedAtPrecision, so a
// token issued later in the same millisecond as the change stays valid.
func CredentialChangedAfter(changedAt, issuedAt time.Time) bool {
	return changedAt.Truncate(auth.IssuedAtPrecision).After(issuedAt.Truncate(auth.IssuedAtPrecision))
}
