package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Dan9191/recipe-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUser(t *testing.T, repo *MemoryRepository, id, name, email string) *models.User {
	t.Helper()
	u := &models.User{ID: id, Name: name, Email: email, Role: models.RoleUser, Status: models.StatusActive}
	require.NoError(t, repo.CreateUser(context.Background(), u))
	return u
}

func TestMemory_CreateAndFind(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	seedUser(t, repo, "a", "Alice", "alice@example.com")

	byEmail, err := repo.FindUserByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, "a", byEmail.ID)
	assert.Empty(t, byEmail.Followers)
	assert.False(t, byEmail.CreatedAt.IsZero())

	_, err = repo.FindUserByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = repo.CreateUser(ctx, &models.User{ID: "b", Email: "alice@example.com"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestMemory_ReturnedUsersAreCopies(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	seedUser(t, repo, "a", "Alice", "alice@example.com")

	u, err := repo.FindUserByID(ctx, "a")
	require.NoError(t, err)
	u.Name = "Mallory"
	u.Followers = append(u.Followers, "x")

	again, err := repo.FindUserByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Alice", again.Name)
	assert.Empty(t, again.Followers)
}

func TestMemory_UpdateUser(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	seedUser(t, repo, "a", "Alice", "alice@example.com")
	seedUser(t, repo, "b", "Bob", "bob@example.com")

	name := "Alicia"
	status := models.StatusBlocked
	updated, err := repo.UpdateUser(ctx, "a", models.UserUpdate{Name: &name, Status: &status})
	require.NoError(t, err)
	assert.Equal(t, "Alicia", updated.Name)
	assert.Equal(t, models.StatusBlocked, updated.Status)

	taken := "bob@example.com"
	_, err = repo.UpdateUser(ctx, "a", models.UserUpdate{Email: &taken})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	_, err = repo.UpdateUser(ctx, "zzz", models.UserUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_FollowPrimitivesKeepCountersInSync(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	seedUser(t, repo, "a", "Alice", "alice@example.com")
	seedUser(t, repo, "b", "Bob", "bob@example.com")

	for i := 0; i < 2; i++ {
		b, err := repo.AddFollower(ctx, "b", "a")
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, b.Followers)
		assert.Equal(t, 1, b.FollowersCount)

		a, err := repo.AddFollowing(ctx, "a", "b")
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, a.Following)
		assert.Equal(t, 1, a.FollowingCount)
	}

	ok, err := repo.IsFollowing(ctx, "a", "b")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.IsFollowing(ctx, "b", "a")
	require.NoError(t, err)
	assert.False(t, ok)

	for i := 0; i < 2; i++ {
		b, err := repo.RemoveFollower(ctx, "b", "a")
		require.NoError(t, err)
		assert.Empty(t, b.Followers)
		assert.Equal(t, 0, b.FollowersCount)

		a, err := repo.RemoveFollowing(ctx, "a", "b")
		require.NoError(t, err)
		assert.Empty(t, a.Following)
		assert.Equal(t, 0, a.FollowingCount)
	}

	_, err = repo.AddFollower(ctx, "missing", "a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_WithinTxRollsBack(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	seedUser(t, repo, "a", "Alice", "alice@example.com")
	seedUser(t, repo, "b", "Bob", "bob@example.com")

	boom := errors.New("boom")
	err := repo.WithinTx(ctx, func(ctx context.Context, tx Repository) error {
		if _, err := tx.AddFollower(ctx, "b", "a"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	b, err := repo.FindUserByID(ctx, "b")
	require.NoError(t, err)
	assert.Empty(t, b.Followers)
	assert.Equal(t, 0, b.FollowersCount)
}

func TestMemory_WithinTxCancelledContext(t *testing.T) {
	repo := NewMemoryRepository()
	seedUser(t, repo, "a", "Alice", "alice@example.com")
	seedUser(t, repo, "b", "Bob", "bob@example.com")

	ctx, cancel := context.WithCancel(context.Background())
	err := repo.WithinTx(ctx, func(ctx context.Context, tx Repository) error {
		if _, err := tx.AddFollower(ctx, "b", "a"); err != nil {
			return err
		}
		cancel()
		_, err := tx.AddFollowing(ctx, "a", "b")
		return err
	})
	assert.ErrorIs(t, err, context.Canceled)

	b, err := repo.FindUserByID(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, 0, b.FollowersCount)
}

func TestMemory_ReadersDoNotSeeUncommittedWrites(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	seedUser(t, repo, "a", "Alice", "alice@example.com")
	seedUser(t, repo, "b", "Bob", "bob@example.com")

	halfway := make(chan struct{})
	release := make(chan struct{})
	boom := errors.New("boom")
	txDone := make(chan error, 1)
	go func() {
		txDone <- repo.WithinTx(ctx, func(ctx context.Context, tx Repository) error {
			if _, err := tx.AddFollower(ctx, "b", "a"); err != nil {
				return err
			}
			close(halfway)
			<-release
			return boom
		})
	}()
	<-halfway

	seen := make(chan *models.User, 1)
	go func() {
		u, err := repo.FindUserByID(ctx, "b")
		if err != nil {
			u = nil
		}
		seen <- u
	}()

	select {
	case <-seen:
		t.Fatal("read returned while the transaction was open")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	assert.ErrorIs(t, <-txDone, boom)
	b := <-seen
	require.NotNil(t, b)
	assert.Empty(t, b.Followers)
	assert.Equal(t, 0, b.FollowersCount)
}

func TestMemory_NestedWithinTxSharesTransaction(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	seedUser(t, repo, "a", "Alice", "alice@example.com")

	done := make(chan error, 1)
	go func() {
		done <- repo.WithinTx(ctx, func(ctx context.Context, tx Repository) error {
			return tx.WithinTx(ctx, func(ctx context.Context, inner Repository) error {
				_, err := inner.AddFollower(ctx, "a", "x")
				return err
			})
		})
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("nested transaction deadlocked")
	}
}

func TestMemory_PurgeAndReconcile(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	repo.Put(&models.User{ID: "a", Email: "a@x", Following: []string{"gone", "b"}, FollowingCount: 2, Followers: []string{}})
	repo.Put(&models.User{ID: "b", Email: "b@x", Followers: []string{"gone", "a"}, FollowersCount: 5, Following: []string{}})
	repo.Put(&models.User{ID: "c", Email: "c@x", Followers: []string{}, Following: []string{}})

	changed, err := repo.PurgeReferences(ctx, "gone")
	require.NoError(t, err)
	assert.Equal(t, int64(2), changed)

	a, _ := repo.FindUserByID(ctx, "a")
	assert.Equal(t, []string{"b"}, a.Following)
	assert.Equal(t, 1, a.FollowingCount)

	b, _ := repo.FindUserByID(ctx, "b")
	assert.Equal(t, []string{"a"}, b.Followers)
	assert.Equal(t, 4, b.FollowersCount)

	repaired, err := repo.ReconcileCounters(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), repaired)

	b, _ = repo.FindUserByID(ctx, "b")
	assert.Equal(t, 1, b.FollowersCount)
}

func TestMemory_ListUsers(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	names := []string{"Carol", "alice", "Bob", "Dave"}
	for i, n := range names {
		repo.Put(&models.User{
			ID: string(rune('a' + i)), Name: n, Email: n + "@example.com",
			Role: models.RoleUser, Status: models.StatusActive,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}
	repo.Put(&models.User{ID: "z", Name: "Root", Email: "root@example.com", Role: models.RoleAdmin, Status: models.StatusActive, CreatedAt: base})

	users, total, err := repo.ListUsers(ctx, models.UserQuery{})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, users, 5)
	assert.Equal(t, "Dave", users[0].Name)

	users, total, err = repo.ListUsers(ctx, models.UserQuery{Role: models.RoleUser, Sort: "name", Limit: 2, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, users, 2)
	assert.Equal(t, "Dave", users[0].Name)
	assert.Equal(t, "alice", users[1].Name)

	users, total, err = repo.ListUsers(ctx, models.UserQuery{SearchTerm: "ALI"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "alice", users[0].Name)

	_, total, err = repo.ListUsers(ctx, models.UserQuery{SearchTerm: "%"})
	require.NoError(t, err)
	assert.Equal(t, 0, total)

	users, _, err = repo.ListUsers(ctx, models.UserQuery{Page: 10})
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestCredentialChangedAfter(t *testing.T) {
	issued := time.Unix(1_700_000_000, 100*int64(time.Millisecond))

	tests := []struct {
		name      string
		changedAt time.Time
		want      bool
	}{
		{name: "changed before issue", changedAt: issued.Add(-time.Minute), want: false},
		{name: "changed in the millisecond before issue", changedAt: issued.Add(-time.Millisecond), want: false},
		{name: "changed exactly at issue", changedAt: issued, want: false},
		{name: "changed within the issue millisecond", changedAt: issued.Add(400 * time.Microsecond), want: false},
		{name: "changed later in the same second", changedAt: issued.Add(700 * time.Millisecond), want: true},
		{name: "changed one millisecond later", changedAt: issued.Add(time.Millisecond), want: true},
		{name: "changed much later", changedAt: issued.Add(time.Hour), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CredentialChangedAfter(tt.changedAt, issued))
		})
	}
}
