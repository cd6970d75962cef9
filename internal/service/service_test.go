package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Dan9191/recipe-service/internal/auth"
	"github.com/Dan9191/recipe-service/internal/config"
	"github.com/Dan9191/recipe-service/internal/models"
	"github.com/Dan9191/recipe-service/internal/repository"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeNotifier struct {
	mu       sync.Mutex
	follows  [][2]string // followed, follower
	blocked  []string
	failWith error
}

func (f *fakeNotifier) SendNewFollower(_ context.Context, followed, follower *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.follows = append(f.follows, [2]string{followed.ID, follower.ID})
	return f.failWith
}

func (f *fakeNotifier) SendBlockedNotice(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blocked = append(f.blocked, user.ID)
	return f.failWith
}

type testEnv struct {
	svc      *Service
	repo     *repository.MemoryRepository
	codec    *auth.TokenCodec
	notifier *fakeNotifier
	log      *logrus.Logger
	hook     *logtest.Hook
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	log, hook := logtest.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	repo := repository.NewMemoryRepository()
	codec := auth.NewTokenCodec("test-secret", time.Hour, "recipe-service", log)
	notifier := &fakeNotifier{}
	cfg := &config.Config{BcryptCost: bcrypt.MinCost}

	opts = append([]Option{WithNotifier(notifier)}, opts...)
	svc := NewService(repo, log, cfg, codec, opts...)
	t.Cleanup(svc.Wait)
	return &testEnv{svc: svc, repo: repo, codec: codec, notifier: notifier, log: log, hook: hook}
}

func (e *testEnv) seed(t *testing.T, id string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{
		ID: id, Name: "User " + id, Email: id + "@example.com",
		Role: role, Status: models.StatusActive,
	}
	require.NoError(t, e.repo.CreateUser(context.Background(), u))
	return u
}

func (e *testEnv) seedWithPassword(t *testing.T, id, password string, status models.Status) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{
		ID: id, Name: "User " + id, Email: id + "@example.com", PasswordHash: string(hash),
		Role: models.RoleUser, Status: status,
	}
	require.NoError(t, e.repo.CreateUser(context.Background(), u))
	return u
}

func (e *testEnv) user(t *testing.T, id string) *models.User {
	t.Helper()
	u, err := e.repo.FindUserByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

var errBoom = errors.New("boom")
