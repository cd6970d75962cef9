package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Dan9191/recipe-service/internal/models"
	"github.com/samber/lo"
)

type memoryState struct {
	mu    sync.RWMutex // held exclusively by writers and for a whole transaction
	users map[string]*models.User
}

// MemoryRepository keeps users in process memory. A transaction holds the
// store lock for its whole duration, so other readers and writers never see
// its uncommitted changes, and it restores a snapshot when it fails.
type MemoryRepository struct {
	st   *memoryState
	inTx bool
	now  func() time.Time
}

// NewMemoryRepository returns an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		st:  &memoryState{users: make(map[string]*models.User)},
		now: time.Now,
	}
}

// write runs fn under the store lock unless already inside a transaction,
// which holds it
func (m *MemoryRepository) write(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !m.inTx {
		m.st.mu.Lock()
		defer m.st.mu.Unlock()
	}
	return fn()
}

func (m *MemoryRepository) read(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !m.inTx {
		m.st.mu.RLock()
		defer m.st.mu.RUnlock()
	}
	return fn()
}

func (m *MemoryRepository) emailTaken(email, exceptID string) bool {
	for id, u := range m.st.users {
		if id != exceptID && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

// CreateUser stores a new user
func (m *MemoryRepository) CreateUser(ctx context.Context, user *models.User) error {
	return m.write(ctx, func() error {
		if m.emailTaken(user.Email, "") {
			return ErrDuplicateEmail
		}
		now := m.now()
		user.CreatedAt, user.UpdatedAt = now, now
		user.Followers, user.Following = []string{}, []string{}
		user.FollowersCount, user.FollowingCount = 0, 0
		m.st.users[user.ID] = user.Clone()
		return nil
	})
}

// FindUserByEmail retrieves a user by email
func (m *MemoryRepository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var found *models.User
	err := m.read(ctx, func() error {
		for _, u := range m.st.users {
			if strings.EqualFold(u.Email, email) {
				found = u.Clone()
				return nil
			}
		}
		return ErrNotFound
	})
	return found, err
}

// FindUserByID retrieves a user by id
func (m *MemoryRepository) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	var found *models.User
	err := m.read(ctx, func() error {
		u, ok := m.st.users[id]
		if !ok {
			return ErrNotFound
		}
		found = u.Clone()
		return nil
	})
	return found, err
}

// ListUsers returns one page of users plus the total number of matches
func (m *MemoryRepository) ListUsers(ctx context.Context, q models.UserQuery) ([]*models.User, int, error) {
	q = q.Normalize()
	var matched []*models.User
	err := m.read(ctx, func() error {
		term := strings.ToLower(q.SearchTerm)
		for _, u := range m.st.users {
			if q.Role != "" && u.Role != q.Role {
				continue
			}
			if q.Status != "" && u.Status != q.Status {
				continue
			}
			if term != "" && !strings.Contains(strings.ToLower(u.Name), term) &&
				!strings.Contains(strings.ToLower(u.Email), term) &&
				!strings.Contains(strings.ToLower(u.Bio), term) {
				continue
			}
			matched = append(matched, u.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	field, desc := q.SortField()
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		c := compareUsers(a, b, field)
		if c == 0 {
			return a.ID < b.ID
		}
		if desc {
			return c > 0
		}
		return c < 0
	})

	total := len(matched)
	start := q.Offset()
	if start > total {
		start = total
	}
	end := start + q.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func compareUsers(a, b *models.User, field string) int {
	switch field {
	case "name":
		return strings.Compare(a.Name, b.Name)
	case "email":
		return strings.Compare(a.Email, b.Email)
	case "followersCount":
		return a.FollowersCount - b.FollowersCount
	case "followingCount":
		return a.FollowingCount - b.FollowingCount
	case "updatedAt":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

// UpdateUser applies a partial update and returns the updated user
func (m *MemoryRepository) UpdateUser(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error) {
	var updated *models.User
	err := m.write(ctx, func() error {
		u, ok := m.st.users[id]
		if !ok {
			return ErrNotFound
		}
		if upd.Email != nil && m.emailTaken(*upd.Email, id) {
			return ErrDuplicateEmail
		}
		if upd.Empty() {
			updated = u.Clone()
			return nil
		}
		if upd.Name != nil {
			u.Name = *upd.Name
		}
		if upd.Email != nil {
			u.Email = *upd.Email
		}
		if upd.PasswordHash != nil {
			u.PasswordHash = *upd.PasswordHash
		}
		if upd.PasswordChangedAt != nil {
			t := *upd.PasswordChangedAt
			u.PasswordChangedAt = &t
		}
		if upd.Role != nil {
			u.Role = *upd.Role
		}
		if upd.Status != nil {
			u.Status = *upd.Status
		}
		if upd.Bio != nil {
			u.Bio = *upd.Bio
		}
		if upd.ProfilePhoto != nil {
			u.ProfilePhoto = *upd.ProfilePhoto
		}
		if upd.MobileNumber != nil {
			u.MobileNumber = *upd.MobileNumber
		}
		if upd.IsPremium != nil {
			u.IsPremium = *upd.IsPremium
		}
		u.UpdatedAt = m.now()
		updated = u.Clone()
		return nil
	})
	return updated, err
}

// DeleteUser removes a user and returns the deleted record
func (m *MemoryRepository) DeleteUser(ctx context.Context, id string) (*models.User, error) {
	var deleted *models.User
	err := m.write(ctx, func() error {
		u, ok := m.st.users[id]
		if !ok {
			return ErrNotFound
		}
		delete(m.st.users, id)
		deleted = u
		return nil
	})
	return deleted, err
}

// LockUsers is a no-op: a memory transaction already excludes other writers
func (m *MemoryRepository) LockUsers(ctx context.Context, ids ...string) error {
	return ctx.Err()
}

// IsFollowing reports whether followerID has followingID in its following set
func (m *MemoryRepository) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	var following bool
	err := m.read(ctx, func() error {
		if u, ok := m.st.users[followerID]; ok {
			following = u.IsFollowing(followingID)
		}
		return nil
	})
	return following, err
}

func addMember(set []string, member string) ([]string, bool) {
	if lo.Contains(set, member) {
		return set, false
	}
	return append(set, member), true
}

func removeMember(set []string, member string) ([]string, bool) {
	if !lo.Contains(set, member) {
		return set, false
	}
	return lo.Without(set, member), true
}

func (m *MemoryRepository) mutate(ctx context.Context, userID string, fn func(u *models.User)) (*models.User, error) {
	var updated *models.User
	err := m.write(ctx, func() error {
		u, ok := m.st.users[userID]
		if !ok {
			return ErrNotFound
		}
		fn(u)
		u.UpdatedAt = m.now()
		updated = u.Clone()
		return nil
	})
	return updated, err
}

// AddFollower increments followersCount and adds followerID to followers
func (m *MemoryRepository) AddFollower(ctx context.Context, userID, followerID string) (*models.User, error) {
	return m.mutate(ctx, userID, func(u *models.User) {
		var added bool
		if u.Followers, added = addMember(u.Followers, followerID); added {
			u.FollowersCount++
		}
	})
}

// AddFollowing increments followingCount and adds followingID to following
func (m *MemoryRepository) AddFollowing(ctx context.Context, userID, followingID string) (*models.User, error) {
	return m.mutate(ctx, userID, func(u *models.User) {
		var added bool
		if u.Following, added = addMember(u.Following, followingID); added {
			u.FollowingCount++
		}
	})
}

// RemoveFollower decrements followersCount and removes followerID from followers
func (m *MemoryRepository) RemoveFollower(ctx context.Context, userID, followerID string) (*models.User, error) {
	return m.mutate(ctx, userID, func(u *models.User) {
		var removed bool
		if u.Followers, removed = removeMember(u.Followers, followerID); removed && u.FollowersCount > 0 {
			u.FollowersCount--
		}
	})
}

// RemoveFollowing decrements followingCount and removes followingID from following
func (m *MemoryRepository) RemoveFollowing(ctx context.Context, userID, followingID string) (*models.User, error) {
	return m.mutate(ctx, userID, func(u *models.User) {
		var removed bool
		if u.Following, removed = removeMember(u.Following, followingID); removed && u.FollowingCount > 0 {
			u.FollowingCount--
		}
	})
}

// PurgeReferences removes id from all relationship sets
func (m *MemoryRepository) PurgeReferences(ctx context.Context, id string) (int64, error) {
	var changed int64
	err := m.write(ctx, func() error {
		for _, u := range m.st.users {
			var inFollowers, inFollowing bool
			u.Followers, inFollowers = removeMember(u.Followers, id)
			u.Following, inFollowing = removeMember(u.Following, id)
			if inFollowers && u.FollowersCount > 0 {
				u.FollowersCount--
			}
			if inFollowing && u.FollowingCount > 0 {
				u.FollowingCount--
			}
			if inFollowers || inFollowing {
				u.UpdatedAt = m.now()
				changed++
			}
		}
		return nil
	})
	return changed, err
}

// ReconcileCounters resets counters to the size of their sets
func (m *MemoryRepository) ReconcileCounters(ctx context.Context) (int64, error) {
	var repaired int64
	err := m.write(ctx, func() error {
		for _, u := range m.st.users {
			if u.FollowersCount != len(u.Followers) || u.FollowingCount != len(u.Following) {
				u.FollowersCount = len(u.Followers)
				u.FollowingCount = len(u.Following)
				u.UpdatedAt = m.now()
				repaired++
			}
		}
		return nil
	})
	return repaired, err
}

// WithinTx runs fn with the store locked and restores the previous state if
// fn fails or ctx is cancelled before it returns
func (m *MemoryRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error {
	if m.inTx {
		return fn(ctx, m)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.st.mu.Lock()
	defer m.st.mu.Unlock()

	snapshot := make(map[string]*models.User, len(m.st.users))
	for id, u := range m.st.users {
		snapshot[id] = u.Clone()
	}

	err := fn(ctx, &MemoryRepository{st: m.st, inTx: true, now: m.now})
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		m.st.users = snapshot
	}
	return err
}

// Put stores a copy of user as-is, bypassing validation. Used to seed data.
func (m *MemoryRepository) Put(user *models.User) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	m.st.users[user.ID] = user.Clone()
}
