package models

import (
	"time"

	"github.com/samber/lo"
)

// Role is the authorization role of a user
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Status is the account status of a user
type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusBlocked Status = "BLOCKED"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusBlocked
}

// User represents a user in the system
type User struct {
	ID                string     `json:"_id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	PasswordHash      string     `json:"-"` // Not serialized
	Role              Role       `json:"role"`
	Status            Status     `json:"status"`
	Bio               string     `json:"bio"`
	ProfilePhoto      string     `json:"profilePhoto"`
	MobileNumber      string     `json:"mobileNumber,omitempty"`
	IsPremium         bool       `json:"isPremium"`
	PasswordChangedAt *time.Time `json:"passwordChangedAt,omitempty"`
	Followers         []string   `json:"followers"`
	Following         []string   `json:"following"`
	FollowersCount    int        `json:"followersCount"`
	FollowingCount    int        `json:"followingCount"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// Clone returns a deep copy of the user
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Followers = append([]string{}, u.Followers...)
	c.Following = append([]string{}, u.Following...)
	if u.PasswordChangedAt != nil {
		t := *u.PasswordChangedAt
		c.PasswordChangedAt = &t
	}
	return &c
}

// IsFollowing reports whether the user follows id
func (u *User) IsFollowing(id string) bool {
	return lo.Contains(u.Following, id)
}

// UserUpdate carries a partial update; nil fields are left untouched
type UserUpdate struct {
	Name              *string
	Email             *string
	PasswordHash      *string
	PasswordChangedAt *time.Time
	Role              *Role
	Status            *Status
	Bio               *string
	ProfilePhoto      *string
	MobileNumber      *string
	IsPremium         *bool
}

// Empty reports whether the update changes nothing
func (u UserUpdate) Empty() bool {
	return u.Name == nil && u.Email == nil && u.PasswordHash == nil && u.PasswordChangedAt == nil &&
		u.Role == nil && u.Status == nil && u.Bio == nil && u.ProfilePhoto == nil &&
		u.MobileNumber == nil && u.IsPremium == nil
}

// UserQuery describes list filtering, search, sorting and pagination
type UserQuery struct {
	SearchTerm string
	Role       Role
	Status     Status
	Sort       string // field name, "-" prefix for descending
	Page       int
	Limit      int
}

// Sortable user fields and their column names
var UserSortFields = map[string]string{
	"createdAt":      "created_at",
	"updatedAt":      "updated_at",
	"name":           "name",
	"email":          "email",
	"followersCount": "followers_count",
	"followingCount": "following_count",
}

const (
	DefaultUserSort  = "-createdAt"
	DefaultUserPage  = 1
	DefaultUserLimit = 10
	MaxUserLimit     = 100
)

// Normalize fills defaults and clamps paging values
func (q UserQuery) Normalize() UserQuery {
	if _, ok := UserSortFields[trimSortPrefix(q.Sort)]; !ok {
		q.Sort = DefaultUserSort
	}
	if q.Page < 1 {
		q.Page = DefaultUserPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultUserLimit
	}
	if q.Limit > MaxUserLimit {
		q.Limit = MaxUserLimit
	}
	return q
}

// SortField returns the requested field and whether it sorts descending
func (q UserQuery) SortField() (string, bool) {
	return trimSortPrefix(q.Sort), len(q.Sort) > 0 && q.Sort[0] == '-'
}

// Offset returns the number of rows to skip
func (q UserQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

func trimSortPrefix(s string) string {
	if len(s) > 0 && s[0] == '-' {
		return s[1:]
	}
	return s
}
