package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Dan9191/recipe-service/internal/apperr"
	"github.com/Dan9191/recipe-service/internal/auth"
	"github.com/Dan9191/recipe-service/internal/models"
	"github.com/Dan9191/recipe-service/internal/repository"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// CreateUserInput is the payload of an admin account creation
type CreateUserInput struct {
	Name         string        `json:"name"`
	Email        string        `json:"email"`
	Password     string        `json:"password"`
	Role         models.Role   `json:"role"`
	Status       models.Status `json:"status"`
	Bio          string        `json:"bio"`
	ProfilePhoto string        `json:"profilePhoto"`
	MobileNumber string        `json:"mobileNumber"`
}

var (
	roleRule   = validation.In(models.RoleAdmin, models.RoleUser).Error("must be ADMIN or USER")
	statusRule = validation.In(models.StatusActive, models.StatusBlocked).Error("must be ACTIVE or BLOCKED")
)

func (in CreateUserInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required.Error("Name is required")),
		validation.Field(&in.Email, validation.Required.Error("Email is required"), is.EmailFormat.Error("Invalid email")),
		validation.Field(&in.Password, validation.Required.Error("Password is required")),
		validation.Field(&in.Role, validation.Required, roleRule),
		validation.Field(&in.Status, statusRule),
		validation.Field(&in.Bio, validation.Required.Error("Bio is required")),
		validation.Field(&in.ProfilePhoto, validation.Required.Error("Profile is required")),
	)
}

// UpdateUserInput is a partial profile update; nil fields are left untouched
type UpdateUserInput struct {
	Name         *string        `json:"name"`
	Email        *string        `json:"email"`
	Password     *string        `json:"password"`
	Role         *models.Role   `json:"role"`
	Status       *models.Status `json:"status"`
	Bio          *string        `json:"bio"`
	ProfilePhoto *string        `json:"profilePhoto"`
	MobileNumber *string        `json:"mobileNumber"`
}

func (in UpdateUserInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.NilOrNotEmpty),
		validation.Field(&in.Email, validation.NilOrNotEmpty, is.EmailFormat.Error("Invalid email")),
		validation.Field(&in.Password, validation.NilOrNotEmpty),
		validation.Field(&in.Role, roleRule),
		validation.Field(&in.Status, statusRule),
	)
}

// normalizeEmail gives emails one stored form so lookups and uniqueness
// ignore case on every backend
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// invalid converts a validation failure into a 400
func invalid(err error) error {
	return apperr.BadRequest(err.Error()).Wrap(err)
}

func (s *Service) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CreateUser creates an account with a hashed password
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	in.Email = normalizeEmail(in.Email)
	if err := in.Validate(); err != nil {
		return nil, invalid(err)
	}
	if in.Status == "" {
		in.Status = models.StatusActive
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		Status:       in.Status,
		Bio:          in.Bio,
		ProfilePhoto: in.ProfilePhoto,
		MobileNumber: in.MobileNumber,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, apperr.ErrEmailTaken
		}
		return nil, err
	}

	s.log.Infof("User created: %s", user.Email)
	return user, nil
}

// UserPage is one page of a user listing
type UserPage struct {
	Meta   PageMeta       `json:"meta"`
	Result []*models.User `json:"result"`
}

// PageMeta describes the position of a page within the listing
type PageMeta struct {
	Page      int `json:"page"`
	Limit     int `json:"limit"`
	Total     int `json:"total"`
	TotalPage int `json:"totalPage"`
}

// ListUsers returns a filtered, sorted page of users
func (s *Service) ListUsers(ctx context.Context, q models.UserQuery) (*UserPage, error) {
	q = q.Normalize()
	users, total, err := s.repo.ListUsers(ctx, q)
	if err != nil {
		return nil, err
	}
	return &UserPage{
		Meta: PageMeta{
			Page:      q.Page,
			Limit:     q.Limit,
			Total:     total,
			TotalPage: (total + q.Limit - 1) / q.Limit,
		},
		Result: users,
	}, nil
}

// GetUser returns a single user
func (s *Service) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindUserByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.ErrUserNotFound
	}
	return user, err
}

// UpdateUser applies a partial update on behalf of actor. Users may only
// update their own profile and never their role or status.
func (s *Service) UpdateUser(ctx context.Context, actor *auth.Claims, userID string, in UpdateUserInput) (*models.User, error) {
	if actor.Role != models.RoleAdmin {
		if actor.UserID != userID {
			return nil, apperr.ErrNotOwnProfile
		}
		if in.Role != nil || in.Status != nil {
			return nil, apperr.ErrRoleChange
		}
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		in.Email = &email
	}
	if err := in.Validate(); err != nil {
		return nil, invalid(err)
	}

	upd := models.UserUpdate{
		Name:         in.Name,
		Email:        in.Email,
		Role:         in.Role,
		Status:       in.Status,
		Bio:          in.Bio,
		ProfilePhoto: in.ProfilePhoto,
		MobileNumber: in.MobileNumber,
	}
	if in.Password != nil {
		hash, err := s.hashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		now := s.now()
		upd.PasswordHash = &hash
		upd.PasswordChangedAt = &now
	}

	user, err := s.repo.UpdateUser(ctx, userID, upd)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, apperr.ErrUserNotFound
	case errors.Is(err, repository.ErrDuplicateEmail):
		return nil, apperr.ErrEmailTaken
	case err != nil:
		return nil, err
	}

	s.log.WithField("user_id", userID).Info("User updated")
	return user, nil
}

// BlockUser marks an account BLOCKED and notifies its owner
func (s *Service) BlockUser(ctx context.Context, userID string) (*models.User, error) {
	blocked := models.StatusBlocked
	user, err := s.repo.UpdateUser(ctx, userID, models.UserUpdate{Status: &blocked})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	s.log.WithField("user_id", userID).Info("User blocked")
	s.notify("account blocked", func(ctx context.Context, n Notifier) error {
		return n.SendBlockedNotice(ctx, user)
	})
	return user, nil
}

// DeleteUser removes an account together with every reference to it held in
// other accounts' followers and following sets.
func (s *Service) DeleteUser(ctx context.Context, userID string) (*models.User, error) {
	var deleted *models.User
	var purged int64
	err := s.repo.WithinTx(ctx, func(ctx context.Context, tx repository.Repository) error {
		var err error
		if deleted, err = tx.DeleteUser(ctx, userID); err != nil {
			return err
		}
		purged, err = tx.PurgeReferences(ctx, userID)
		return err
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	s.log.WithField("user_id", userID).Infof("User deleted, %d related records updated", purged)
	return deleted, nil
}
