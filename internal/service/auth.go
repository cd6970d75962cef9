package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dan9191/recipe-service/internal/apperr"
	"github.com/Dan9191/recipe-service/internal/models"
	"github.com/Dan9191/recipe-service/internal/repository"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/crypto/bcrypt"
)

// LoginResult is returned on successful authentication
type LoginResult struct {
	AccessToken string       `json:"accessToken"`
	User        *models.User `json:"user"`
}

// Login authenticates a user and returns an access token
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.repo.FindUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.ErrInvalidLogin
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.ErrInvalidLogin
	}
	if user.Status == models.StatusBlocked {
		return nil, apperr.ErrUserBlocked
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	s.log.Infof("User logged in: %s", user.Email)
	return &LoginResult{AccessToken: token, User: user}, nil
}

// ChangePassword replaces the password of userID. Tokens issued before the
// change stop being accepted; the returned token is issued after it.
func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) (*LoginResult, error) {
	err := validation.Errors{
		"oldPassword": validation.Validate(oldPassword, validation.Required),
		"newPassword": validation.Validate(newPassword, validation.Required),
	}.Filter()
	if err != nil {
		return nil, invalid(err)
	}

	user, err := s.repo.FindUserByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return nil, apperr.ErrWrongPassword
	}

	hash, err := s.hashPassword(newPassword)
	if err != nil {
		return nil, err
	}
	now := s.now()
	user, err = s.repo.UpdateUser(ctx, userID, models.UserUpdate{PasswordHash: &hash, PasswordChangedAt: &now})
	if err != nil {
		return nil, fmt.Errorf("failed to change password: %w", err)
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	s.log.WithField("user_id", userID).Info("Password changed")
	return &LoginResult{AccessToken: token, User: user}, nil
}
