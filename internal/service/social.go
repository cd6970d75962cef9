package service

import (
	"context"
	"errors"

	"github.com/Dan9191/recipe-service/internal/apperr"
	"github.com/Dan9191/recipe-service/internal/models"
	"github.com/Dan9191/recipe-service/internal/repository"
	"github.com/sirupsen/logrus"
)

// FollowResult holds both records after a follow
type FollowResult struct {
	Followed *models.User `json:"followedUser"`
	Follower *models.User `json:"followerUser"`
}

// UnfollowResult holds both records after an unfollow
type UnfollowResult struct {
	Unfollowed *models.User `json:"unfollowedUser"`
	Unfollower *models.User `json:"unfollowerUser"`
}

var errFollowingIDRequired = apperr.BadRequest("followingId is required")

// Follow makes followerID follow followingID. The relationship check and both
// record updates commit together or not at all.
func (s *Service) Follow(ctx context.Context, followerID, followingID string) (*FollowResult, error) {
	if followingID == "" {
		return nil, errFollowingIDRequired
	}
	if followerID == followingID {
		return nil, apperr.ErrSelfFollow
	}

	unlock := s.pairs.Lock(followerID, followingID)
	defer unlock()

	var res FollowResult
	err := s.repo.WithinTx(ctx, func(ctx context.Context, tx repository.Repository) error {
		if err := tx.LockUsers(ctx, followerID, followingID); err != nil {
			return err
		}
		following, err := tx.IsFollowing(ctx, followerID, followingID)
		if err != nil {
			return err
		}
		if following {
			return apperr.ErrAlreadyFollowing
		}

		if res.Followed, err = tx.AddFollower(ctx, followingID, followerID); err != nil {
			return updateFailed(err)
		}
		if res.Follower, err = tx.AddFollowing(ctx, followerID, followingID); err != nil {
			return updateFailed(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"follower_id":  followerID,
		"following_id": followingID,
	}).Info("User followed")

	followed, follower := res.Followed, res.Follower
	s.notify("new follower", func(ctx context.Context, n Notifier) error {
		return n.SendNewFollower(ctx, followed, follower)
	})
	return &res, nil
}

// Unfollow removes the relationship created by Follow
func (s *Service) Unfollow(ctx context.Context, followerID, followingID string) (*UnfollowResult, error) {
	if followingID == "" {
		return nil, errFollowingIDRequired
	}
	if followerID == followingID {
		return nil, apperr.ErrNotFollowing
	}

	unlock := s.pairs.Lock(followerID, followingID)
	defer unlock()

	var res UnfollowResult
	err := s.repo.WithinTx(ctx, func(ctx context.Context, tx repository.Repository) error {
		if err := tx.LockUsers(ctx, followerID, followingID); err != nil {
			return err
		}
		following, err := tx.IsFollowing(ctx, followerID, followingID)
		if err != nil {
			return err
		}
		if !following {
			return apperr.ErrNotFollowing
		}

		if res.Unfollowed, err = tx.RemoveFollower(ctx, followingID, followerID); err != nil {
			return updateFailed(err)
		}
		if res.Unfollower, err = tx.RemoveFollowing(ctx, followerID, followingID); err != nil {
			return updateFailed(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"follower_id":  followerID,
		"following_id": followingID,
	}).Info("User unfollowed")
	return &res, nil
}

// updateFailed reports a missing record during a relationship update
func updateFailed(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.ErrUpdateFailed.Wrap(err)
	}
	return err
}
