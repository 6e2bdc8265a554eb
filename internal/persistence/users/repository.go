// Package users is the identity store: accounts and the follow graph.
package users

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tangle/internal/core"
)

type Repository struct {
	Logger *slog.Logger
	DB     core.DB
}

func (r *Repository) Init(_ context.Context) error {
	r.Logger = r.Logger.With("component", "users.Repository")
	return nil
}

func (r *Repository) Register(ctx context.Context, username, email, passwordHash string) (*core.User, error) {
	user := core.User{
		Username:     strings.TrimSpace(username),
		Email:        strings.TrimSpace(email),
		PasswordHash: passwordHash,
	}

	err := r.DB.WithContext(ctx).Create(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, core.ErrDuplicateUsername
		}
		return nil, err
	}

	return &user, nil
}

func (r *Repository) GetByUsername(ctx context.Context, username string) (*core.User, error) {
	var user core.User

	err := r.DB.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, core.ErrUserNotFound
		}
		return nil, err
	}

	return &user, nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*core.User, error) {
	var user core.User

	err := r.DB.WithContext(ctx).First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, core.ErrUserNotFound
		}
		return nil, err
	}

	return &user, nil
}

// Follow inserts the (follower, followed) edge unless it already exists and
// bumps both counters in the same transaction. The unique pair index makes
// concurrent duplicates settle on a single edge. Re-following is a no-op
// that still reports success.
func (r *Repository) Follow(ctx context.Context, followerID, followedID int64) (*core.FollowResult, error) {
	if followerID == followedID {
		return nil, core.ErrSelfFollow
	}

	var result core.FollowResult

	err := r.DB.Transaction(ctx, func(tx *gorm.DB) error {
		if err := userExists(tx, followedID); err != nil {
			return err
		}

		edge := core.Follow{FollowerID: followerID, FollowedID: followedID}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&edge)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected > 0 {
			if err := bumpCounter(tx, followedID, "followers_count", 1); err != nil {
				return err
			}
			if err := bumpCounter(tx, followerID, "following_count", 1); err != nil {
				return err
			}
		}

		followed, err := targetCounts(tx, followedID)
		if err != nil {
			return err
		}

		result = core.FollowResult{
			Following:      true,
			FollowersCount: followed.FollowersCount,
			FollowingCount: followed.FollowingCount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// Unfollow removes the edge if present. Unfollowing a user who was never
// followed is a no-op that still reports success; that covers self-unfollow
// too, since a self edge can never exist.
func (r *Repository) Unfollow(ctx context.Context, followerID, followedID int64) (*core.FollowResult, error) {
	var result core.FollowResult

	err := r.DB.Transaction(ctx, func(tx *gorm.DB) error {
		if err := userExists(tx, followedID); err != nil {
			return err
		}

		res := tx.
			Where("follower_id = ? AND followed_id = ?", followerID, followedID).
			Delete(&core.Follow{})
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected > 0 {
			if err := bumpCounter(tx, followedID, "followers_count", -1); err != nil {
				return err
			}
			if err := bumpCounter(tx, followerID, "following_count", -1); err != nil {
				return err
			}
		}

		followed, err := targetCounts(tx, followedID)
		if err != nil {
			return err
		}

		result = core.FollowResult{
			Following:      false,
			FollowersCount: followed.FollowersCount,
			FollowingCount: followed.FollowingCount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *Repository) IsFollowing(ctx context.Context, followerID, followedID int64) (bool, error) {
	var count int64

	err := r.DB.WithContext(ctx).
		Model(&core.Follow{}).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Count(&count).Error

	return count > 0, err
}

func (r *Repository) FollowingIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64

	err := r.DB.WithContext(ctx).
		Model(&core.Follow{}).
		Where("follower_id = ?", userID).
		Pluck("followed_id", &ids).Error

	return ids, err
}

func userExists(tx *gorm.DB, id int64) error {
	var count int64

	err := tx.Model(&core.User{}).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return core.ErrUserNotFound
	}

	return nil
}

// targetCounts reads the counters inside the same transaction as the edge
// write, so the reported counts always match the edge set.
func targetCounts(tx *gorm.DB, id int64) (*core.User, error) {
	var user core.User

	err := tx.First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, core.ErrUserNotFound
		}
		return nil, err
	}

	return &user, nil
}

func bumpCounter(tx *gorm.DB, userID int64, column string, delta int) error {
	return tx.Model(&core.User{}).
		Where("id = ?", userID).
		UpdateColumn(column, gorm.Expr(column+" + ?", delta)).Error
}
