// Package posts is the post store: posts and the like edges.
package posts

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tangle/internal/config"
	"tangle/internal/core"
)

const feedOrder = "created_at DESC, id DESC"

type Repository struct {
	Logger *slog.Logger
	DB     core.DB
	Config *config.Config
}

func (r *Repository) Init(_ context.Context) error {
	r.Logger = r.Logger.With("component", "posts.Repository")
	return nil
}

func (r *Repository) Create(ctx context.Context, authorID int64, content string) (*core.Post, error) {
	content, err := r.validateContent(content)
	if err != nil {
		return nil, err
	}

	var author core.User
	if err = r.DB.WithContext(ctx).First(&author, authorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, core.ErrUserNotFound
		}
		return nil, err
	}

	post := core.Post{AuthorID: authorID, Content: content}
	if err = r.DB.WithContext(ctx).Create(&post).Error; err != nil {
		return nil, err
	}
	post.Author = author

	return &post, nil
}

// Edit replaces the content of the requester's own post. CreatedAt is never
// touched, so the post keeps its place in every feed.
func (r *Repository) Edit(ctx context.Context, postID, requesterID int64, content string) (*core.Post, error) {
	post, err := r.Get(ctx, postID)
	if err != nil {
		return nil, err
	}

	if post.AuthorID != requesterID {
		return nil, core.ErrForbidden
	}

	content, err = r.validateContent(content)
	if err != nil {
		return nil, err
	}

	err = r.DB.WithContext(ctx).Model(post).Update("content", content).Error
	if err != nil {
		return nil, err
	}

	return post, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (*core.Post, error) {
	var post core.Post

	err := r.DB.WithContext(ctx).Preload("Author").First(&post, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, core.ErrNotFound
		}
		return nil, err
	}

	return &post, nil
}

// Like inserts the (user, post) edge unless it already exists and bumps the
// like counter in the same transaction, so concurrent duplicates settle on
// one edge and a single increment.
func (r *Repository) Like(ctx context.Context, postID, userID int64) (*core.LikeResult, error) {
	var result core.LikeResult

	err := r.DB.Transaction(ctx, func(tx *gorm.DB) error {
		if err := postExists(tx, postID); err != nil {
			return err
		}

		edge := core.Like{UserID: userID, PostID: postID}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&edge)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected > 0 {
			if err := bumpLikes(tx, postID, 1); err != nil {
				return err
			}
		}

		likes, err := likeCount(tx, postID)
		if err != nil {
			return err
		}

		result = core.LikeResult{Likes: likes, Liked: true}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// Unlike removes the edge if present; unliking a post that was never liked
// is a no-op that still reports success.
func (r *Repository) Unlike(ctx context.Context, postID, userID int64) (*core.LikeResult, error) {
	var result core.LikeResult

	err := r.DB.Transaction(ctx, func(tx *gorm.DB) error {
		if err := postExists(tx, postID); err != nil {
			return err
		}

		res := tx.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&core.Like{})
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected > 0 {
			if err := bumpLikes(tx, postID, -1); err != nil {
				return err
			}
		}

		likes, err := likeCount(tx, postID)
		if err != nil {
			return err
		}

		result = core.LikeResult{Likes: likes, Liked: false}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// LikedSet reports which of the given posts the viewer has liked, in a
// single query.
func (r *Repository) LikedSet(ctx context.Context, viewerID int64, postIDs []int64) (map[int64]bool, error) {
	if len(postIDs) == 0 {
		return map[int64]bool{}, nil
	}

	var liked []int64

	err := r.DB.WithContext(ctx).
		Model(&core.Like{}).
		Where("user_id = ? AND post_id IN ?", viewerID, postIDs).
		Pluck("post_id", &liked).Error
	if err != nil {
		return nil, err
	}

	return lo.Associate(liked, func(id int64) (int64, bool) {
		return id, true
	}), nil
}

func (r *Repository) ListAll(ctx context.Context, offset, limit int) ([]core.Post, int64, error) {
	return r.list(func() *gorm.DB {
		return r.DB.WithContext(ctx).Model(&core.Post{})
	}, offset, limit)
}

func (r *Repository) ListByAuthors(ctx context.Context, authorIDs []int64, offset, limit int) ([]core.Post, int64, error) {
	if len(authorIDs) == 0 {
		return nil, 0, nil
	}

	return r.list(func() *gorm.DB {
		return r.DB.WithContext(ctx).Model(&core.Post{}).Where("author_id IN ?", authorIDs)
	}, offset, limit)
}

// list runs the count and the page fetch as separate queries built from the
// same conditions.
func (r *Repository) list(q func() *gorm.DB, offset, limit int) ([]core.Post, int64, error) {
	var total int64
	if err := q().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var posts []core.Post
	err := q().
		Preload("Author").
		Order(feedOrder).
		Offset(offset).
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, 0, err
	}

	return posts, total, nil
}

func (r *Repository) validateContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", core.ErrEmptyContent
	}

	maxLength := core.DefaultMaxPostLength
	if r.Config != nil && r.Config.MaxPostLength > 0 {
		maxLength = r.Config.MaxPostLength
	}
	if utf8.RuneCountInString(content) > maxLength {
		return "", core.ErrContentTooLong
	}

	return content, nil
}

func postExists(tx *gorm.DB, id int64) error {
	var count int64

	err := tx.Model(&core.Post{}).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return core.ErrNotFound
	}

	return nil
}

func likeCount(tx *gorm.DB, postID int64) (int64, error) {
	var likes int64

	err := tx.Model(&core.Post{}).
		Where("id = ?", postID).
		Select("likes_count").
		Scan(&likes).Error

	return likes, err
}

func bumpLikes(tx *gorm.DB, postID int64, delta int) error {
	return tx.Model(&core.Post{}).
		Where("id = ?", postID).
		UpdateColumn("likes_count", gorm.Expr("likes_count + ?", delta)).Error
}
