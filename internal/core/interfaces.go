package core

import (
	"context"

	"gorm.io/gorm"
)

type DB interface {
	WithContext(ctx context.Context) *gorm.DB
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	EstimatedCount(tableName string) (int64, error)
}

type Migrator interface {
	Up(ctx context.Context) error
	Down(ctx context.Context) error
}

// UserRepository is the identity store: users and follow edges.
type UserRepository interface {
	Register(ctx context.Context, username, email, passwordHash string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)

	Follow(ctx context.Context, followerID, followedID int64) (*FollowResult, error)
	Unfollow(ctx context.Context, followerID, followedID int64) (*FollowResult, error)
	IsFollowing(ctx context.Context, followerID, followedID int64) (bool, error)
	FollowingIDs(ctx context.Context, userID int64) ([]int64, error)
}

// PostRepository is the post store: posts and like edges.
type PostRepository interface {
	Create(ctx context.Context, authorID int64, content string) (*Post, error)
	Edit(ctx context.Context, postID, requesterID int64, content string) (*Post, error)
	Get(ctx context.Context, id int64) (*Post, error)

	Like(ctx context.Context, postID, userID int64) (*LikeResult, error)
	Unlike(ctx context.Context, postID, userID int64) (*LikeResult, error)
	LikedSet(ctx context.Context, viewerID int64, postIDs []int64) (map[int64]bool, error)

	ListAll(ctx context.Context, offset, limit int) ([]Post, int64, error)
	ListByAuthors(ctx context.Context, authorIDs []int64, offset, limit int) ([]Post, int64, error)
}

// Feeds is the read side: paginated feed views and single-post lookups.
type Feeds interface {
	Global(ctx context.Context, page int, viewerID *int64) (*Page[PostView], error)
	Profile(ctx context.Context, username string, page int, viewerID *int64) (*ProfilePage, error)
	Following(ctx context.Context, viewerID *int64, page int) (*Page[PostView], error)
	Post(ctx context.Context, id int64, viewerID *int64) (*PostView, error)
}

// Interactions is the write side: every operation authorizes, mutates once,
// then serializes. All mutations are idempotent.
type Interactions interface {
	CreatePost(ctx context.Context, authorID int64, content string) (*PostView, error)
	EditPost(ctx context.Context, postID, requesterID int64, content string) (*PostView, error)
	ToggleLike(ctx context.Context, postID, userID int64, action string) (*LikeResult, error)
	ToggleFollow(ctx context.Context, followerID int64, targetUsername, action string) (*FollowResult, error)
}

// AuthProvider owns credentials and sessions. The rest of the system only
// ever sees user ids.
type AuthProvider interface {
	CreateAccount(ctx context.Context, username, email, password string) (*User, error)
	Authenticate(ctx context.Context, username, password string) (*Session, error)
	CurrentUser(ctx context.Context, token string) (*User, error)
	Logout(ctx context.Context, token string) error
}

// ActivityPublisher receives events emitted by the interaction service.
// Emit must never block a request.
type ActivityPublisher interface {
	Emit(event ActivityEvent)
}
