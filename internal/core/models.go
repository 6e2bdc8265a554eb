package core

import (
	"time"
)

// User is a registered account. Follower and following counts are maintained
// incrementally alongside the follow edges, never recomputed by scanning.
type User struct {
	ID             int64  `gorm:"primaryKey"`
	Username       string `gorm:"size:150;uniqueIndex;not null"`
	Email          string `gorm:"size:255"`
	PasswordHash   string `gorm:"not null"`
	FollowersCount int64  `gorm:"not null;default:0"`
	FollowingCount int64  `gorm:"not null;default:0"`
	CreatedAt      time.Time
}

func (User) TableName() string {
	return "users"
}

// Post is a short text entry. CreatedAt is set once at creation and never
// changes; UpdatedAt tracks edits and has no effect on feed ordering.
type Post struct {
	ID         int64     `gorm:"primaryKey"`
	AuthorID   int64     `gorm:"index;not null"`
	Author     User      `gorm:"foreignKey:AuthorID"`
	Content    string    `gorm:"not null"`
	LikesCount int64     `gorm:"not null;default:0"`
	CreatedAt  time.Time `gorm:"index"`
	UpdatedAt  time.Time
}

func (Post) TableName() string {
	return "posts"
}

// Follow is a directed edge: FollowerID follows FollowedID. At most one edge
// per pair, never a self-loop.
type Follow struct {
	ID         int64 `gorm:"primaryKey"`
	FollowerID int64 `gorm:"not null;index;uniqueIndex:idx_follows_pair"`
	FollowedID int64 `gorm:"not null;index;uniqueIndex:idx_follows_pair"`
	CreatedAt  time.Time
}

func (Follow) TableName() string {
	return "follows"
}

// Like is an edge between a user and a post, at most one per pair.
type Like struct {
	ID        int64 `gorm:"primaryKey"`
	UserID    int64 `gorm:"not null;uniqueIndex:idx_likes_pair"`
	PostID    int64 `gorm:"not null;index;uniqueIndex:idx_likes_pair"`
	CreatedAt time.Time
}

func (Like) TableName() string {
	return "likes"
}

// Session is an authenticated browser session, keyed by an opaque token.
type Session struct {
	Token     string `gorm:"primaryKey;size:36"`
	UserID    int64  `gorm:"not null;index"`
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (Session) TableName() string {
	return "sessions"
}

// Models lists every persisted model, in migration order.
func Models() []any {
	return []any{&User{}, &Post{}, &Follow{}, &Like{}, &Session{}}
}
