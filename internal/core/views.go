package core

import (
	"time"
)

// PageSize is the fixed number of posts per feed page.
const PageSize = 10

// DefaultMaxPostLength caps post content length unless configured otherwise.
const DefaultMaxPostLength = 280

// PostView is the serialized form of a post, safe to hand to any transport.
// LikedByViewer is computed per request against the viewer identity and is
// never stored on the post itself.
type PostView struct {
	ID            int64  `json:"id"`
	Author        string `json:"author"`
	AuthorID      int64  `json:"author_id"`
	Content       string `json:"content"`
	CreatedAt     string `json:"created_at"`
	Likes         int64  `json:"likes"`
	LikedByViewer bool   `json:"is_liked"`
}

// FormatTimestamp renders a timestamp the way every PostView does.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// Page is one page of a feed. Pages are 1-based; a page past the end carries
// no items but still reports correct totals.
type Page[T any] struct {
	Items       []T  `json:"items"`
	CurrentPage int  `json:"current_page"`
	TotalPages  int  `json:"total_pages"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}

// Profile summarizes a user for the profile page. IsFollowing reflects the
// requesting viewer and is false for anonymous viewers.
type Profile struct {
	Username       string `json:"username"`
	FollowersCount int64  `json:"followers_count"`
	FollowingCount int64  `json:"following_count"`
	IsFollowing    bool   `json:"is_following"`
}

// ProfilePage is a profile summary together with one page of the user's posts.
type ProfilePage struct {
	Profile Profile        `json:"profile"`
	Posts   Page[PostView] `json:"posts"`
}

// LikeResult is the state of a (user, post) like edge after a toggle.
type LikeResult struct {
	Likes int64 `json:"likes"`
	Liked bool  `json:"is_liked"`
}

// FollowResult is the state of a follow relation after a toggle. The counts
// are those of the followed (target) user.
type FollowResult struct {
	Following      bool  `json:"is_following"`
	FollowersCount int64 `json:"followers_count"`
	FollowingCount int64 `json:"following_count"`
}

// ActivityEvent is emitted after every successful mutation.
type ActivityEvent struct {
	Verb    string    `json:"verb"`
	ActorID int64     `json:"actor_id"`
	Subject int64     `json:"subject_id"`
	At      time.Time `json:"at"`
}
