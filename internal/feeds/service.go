// Package feeds composes the identity and post stores into the three
// paginated feed views and single-post lookups.
package feeds

import (
	"context"
	"log/slog"

	"github.com/samber/lo"

	"tangle/internal/core"
)

type Service struct {
	Logger *slog.Logger
	Users  core.UserRepository
	Posts  core.PostRepository
}

func (s *Service) Init(_ context.Context) error {
	s.Logger = s.Logger.With("component", "feeds.Service")
	return nil
}

// Global returns one page of all posts, newest first.
func (s *Service) Global(ctx context.Context, page int, viewerID *int64) (*core.Page[core.PostView], error) {
	page = clampPage(page)

	posts, total, err := s.Posts.ListAll(ctx, offset(page), core.PageSize)
	if err != nil {
		return nil, err
	}

	return s.buildPage(ctx, posts, total, page, viewerID)
}

// Profile returns the user's profile summary together with one page of
// their posts.
func (s *Service) Profile(ctx context.Context, username string, page int, viewerID *int64) (*core.ProfilePage, error) {
	user, err := s.Users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	page = clampPage(page)

	posts, total, err := s.Posts.ListByAuthors(ctx, []int64{user.ID}, offset(page), core.PageSize)
	if err != nil {
		return nil, err
	}

	postsPage, err := s.buildPage(ctx, posts, total, page, viewerID)
	if err != nil {
		return nil, err
	}

	isFollowing := false
	if viewerID != nil && *viewerID != user.ID {
		isFollowing, err = s.Users.IsFollowing(ctx, *viewerID, user.ID)
		if err != nil {
			return nil, err
		}
	}

	return &core.ProfilePage{
		Profile: core.Profile{
			Username:       user.Username,
			FollowersCount: user.FollowersCount,
			FollowingCount: user.FollowingCount,
			IsFollowing:    isFollowing,
		},
		Posts: *postsPage,
	}, nil
}

// Following returns one page of posts authored by users the viewer follows.
// A viewer who follows nobody gets an empty page, not an error.
func (s *Service) Following(ctx context.Context, viewerID *int64, page int) (*core.Page[core.PostView], error) {
	if viewerID == nil {
		return nil, core.ErrUnauthenticated
	}

	page = clampPage(page)

	authorIDs, err := s.Users.FollowingIDs(ctx, *viewerID)
	if err != nil {
		return nil, err
	}

	posts, total, err := s.Posts.ListByAuthors(ctx, authorIDs, offset(page), core.PageSize)
	if err != nil {
		return nil, err
	}

	return s.buildPage(ctx, posts, total, page, viewerID)
}

// Post returns a single serialized post.
func (s *Service) Post(ctx context.Context, id int64, viewerID *int64) (*core.PostView, error) {
	post, err := s.Posts.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	views, err := s.serialize(ctx, []core.Post{*post}, viewerID)
	if err != nil {
		return nil, err
	}

	return &views[0], nil
}

func (s *Service) buildPage(ctx context.Context, posts []core.Post, total int64, page int, viewerID *int64) (*core.Page[core.PostView], error) {
	views, err := s.serialize(ctx, posts, viewerID)
	if err != nil {
		return nil, err
	}

	pages := pageCount(total)

	return &core.Page[core.PostView]{
		Items:       views,
		CurrentPage: page,
		TotalPages:  pages,
		HasNext:     page < pages,
		HasPrevious: page > 1,
	}, nil
}

// serialize turns posts into views, computing LikedByViewer for the whole
// batch in one query. The liked flag is the only viewer-specific state.
func (s *Service) serialize(ctx context.Context, posts []core.Post, viewerID *int64) ([]core.PostView, error) {
	liked := map[int64]bool{}

	if viewerID != nil && len(posts) > 0 {
		ids := lo.Map(posts, func(p core.Post, _ int) int64 {
			return p.ID
		})

		var err error
		liked, err = s.Posts.LikedSet(ctx, *viewerID, ids)
		if err != nil {
			return nil, err
		}
	}

	return lo.Map(posts, func(p core.Post, _ int) core.PostView {
		return core.PostView{
			ID:            p.ID,
			Author:        p.Author.Username,
			AuthorID:      p.AuthorID,
			Content:       p.Content,
			CreatedAt:     core.FormatTimestamp(p.CreatedAt),
			Likes:         p.LikesCount,
			LikedByViewer: liked[p.ID],
		}
	}), nil
}

func clampPage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

func offset(page int) int {
	return (page - 1) * core.PageSize
}

// pageCount is at least 1: an empty feed still has one (empty) page.
func pageCount(total int64) int {
	pages := int((total + core.PageSize - 1) / core.PageSize)
	if pages < 1 {
		return 1
	}
	return pages
}
