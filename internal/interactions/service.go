// Package interactions is the write side: each operation authorizes,
// mutates the stores once, then serializes the result.
package interactions

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"tangle/internal/core"
)

const (
	ActionLike     = "like"
	ActionUnlike   = "unlike"
	ActionFollow   = "follow"
	ActionUnfollow = "unfollow"
)

var interactionsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tangle_interactions_processed_total",
	Help: "The total number of successfully processed interactions",
}, []string{"verb"})

type Service struct {
	Logger   *slog.Logger
	Users    core.UserRepository
	Posts    core.PostRepository
	Activity core.ActivityPublisher
}

func (s *Service) Init(_ context.Context) error {
	s.Logger = s.Logger.With("component", "interactions.Service")
	return nil
}

func (s *Service) CreatePost(ctx context.Context, authorID int64, content string) (*core.PostView, error) {
	post, err := s.Posts.Create(ctx, authorID, content)
	if err != nil {
		return nil, err
	}

	s.emit("post.created", authorID, post.ID)

	return serialize(post, false), nil
}

func (s *Service) EditPost(ctx context.Context, postID, requesterID int64, content string) (*core.PostView, error) {
	post, err := s.Posts.Edit(ctx, postID, requesterID, content)
	if err != nil {
		return nil, err
	}

	liked, err := s.Posts.LikedSet(ctx, requesterID, []int64{post.ID})
	if err != nil {
		return nil, err
	}

	s.emit("post.edited", requesterID, post.ID)

	return serialize(post, liked[post.ID]), nil
}

// ToggleLike applies a "like" or "unlike" action token. Repeated identical
// actions land on the same state and the same success response.
func (s *Service) ToggleLike(ctx context.Context, postID, userID int64, action string) (*core.LikeResult, error) {
	switch action {
	case ActionLike:
		result, err := s.Posts.Like(ctx, postID, userID)
		if err != nil {
			return nil, err
		}
		s.emit(ActionLike, userID, postID)
		return result, nil

	case ActionUnlike:
		result, err := s.Posts.Unlike(ctx, postID, userID)
		if err != nil {
			return nil, err
		}
		s.emit(ActionUnlike, userID, postID)
		return result, nil

	default:
		return nil, core.ErrInvalidAction
	}
}

// ToggleFollow applies a "follow" or "unfollow" action token against a
// target username.
func (s *Service) ToggleFollow(ctx context.Context, followerID int64, targetUsername, action string) (*core.FollowResult, error) {
	if action != ActionFollow && action != ActionUnfollow {
		return nil, core.ErrInvalidAction
	}

	target, err := s.Users.GetByUsername(ctx, targetUsername)
	if err != nil {
		return nil, err
	}

	var result *core.FollowResult
	if action == ActionFollow {
		result, err = s.Users.Follow(ctx, followerID, target.ID)
	} else {
		result, err = s.Users.Unfollow(ctx, followerID, target.ID)
	}
	if err != nil {
		return nil, err
	}

	s.emit(action, followerID, target.ID)

	return result, nil
}

func (s *Service) emit(verb string, actorID, subjectID int64) {
	interactionsProcessed.WithLabelValues(verb).Inc()

	if s.Activity == nil {
		return
	}

	s.Activity.Emit(core.ActivityEvent{
		Verb:    verb,
		ActorID: actorID,
		Subject: subjectID,
		At:      time.Now().UTC(),
	})
}

func serialize(post *core.Post, liked bool) *core.PostView {
	return &core.PostView{
		ID:            post.ID,
		Author:        post.Author.Username,
		AuthorID:      post.AuthorID,
		Content:       post.Content,
		CreatedAt:     core.FormatTimestamp(post.CreatedAt),
		Likes:         post.LikesCount,
		LikedByViewer: liked,
	}
}
