package posts_test

import (
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tangle/internal/core"
	"tangle/internal/persistence/persistencetest"
	"tangle/internal/persistence/posts"
	"tangle/internal/persistence/users"
)

type fixture struct {
	Posts *posts.Repository
	Users *users.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := persistencetest.NewDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &fixture{
		Posts: &posts.Repository{Logger: logger, DB: db},
		Users: &users.Repository{Logger: logger, DB: db},
	}
}

func (f *fixture) user(t *testing.T, username string) *core.User {
	t.Helper()

	user, err := f.Users.Register(t.Context(), username, username+"@example.com", "hash")
	require.NoError(t, err)

	return user
}

func TestRepository_Create(t *testing.T) {
	t.Parallel()

	t.Run("trims content and sets timestamps", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		alice := f.user(t, "alice")

		before := time.Now().Add(-time.Second)

		post, err := f.Posts.Create(t.Context(), alice.ID, "  hello world  ")
		require.NoError(t, err)
		require.Equal(t, "hello world", post.Content)
		require.Equal(t, alice.ID, post.AuthorID)
		require.Equal(t, "alice", post.Author.Username)
		require.True(t, post.CreatedAt.After(before))
	})

	t.Run("rejects blank content", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		alice := f.user(t, "alice")

		_, err := f.Posts.Create(t.Context(), alice.ID, "   \n\t ")
		require.ErrorIs(t, err, core.ErrEmptyContent)
	})

	t.Run("rejects content over the limit", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		alice := f.user(t, "alice")

		_, err := f.Posts.Create(t.Context(), alice.ID, strings.Repeat("x", core.DefaultMaxPostLength+1))
		require.ErrorIs(t, err, core.ErrContentTooLong)
	})

	t.Run("rejects unknown author", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)

		_, err := f.Posts.Create(t.Context(), 12345, "hello")
		require.ErrorIs(t, err, core.ErrUserNotFound)
	})
}

func TestRepository_Edit(t *testing.T) {
	t.Parallel()

	t.Run("updates content, keeps creation time", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		alice := f.user(t, "alice")

		post, err := f.Posts.Create(t.Context(), alice.ID, "original")
		require.NoError(t, err)

		edited, err := f.Posts.Edit(t.Context(), post.ID, alice.ID, "edited")
		require.NoError(t, err)
		require.Equal(t, "edited", edited.Content)

		reloaded, err := f.Posts.Get(t.Context(), post.ID)
		require.NoError(t, err)
		require.Equal(t, "edited", reloaded.Content)
		require.True(t, reloaded.CreatedAt.Equal(post.CreatedAt))
	})

	t.Run("rejects non-author", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		alice := f.user(t, "alice")
		bob := f.user(t, "bob")

		post, err := f.Posts.Create(t.Context(), alice.ID, "original")
		require.NoError(t, err)

		_, err = f.Posts.Edit(t.Context(), post.ID, bob.ID, "hijacked")
		require.ErrorIs(t, err, core.ErrForbidden)

		reloaded, err := f.Posts.Get(t.Context(), post.ID)
		require.NoError(t, err)
		require.Equal(t, "original", reloaded.Content)
	})

	t.Run("rejects unknown post", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		alice := f.user(t, "alice")

		_, err := f.Posts.Edit(t.Context(), 404, alice.ID, "whatever")
		require.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("rejects blank content", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		alice := f.user(t, "alice")

		post, err := f.Posts.Create(t.Context(), alice.ID, "original")
		require.NoError(t, err)

		_, err = f.Posts.Edit(t.Context(), post.ID, alice.ID, "  ")
		require.ErrorIs(t, err, core.ErrEmptyContent)
	})
}

func TestRepository_LikeUnlike(t *testing.T) {
	t.Parallel()

	t.Run("round trip returns to the original count", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		alice := f.user(t, "alice")
		bob := f.user(t, "bob")

		post, err := f.Posts.Create(t.Context(), alice.ID, "likeable")
		require.NoError(t, err)

		result, err := f.Posts.Like(t.Context(), post.ID, bob.ID)
		require.NoError(t, err)
		require.True(t, result.Liked)
		require.EqualValues(t, 1, result.Likes)

		// liking twice changes the count by exactly 1, not 2
		result, err = f.Posts.Like(t.Context(), post.ID, bob.ID)
		require.NoError(t, err)
		require.EqualValues(t, 1, result.Likes)

		result, err = f.Posts.Unlike(t.Context(), post.ID, bob.ID)
		require.NoError(t, err)
		require.False(t, result.Liked)
		require.EqualValues(t, 0, result.Likes)

		result, err = f.Posts.Unlike(t.Context(), post.ID, bob.ID)
		require.NoError(t, err)
		require.EqualValues(t, 0, result.Likes)
	})

	t.Run("rejects unknown post", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		bob := f.user(t, "bob")

		_, err := f.Posts.Like(t.Context(), 404, bob.ID)
		require.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("concurrent duplicates settle on one edge", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		alice := f.user(t, "alice")
		bob := f.user(t, "bob")

		post, err := f.Posts.Create(t.Context(), alice.ID, "popular")
		require.NoError(t, err)

		var wg sync.WaitGroup
		errs := make(chan error, 8)
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.Posts.Like(t.Context(), post.ID, bob.ID)
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		reloaded, err := f.Posts.Get(t.Context(), post.ID)
		require.NoError(t, err)
		require.EqualValues(t, 1, reloaded.LikesCount)

		liked, err := f.Posts.LikedSet(t.Context(), bob.ID, []int64{post.ID})
		require.NoError(t, err)
		require.Equal(t, map[int64]bool{post.ID: true}, liked)
	})
}

func TestRepository_LikedSet(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	first, err := f.Posts.Create(t.Context(), alice.ID, "first")
	require.NoError(t, err)
	second, err := f.Posts.Create(t.Context(), alice.ID, "second")
	require.NoError(t, err)

	_, err = f.Posts.Like(t.Context(), second.ID, bob.ID)
	require.NoError(t, err)

	liked, err := f.Posts.LikedSet(t.Context(), bob.ID, []int64{first.ID, second.ID})
	require.NoError(t, err)
	require.False(t, liked[first.ID])
	require.True(t, liked[second.ID])

	liked, err = f.Posts.LikedSet(t.Context(), bob.ID, nil)
	require.NoError(t, err)
	require.Empty(t, liked)
}

func TestRepository_Listing(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	for _, content := range []string{"one", "two", "three"} {
		_, err := f.Posts.Create(t.Context(), alice.ID, content)
		require.NoError(t, err)
	}
	_, err := f.Posts.Create(t.Context(), bob.ID, "four")
	require.NoError(t, err)

	t.Run("newest first, ties broken by id", func(t *testing.T) {
		t.Parallel()

		all, total, err := f.Posts.ListAll(t.Context(), 0, 10)
		require.NoError(t, err)
		require.EqualValues(t, 4, total)
		require.Equal(t, []string{"four", "three", "two", "one"}, contents(all))
	})

	t.Run("filters by author", func(t *testing.T) {
		t.Parallel()

		byAlice, total, err := f.Posts.ListByAuthors(t.Context(), []int64{alice.ID}, 0, 10)
		require.NoError(t, err)
		require.EqualValues(t, 3, total)
		require.Equal(t, []string{"three", "two", "one"}, contents(byAlice))
	})

	t.Run("no authors means no posts", func(t *testing.T) {
		t.Parallel()

		none, total, err := f.Posts.ListByAuthors(t.Context(), nil, 0, 10)
		require.NoError(t, err)
		require.Zero(t, total)
		require.Empty(t, none)
	})
}

func contents(posts []core.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.Content
	}
	return out
}
