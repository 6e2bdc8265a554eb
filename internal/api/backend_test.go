package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"tangle/internal/api"
	"tangle/internal/auth"
	"tangle/internal/core"
	"tangle/internal/feeds"
	"tangle/internal/interactions"
	"tangle/internal/persistence/persistencetest"
	"tangle/internal/persistence/posts"
	"tangle/internal/persistence/users"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	db := persistencetest.NewDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	userRepo := &users.Repository{Logger: logger, DB: db}
	postRepo := &posts.Repository{Logger: logger, DB: db}

	backend := &api.Backend{
		Logger:       logger,
		Feeds:        &feeds.Service{Logger: logger, Users: userRepo, Posts: postRepo},
		Interactions: &interactions.Service{Logger: logger, Users: userRepo, Posts: postRepo},
		Auth:         &auth.Provider{Logger: logger, DB: db, Users: userRepo},
	}

	r := chi.NewMux()
	backend.Routes(r)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return server
}

func newClient(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &http.Client{Jar: jar}
}

func do(t *testing.T, client *http.Client, method, url string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequestWithContext(t.Context(), method, url, &buf)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	return resp
}

func parse[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	return out
}

func errorKind(t *testing.T, resp *http.Response) string {
	t.Helper()

	body := parse[struct {
		Error struct {
			Kind string `json:"kind"`
		} `json:"error"`
	}](t, resp)

	return body.Error.Kind
}

func signUp(t *testing.T, server *httptest.Server, username string) *http.Client {
	t.Helper()

	client := newClient(t)
	resp := do(t, client, http.MethodPost, server.URL+"/register", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "s3cret",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	return client
}

func TestBackend_PostsFlow(t *testing.T) {
	t.Parallel()

	server := newServer(t)
	alice := signUp(t, server, "alice")
	bob := signUp(t, server, "bob")

	resp := do(t, alice, http.MethodPost, server.URL+"/posts/new", map[string]string{"content": "hello network"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := parse[core.PostView](t, resp)
	require.Equal(t, "alice", created.Author)
	require.Equal(t, "hello network", created.Content)

	resp = do(t, newClient(t), http.MethodGet, server.URL+"/posts", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := parse[core.Page[core.PostView]](t, resp)
	require.Len(t, page.Items, 1)
	require.Equal(t, 1, page.TotalPages)

	resp = do(t, bob, http.MethodGet, server.URL+fmt.Sprintf("/posts/%d", created.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, newClient(t), http.MethodGet, server.URL+"/posts/999999", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "not_found", errorKind(t, resp))

	// only the author may edit
	resp = do(t, bob, http.MethodPut, server.URL+fmt.Sprintf("/posts/%d/edit", created.ID), map[string]string{"content": "hijacked"})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "forbidden", errorKind(t, resp))

	resp = do(t, alice, http.MethodPut, server.URL+fmt.Sprintf("/posts/%d/edit", created.ID), map[string]string{"content": "hello again"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	edited := parse[core.PostView](t, resp)
	require.Equal(t, "hello again", edited.Content)
	require.Equal(t, created.CreatedAt, edited.CreatedAt)
}

func TestBackend_Likes(t *testing.T) {
	t.Parallel()

	server := newServer(t)
	alice := signUp(t, server, "alice")
	bob := signUp(t, server, "bob")

	resp := do(t, alice, http.MethodPost, server.URL+"/posts/new", map[string]string{"content": "likeable"})
	created := parse[core.PostView](t, resp)

	likeURL := server.URL + fmt.Sprintf("/posts/%d/like", created.ID)

	resp = do(t, bob, http.MethodPost, likeURL, map[string]string{"action": "like"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := parse[core.LikeResult](t, resp)
	require.True(t, result.Liked)
	require.EqualValues(t, 1, result.Likes)

	resp = do(t, bob, http.MethodPost, likeURL, map[string]string{"action": "smash"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid_action", errorKind(t, resp))

	// anonymous likes are rejected
	resp = do(t, newClient(t), http.MethodPost, likeURL, map[string]string{"action": "like"})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "unauthenticated", errorKind(t, resp))
}

func TestBackend_ProfileAndFollowing(t *testing.T) {
	t.Parallel()

	server := newServer(t)
	alice := signUp(t, server, "alice")
	bob := signUp(t, server, "bob")

	do(t, alice, http.MethodPost, server.URL+"/posts/new", map[string]string{"content": "from alice"})

	resp := do(t, newClient(t), http.MethodGet, server.URL+"/profile/ghost", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "user_not_found", errorKind(t, resp))

	resp = do(t, bob, http.MethodGet, server.URL+"/following", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := parse[core.Page[core.PostView]](t, resp)
	require.Empty(t, page.Items)

	resp = do(t, newClient(t), http.MethodGet, server.URL+"/following", nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = do(t, bob, http.MethodPost, server.URL+"/profile/alice/follow", map[string]string{"action": "follow"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	follow := parse[core.FollowResult](t, resp)
	require.True(t, follow.Following)
	require.EqualValues(t, 1, follow.FollowersCount)

	resp = do(t, bob, http.MethodPost, server.URL+"/profile/bob/follow", map[string]string{"action": "follow"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "self_follow", errorKind(t, resp))

	resp = do(t, bob, http.MethodGet, server.URL+"/following", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page = parse[core.Page[core.PostView]](t, resp)
	require.Len(t, page.Items, 1)
	require.Equal(t, "from alice", page.Items[0].Content)

	resp = do(t, bob, http.MethodGet, server.URL+"/profile/alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	profile := parse[core.ProfilePage](t, resp)
	require.True(t, profile.Profile.IsFollowing)
	require.EqualValues(t, 1, profile.Profile.FollowersCount)
}

func TestBackend_PathPagination(t *testing.T) {
	t.Parallel()

	server := newServer(t)
	alice := signUp(t, server, "alice")
	bob := signUp(t, server, "bob")

	for i := range 15 {
		resp := do(t, alice, http.MethodPost, server.URL+"/posts/new", map[string]string{"content": fmt.Sprintf("post %d", i)})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp := do(t, bob, http.MethodPost, server.URL+"/profile/alice/follow", map[string]string{"action": "follow"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, newClient(t), http.MethodGet, server.URL+"/profile/alice/2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	profile := parse[core.ProfilePage](t, resp)
	require.Equal(t, 2, profile.Posts.CurrentPage)
	require.Len(t, profile.Posts.Items, 5)

	resp = do(t, bob, http.MethodGet, server.URL+"/following/2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := parse[core.Page[core.PostView]](t, resp)
	require.Equal(t, 2, page.CurrentPage)
	require.Len(t, page.Items, 5)
	require.True(t, page.HasPrevious)
	require.False(t, page.HasNext)

	// the query form pages the global feed; /posts/{id} stays a post lookup
	resp = do(t, newClient(t), http.MethodGet, server.URL+"/posts?page=2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page = parse[core.Page[core.PostView]](t, resp)
	require.Equal(t, 2, page.CurrentPage)
	require.Len(t, page.Items, 5)
}

func TestBackend_Accounts(t *testing.T) {
	t.Parallel()

	server := newServer(t)
	signUp(t, server, "alice")

	// duplicate username
	client := newClient(t)
	resp := do(t, client, http.MethodPost, server.URL+"/register", map[string]string{
		"username": "alice", "email": "a@example.com", "password": "x",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "duplicate_username", errorKind(t, resp))

	// wrong password
	resp = do(t, client, http.MethodPost, server.URL+"/login", map[string]string{
		"username": "alice", "password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "invalid_credentials", errorKind(t, resp))

	// login then logout closes the session
	resp = do(t, client, http.MethodPost, server.URL+"/login", map[string]string{
		"username": "alice", "password": "s3cret",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, client, http.MethodPost, server.URL+"/logout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, client, http.MethodPost, server.URL+"/posts/new", map[string]string{"content": "after logout"})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}
