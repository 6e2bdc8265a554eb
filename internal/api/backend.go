package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"tangle/internal/core"
)

const sessionCookie = "tangle_session"

// Backend maps HTTP requests onto the feed and interaction services. It
// stays thin: parse, resolve the viewer, call the service, serialize.
type Backend struct {
	Logger       *slog.Logger
	Feeds        core.Feeds
	Interactions core.Interactions
	Auth         core.AuthProvider
}

func (b *Backend) Init(context.Context) error {
	b.Logger = b.Logger.With("component", "api.Backend")
	return nil
}

func (b *Backend) Routes(r chi.Router) {
	r.Get("/posts", b.listPosts)
	r.Post("/posts/new", b.createPost)
	r.Get("/posts/{id}", b.getPost)
	r.Put("/posts/{id}/edit", b.editPost)
	r.Post("/posts/{id}/like", b.likePost)

	r.Get("/profile/{username}", b.profile)
	r.Get("/profile/{username}/{page}", b.profile)
	r.Post("/profile/{username}/follow", b.follow)

	r.Get("/following", b.following)
	r.Get("/following/{page}", b.following)

	r.Post("/register", b.register)
	r.Post("/login", b.login)
	r.Post("/logout", b.logout)
}

type contentRequest struct {
	Content string `json:"content"`
}

type actionRequest struct {
	Action string `json:"action"`
}

type credentialsRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (b *Backend) listPosts(w http.ResponseWriter, r *http.Request) {
	page, err := b.Feeds.Global(r.Context(), pageParam(r), b.viewerID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

func (b *Backend) getPost(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, core.ErrNotFound)
		return
	}

	view, err := b.Feeds.Post(r.Context(), id, b.viewerID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

func (b *Backend) createPost(w http.ResponseWriter, r *http.Request) {
	viewer, ok := b.requireViewer(w, r)
	if !ok {
		return
	}

	var req contentRequest
	if !decode(w, r, &req) {
		return
	}

	view, err := b.Interactions.CreatePost(r.Context(), viewer.ID, req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, view)
}

func (b *Backend) editPost(w http.ResponseWriter, r *http.Request) {
	viewer, ok := b.requireViewer(w, r)
	if !ok {
		return
	}

	id, err := idParam(r)
	if err != nil {
		writeError(w, r, core.ErrNotFound)
		return
	}

	var req contentRequest
	if !decode(w, r, &req) {
		return
	}

	view, err := b.Interactions.EditPost(r.Context(), id, viewer.ID, req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

func (b *Backend) likePost(w http.ResponseWriter, r *http.Request) {
	viewer, ok := b.requireViewer(w, r)
	if !ok {
		return
	}

	id, err := idParam(r)
	if err != nil {
		writeError(w, r, core.ErrNotFound)
		return
	}

	var req actionRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := b.Interactions.ToggleLike(r.Context(), id, viewer.ID, req.Action)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (b *Backend) profile(w http.ResponseWriter, r *http.Request) {
	profile, err := b.Feeds.Profile(r.Context(), chi.URLParam(r, "username"), pageParam(r), b.viewerID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

func (b *Backend) follow(w http.ResponseWriter, r *http.Request) {
	viewer, ok := b.requireViewer(w, r)
	if !ok {
		return
	}

	var req actionRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := b.Interactions.ToggleFollow(r.Context(), viewer.ID, chi.URLParam(r, "username"), req.Action)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (b *Backend) following(w http.ResponseWriter, r *http.Request) {
	page, err := b.Feeds.Following(r.Context(), b.viewerID(r), pageParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decode(w, r, &req) {
		return
	}

	if _, err := b.Auth.CreateAccount(r.Context(), req.Username, req.Email, req.Password); err != nil {
		writeError(w, r, err)
		return
	}

	b.openSession(w, r, req.Username, req.Password)
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decode(w, r, &req) {
		return
	}

	b.openSession(w, r, req.Username, req.Password)
}

func (b *Backend) logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		if err := b.Auth.Logout(r.Context(), cookie.Value); err != nil {
			writeError(w, r, err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (b *Backend) openSession(w http.ResponseWriter, r *http.Request, username, password string) {
	session, err := b.Auth.Authenticate(r.Context(), username, password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "authenticated"})
}

// viewerID resolves the optional caller identity from the session cookie.
// An anonymous or stale session is just a nil viewer, never an error.
func (b *Backend) viewerID(r *http.Request) *int64 {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil
	}

	user, err := b.Auth.CurrentUser(r.Context(), cookie.Value)
	if err != nil {
		return nil
	}

	return &user.ID
}

func (b *Backend) requireViewer(w http.ResponseWriter, r *http.Request) (*core.User, bool) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		writeError(w, r, core.ErrUnauthenticated)
		return nil, false
	}

	user, err := b.Auth.CurrentUser(r.Context(), cookie.Value)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}

	return user, true
}

// pageParam reads the page from the path when the route carries one,
// falling back to the ?page= query parameter. Anything unparsable is page 1.
func pageParam(r *http.Request) int {
	raw := chi.URLParam(r, "page")
	if raw == "" {
		raw = r.URL.Query().Get("page")
	}

	page, err := strconv.Atoi(raw)
	if err != nil {
		return 1
	}
	return page
}

func idParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("bad_request", "malformed request body"))
		return false
	}
	return true
}
