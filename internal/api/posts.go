package api

import (
	"net/http"
	"strconv"

	"github.com/asocial/asocial-backend/internal/social"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req CreatePostRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	id, err := h.posts.Create(r.Context(), social.NewPost{
		Username: req.Username,
		Email:    req.Email,
		Writings: req.Writings,
		Photo:    req.Photo,
	})
	if err != nil {
		h.handleError(w, r, err, postResource)
		return
	}

	h.writeJSON(w, http.StatusOK, InsertedResponse{Message: "Post created", InsertedID: id})
}

func (h *Handler) EditPost(w http.ResponseWriter, r *http.Request) {
	var req EditPostRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.Writings == nil {
		h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "writings is required")
		return
	}

	post, err := h.posts.Edit(r.Context(), chi.URLParam(r, "id"), *req.Writings)
	if err != nil {
		h.handleError(w, r, err, postResource)
		return
	}

	h.writeJSON(w, http.StatusOK, UpdatedResponse{Message: "Post updated", Data: post})
}

func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	if err := h.posts.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.handleError(w, r, err, postResource)
		return
	}
	h.writeJSON(w, http.StatusOK, MessageResponse{Message: "Post deleted"})
}

func (h *Handler) ListPostsByAuthor(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.ListByAuthor(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		h.handleError(w, r, err, postResource)
		return
	}
	h.writeJSON(w, http.StatusOK, posts)
}

// GetFeed serves one page of all posts. Unparseable paging values fall back
// to the defaults.
func (h *Handler) GetFeed(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", social.DefaultPage)
	limit := queryInt(r, "limit", social.DefaultPageSize)

	feed, err := h.posts.Feed(r.Context(), page, limit)
	if err != nil {
		h.handleError(w, r, err, postResource)
		return
	}
	h.writeJSON(w, http.StatusOK, feed)
}

func (h *Handler) GetPopularPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.Popular(r.Context())
	if err != nil {
		h.handleError(w, r, err, postResource)
		return
	}
	h.writeJSON(w, http.StatusOK, posts)
}

func (h *Handler) RenamePostAuthor(w http.ResponseWriter, r *http.Request) {
	var req RenameAuthorRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	n, err := h.posts.RenameAuthor(r.Context(), chi.URLParam(r, "email"), req.Username)
	if err != nil {
		h.handleError(w, r, err, postResource)
		return
	}
	h.writeJSON(w, http.StatusOK, ModifiedResponse{Message: "Posts updated", ModifiedCount: n})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
