package api

import (
	"net/http"

	"github.com/asocial/asocial-backend/internal/social"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	var req CreateCommentRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	id, err := h.comments.Create(r.Context(), social.NewComment{
		PostID:   req.PostID,
		Username: req.Username,
		Email:    req.Email,
		Comment:  req.Comment,
	})
	if err != nil {
		h.handleError(w, r, err, commentResource)
		return
	}

	h.writeJSON(w, http.StatusOK, InsertedResponse{Message: "Comment added", InsertedID: id})
}

func (h *Handler) EditComment(w http.ResponseWriter, r *http.Request) {
	var req EditCommentRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.Comment == nil {
		h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "comment is required")
		return
	}

	comment, err := h.comments.Edit(r.Context(), chi.URLParam(r, "id"), *req.Comment)
	if err != nil {
		h.handleError(w, r, err, commentResource)
		return
	}

	h.writeJSON(w, http.StatusOK, UpdatedResponse{Message: "Comment updated", Data: comment})
}

func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	if err := h.comments.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.handleError(w, r, err, commentResource)
		return
	}
	h.writeJSON(w, http.StatusOK, MessageResponse{Message: "Comment deleted"})
}

// ListComments serves the comments of the post named by the key parameter
func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.comments.ListByPost(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		h.handleError(w, r, err, commentResource)
		return
	}
	h.writeJSON(w, http.StatusOK, comments)
}

func (h *Handler) RenameCommentAuthor(w http.ResponseWriter, r *http.Request) {
	var req RenameAuthorRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	n, err := h.comments.RenameAuthor(r.Context(), chi.URLParam(r, "key"), req.Username)
	if err != nil {
		h.handleError(w, r, err, commentResource)
		return
	}
	h.writeJSON(w, http.StatusOK, ModifiedResponse{Message: "Comments updated", ModifiedCount: n})
}
