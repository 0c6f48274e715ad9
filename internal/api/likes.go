package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) AddLike(w http.ResponseWriter, r *http.Request) {
	var req AddLikeRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	id, err := h.likes.Add(r.Context(), req.PostID, req.Email)
	if err != nil {
		h.handleError(w, r, err, likeResource)
		return
	}
	h.writeJSON(w, http.StatusOK, InsertedResponse{Message: "Like added", InsertedID: id})
}

func (h *Handler) RemoveLike(w http.ResponseWriter, r *http.Request) {
	if err := h.likes.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.handleError(w, r, err, likeResource)
		return
	}
	h.writeJSON(w, http.StatusOK, MessageResponse{Message: "Like removed"})
}

func (h *Handler) CountLikes(w http.ResponseWriter, r *http.Request) {
	n, err := h.likes.Count(r.Context(), chi.URLParam(r, "postId"))
	if err != nil {
		h.handleError(w, r, err, likeResource)
		return
	}
	h.writeJSON(w, http.StatusOK, CountResponse{Count: n})
}

func (h *Handler) GetLikeStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.likes.Status(r.Context(), chi.URLParam(r, "postId"), chi.URLParam(r, "email"))
	if err != nil {
		h.handleError(w, r, err, likeResource)
		return
	}
	h.writeJSON(w, http.StatusOK, status)
}
