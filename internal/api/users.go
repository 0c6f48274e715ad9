package api

import (
	"net/http"

	"github.com/asocial/asocial-backend/internal/social"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req RegisterUserRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	id, err := h.users.Register(r.Context(), social.NewUser{
		Username:  req.Username,
		Email:     req.Email,
		Institute: req.Institute,
		Address:   req.Address,
		Photo:     req.Photo,
	})
	if err != nil {
		h.handleError(w, r, err, userResource)
		return
	}

	h.writeJSON(w, http.StatusOK, InsertedResponse{Message: "User registered", InsertedID: id})
}

func (h *Handler) GetUserByEmail(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByEmail(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		h.handleError(w, r, err, userResource)
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

func (h *Handler) GetUserByUsername(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		h.handleError(w, r, err, userResource)
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		h.handleError(w, r, err, userResource)
		return
	}
	h.writeJSON(w, http.StatusOK, users)
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	user, err := h.users.Update(r.Context(), chi.URLParam(r, "email"), social.UserPatch{
		Username:  req.Username,
		Institute: req.Institute,
		Address:   req.Address,
		Photo:     req.Photo,
	})
	if err != nil {
		h.handleError(w, r, err, userResource)
		return
	}

	h.writeJSON(w, http.StatusOK, UpdatedResponse{Message: "User updated", Data: user})
}
