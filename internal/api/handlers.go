package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/asocial/asocial-backend/internal/db/entities"
	"github.com/asocial/asocial-backend/internal/social"
	"go.uber.org/zap"
)

// UserService is the user domain as seen by the handlers
type UserService interface {
	Register(ctx context.Context, in social.NewUser) (string, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
	GetByUsername(ctx context.Context, username string) (*entities.User, error)
	List(ctx context.Context) ([]entities.User, error)
	Update(ctx context.Context, email string, patch social.UserPatch) (*entities.User, error)
}

type PostService interface {
	Create(ctx context.Context, in social.NewPost) (string, error)
	Edit(ctx context.Context, id, writings string) (*entities.Post, error)
	Delete(ctx context.Context, id string) error
	ListByAuthor(ctx context.Context, email string) ([]entities.Post, error)
	Feed(ctx context.Context, page, limit int) (*social.Feed, error)
	Popular(ctx context.Context) ([]social.PopularPost, error)
	RenameAuthor(ctx context.Context, email, username string) (int64, error)
}

type CommentService interface {
	Create(ctx context.Context, in social.NewComment) (string, error)
	Edit(ctx context.Context, id, text string) (*entities.Comment, error)
	Delete(ctx context.Context, id string) error
	ListByPost(ctx context.Context, postID string) ([]entities.Comment, error)
	RenameAuthor(ctx context.Context, email, username string) (int64, error)
}

type LikeService interface {
	Add(ctx context.Context, postID, email string) (string, error)
	Remove(ctx context.Context, id string) error
	Count(ctx context.Context, postID string) (int64, error)
	Status(ctx context.Context, postID, email string) (*social.LikeStatus, error)
}

// HealthChecker reports whether the store can serve requests
type HealthChecker interface {
	IsHealthy(ctx context.Context) bool
}

// MetricsInterface defines the interface for metrics recording
type MetricsInterface interface {
	RecordHTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration)
}

// maxBodyBytes bounds request bodies; photos travel as URLs
const maxBodyBytes = 1 << 20

type Handler struct {
	users    UserService
	posts    PostService
	comments CommentService
	likes    LikeService
	health   HealthChecker
	logger   *zap.SugaredLogger
}

func NewHandler(
	users UserService,
	posts PostService,
	comments CommentService,
	likes LikeService,
	health HealthChecker,
	logger *zap.SugaredLogger,
) *Handler {
	return &Handler{
		users:    users,
		posts:    posts,
		comments: comments,
		likes:    likes,
		health:   health,
		logger:   logger,
	}
}

// NewHandlerFromServices wires a handler to the concrete domain services
func NewHandlerFromServices(s *social.Services, health HealthChecker, logger *zap.SugaredLogger) *Handler {
	return NewHandler(s.Users, s.Posts, s.Comments, s.Likes, health, logger)
}

func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("aSocial server is running"))
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.health != nil && !h.health.IsHealthy(r.Context()) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("STORE UNAVAILABLE"))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("READY"))
}

// Utility methods
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	if status >= http.StatusInternalServerError {
		h.logger.Errorw("API error", "code", code, "message", message, "status", status)
	} else {
		h.logger.Debugw("API error", "code", code, "message", message, "status", status)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := ErrorResponse{
		Code:    code,
		Message: message,
	}
	json.NewEncoder(w).Encode(err)
}

// resource names the client-facing messages for one kind of record
type resource struct {
	name     string
	conflict string
}

var (
	userResource    = resource{name: "user", conflict: "email or username already taken"}
	postResource    = resource{name: "post", conflict: "post already exists"}
	commentResource = resource{name: "comment", conflict: "comment already exists"}
	likeResource    = resource{name: "like", conflict: "post already liked"}
)

// handleError answers a failed service call. Every handler funnels its
// errors through here. Clients get a fixed message per error class; the
// full chain only goes to the log.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error, res resource) {
	var inputErr *social.InputError
	switch {
	case errors.Is(err, social.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "NOT_FOUND", res.name+" not found")
	case errors.Is(err, social.ErrConflict):
		h.writeError(w, http.StatusBadRequest, "CONFLICT", res.conflict)
	case errors.As(err, &inputErr):
		h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", inputErr.Reason)
	case errors.Is(err, social.ErrInvalidInput):
		h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid "+res.name)
	case errors.Is(err, context.DeadlineExceeded):
		h.logger.Warnw("Request timed out", "method", r.Method, "path", r.URL.Path, "error", err)
		h.writeError(w, http.StatusServiceUnavailable, "TIMEOUT", "request timed out")
		return
	default:
		h.logger.Errorw("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}
	h.logger.Debugw("Request rejected", "method", r.Method, "path", r.URL.Path, "error", err)
}

// decodeJSON reads a JSON body into v and answers 400 when it is malformed
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			h.writeError(w, http.StatusBadRequest, "BAD_REQUEST", "request body is empty")
			return false
		}
		h.writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON: "+err.Error())
		return false
	}
	return true
}
