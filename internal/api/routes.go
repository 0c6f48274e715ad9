package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RouterOptions configure the router's outer behavior
type RouterOptions struct {
	CORSOrigins    []string
	RequestTimeout time.Duration
	// MetricsHandler is mounted at /metrics when set
	MetricsHandler http.Handler
}

func (h *Handler) Routes(m *Middleware, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(m.RequestID)
	r.Use(m.RequestLogger)
	r.Use(m.Recoverer)
	r.Use(m.SecurityHeaders)
	r.Use(m.Compress)
	if opts.RequestTimeout > 0 {
		r.Use(m.Timeout(opts.RequestTimeout))
	}
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(m.CORS(opts.CORSOrigins))

	r.Get("/", h.Root)

	// Health endpoints
	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	if opts.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", opts.MetricsHandler)
	}

	// Users
	r.Post("/users", h.RegisterUser)
	r.Get("/users", h.ListUsers)
	r.Route("/user", func(r chi.Router) {
		r.Get("/username/{username}", h.GetUserByUsername)
		r.Get("/{email}", h.GetUserByEmail)
		r.Patch("/{email}", h.UpdateUser)
	})

	// Posts
	r.Route("/posts", func(r chi.Router) {
		r.Get("/", h.GetFeed)
		r.Post("/", h.CreatePost)
		r.Get("/popular", h.GetPopularPosts)
		r.Get("/{email}", h.ListPostsByAuthor)
		r.Patch("/{email}", h.RenamePostAuthor)
	})
	r.Patch("/post/{id}", h.EditPost)
	r.Delete("/post/{id}", h.DeletePost)

	// Comments. The key is a post ID on GET and an author email on PATCH.
	r.Post("/comments", h.CreateComment)
	r.Get("/comments/{key}", h.ListComments)
	r.Patch("/comments/{key}", h.RenameCommentAuthor)
	r.Patch("/comment/{id}", h.EditComment)
	r.Delete("/comment/{id}", h.DeleteComment)

	// Likes
	r.Post("/likes", h.AddLike)
	r.Get("/likes/count/{postId}", h.CountLikes)
	r.Get("/likes/{postId}/{email}", h.GetLikeStatus)
	r.Delete("/like/{id}", h.RemoveLike)

	return r
}
