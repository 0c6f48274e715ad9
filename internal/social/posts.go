package social

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/asocial/asocial-backend/internal/db/entities"
	"github.com/asocial/asocial-backend/internal/db/interfaces"
	"github.com/asocial/asocial-backend/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Feed paging defaults
const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
	PopularLimit    = 3

	popularTimeout = 10 * time.Second
)

// NewPost is a post creation request
type NewPost struct {
	Username string
	Email    string
	Writings string
	Photo    string
}

// Feed is one page of the global post feed
type Feed struct {
	Posts       []entities.Post `json:"posts"`
	TotalPages  int             `json:"totalPages"`
	CurrentPage int             `json:"currentPage"`
	TotalPosts  int64           `json:"totalPosts"`
}

// PopularPost is a post with its like count
type PopularPost struct {
	entities.Post
	LikesCount int64 `json:"likesCount"`
}

// PostService manages posts and the feeds built from them
type PostService struct {
	db       interfaces.Database
	posts    interfaces.Repository
	comments interfaces.Repository
	likes    interfaces.Repository
	cascade  bool
	popular  singleflight.Group
	metrics  *metrics.Metrics
	logger   *zap.SugaredLogger
}

func NewPostService(db interfaces.Database, opts Options, m *metrics.Metrics, logger *zap.SugaredLogger) *PostService {
	return &PostService{
		db:       db,
		posts:    db.Repository(entities.PostSchema),
		comments: db.Repository(entities.CommentSchema),
		likes:    db.Repository(entities.LikeSchema),
		cascade:  opts.PostDeleteCascade,
		metrics:  m,
		logger:   logger,
	}
}

func (s *PostService) Create(ctx context.Context, in NewPost) (string, error) {
	if strings.TrimSpace(in.Email) == "" {
		return "", invalid("email is required")
	}

	data := map[string]interface{}{
		"username": in.Username,
		"email":    in.Email,
		"writings": in.Writings,
	}
	if in.Photo != "" {
		data["photo"] = in.Photo
	}

	record, err := s.posts.Create(ctx, data)
	if err != nil {
		s.metrics.RecordStoreError(ctx, "posts.create")
		return "", storeError("create post", err)
	}

	id, _ := record[interfaces.FieldID].(string)
	s.metrics.RecordEvent(ctx, metrics.EventPostCreated)
	return id, nil
}

// Edit replaces the text of an existing post. It never creates one.
func (s *PostService) Edit(ctx context.Context, id, writings string) (*entities.Post, error) {
	record, err := s.posts.Update(ctx, interfaces.StringID(id), map[string]interface{}{
		"writings":  writings,
		"isUpdated": true,
	})
	if err != nil {
		return nil, storeError("edit post", err)
	}

	s.metrics.RecordEvent(ctx, metrics.EventPostEdited)
	return entities.Decode[entities.Post](record)
}

// Delete removes a post. With cascading enabled its comments and likes go
// in the same transaction.
func (s *PostService) Delete(ctx context.Context, id string) error {
	if !s.cascade {
		if err := s.posts.Delete(ctx, interfaces.StringID(id)); err != nil {
			return storeError("delete post", err)
		}
		s.metrics.RecordEvent(ctx, metrics.EventPostDeleted)
		return nil
	}

	var comments, likes int64
	err := s.db.Transaction(ctx, func(ctx context.Context, tx interfaces.Transaction) error {
		if err := s.posts.Delete(ctx, interfaces.StringID(id)); err != nil {
			return storeError("delete post", err)
		}

		byPost := interfaces.Where(interfaces.Eq("post_id", id))
		var err error
		if comments, err = s.comments.DeleteMany(ctx, byPost); err != nil {
			return storeError("delete post comments", err)
		}
		if likes, err = s.likes.DeleteMany(ctx, byPost); err != nil {
			return storeError("delete post likes", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.RecordEvent(ctx, metrics.EventPostDeleted)
	s.logger.Debugw("Post deleted", "id", id, "comments", comments, "likes", likes)
	return nil
}

// ListByAuthor returns the posts written by email, newest first
func (s *PostService) ListByAuthor(ctx context.Context, email string) ([]entities.Post, error) {
	page, err := s.posts.FindMany(ctx, &interfaces.Query{
		Where:   interfaces.Where(interfaces.Eq("email", email)),
		OrderBy: newestFirst(),
	})
	if err != nil {
		return nil, storeError("list posts by author", err)
	}
	return entities.DecodeAll[entities.Post](page.Data)
}

// NormalizePage applies feed defaults to out of range paging values
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

// Feed returns one page of every post, newest first
func (s *PostService) Feed(ctx context.Context, page, limit int) (*Feed, error) {
	page, limit = NormalizePage(page, limit)
	offset := (page - 1) * limit

	result, err := s.posts.FindMany(ctx, &interfaces.Query{
		OrderBy: newestFirst(),
		Limit:   &limit,
		Offset:  &offset,
	})
	if err != nil {
		return nil, storeError("load feed", err)
	}

	posts, err := entities.DecodeAll[entities.Post](result.Data)
	if err != nil {
		return nil, err
	}

	return &Feed{
		Posts:       posts,
		TotalPages:  int((result.Total + int64(limit) - 1) / int64(limit)),
		CurrentPage: page,
		TotalPosts:  result.Total,
	}, nil
}

// Popular returns the most liked posts, most likes first. Likes whose post
// no longer exists are ignored. Concurrent callers share one in-flight
// aggregation.
func (s *PostService) Popular(ctx context.Context) ([]PopularPost, error) {
	ch := s.popular.DoChan("popular", func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), popularTimeout)
		defer cancel()
		return s.loadPopular(ctx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		shared := res.Val.([]PopularPost)
		return append(make([]PopularPost, 0, len(shared)), shared...), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *PostService) loadPopular(ctx context.Context) ([]PopularPost, error) {
	groups, err := s.likes.GroupCount(ctx, "post_id", nil)
	if err != nil {
		return nil, storeError("count likes", err)
	}

	popular := make([]PopularPost, 0, PopularLimit)
	for _, group := range groups {
		if len(popular) == PopularLimit {
			break
		}

		record, err := s.posts.GetByID(ctx, interfaces.StringID(group.Key))
		if errors.Is(err, interfaces.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, storeError("load popular post", err)
		}

		post, err := entities.Decode[entities.Post](record)
		if err != nil {
			return nil, err
		}
		popular = append(popular, PopularPost{Post: *post, LikesCount: group.Count})
	}
	return popular, nil
}

// RenameAuthor overwrites the username on every post written by email and
// returns the number of posts matched
func (s *PostService) RenameAuthor(ctx context.Context, email, username string) (int64, error) {
	n, err := renameAuthor(ctx, s.posts, email, username)
	if err != nil {
		return 0, storeError("rename post author", err)
	}
	s.metrics.RecordEvent(ctx, metrics.EventAuthorRenamed)
	return n, nil
}
