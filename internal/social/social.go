// Package social implements the aSocial domain on top of the document store:
// user registration and profile edits, posts and the global feed, comments
// and likes.
package social

import (
	"context"
	"strings"

	"github.com/asocial/asocial-backend/internal/db/interfaces"
	"github.com/asocial/asocial-backend/internal/metrics"
	"go.uber.org/zap"
)

// Options tune service behavior
type Options struct {
	// PostDeleteCascade removes a post's comments and likes with the post
	PostDeleteCascade bool
}

// Services bundles the domain services sharing one store
type Services struct {
	Users    *UserService
	Posts    *PostService
	Comments *CommentService
	Likes    *LikeService
}

// NewServices builds every domain service over db. The store must already be
// connected and migrated.
func NewServices(db interfaces.Database, opts Options, m *metrics.Metrics, logger *zap.SugaredLogger) *Services {
	return &Services{
		Users:    NewUserService(db, m, logger),
		Posts:    NewPostService(db, opts, m, logger),
		Comments: NewCommentService(db, m, logger),
		Likes:    NewLikeService(db, m, logger),
	}
}

func ascending(field string) []interfaces.OrderBy {
	return []interfaces.OrderBy{{Field: field, Direction: "asc"}}
}

func newestFirst() []interfaces.OrderBy {
	return []interfaces.OrderBy{
		{Field: interfaces.FieldCreatedAt, Direction: "desc"},
		{Field: interfaces.FieldID, Direction: "desc"},
	}
}

// renameAuthor overwrites the denormalized username on every document of
// repo written by email
func renameAuthor(ctx context.Context, repo interfaces.Repository, email, username string) (int64, error) {
	if strings.TrimSpace(email) == "" {
		return 0, invalid("email is required")
	}
	if strings.TrimSpace(username) == "" {
		return 0, invalid("username is required")
	}
	return repo.UpdateMany(ctx, interfaces.Where(interfaces.Eq("email", email)), map[string]interface{}{
		"username": username,
	})
}

// setOptional copies non-nil string pointers into data
func setOptional(data map[string]interface{}, fields map[string]*string) {
	for field, value := range fields {
		if value != nil {
			data[field] = *value
		}
	}
}
