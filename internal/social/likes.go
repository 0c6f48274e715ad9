package social

import (
	"context"
	"errors"
	"strings"

	"github.com/asocial/asocial-backend/internal/db/entities"
	"github.com/asocial/asocial-backend/internal/db/interfaces"
	"github.com/asocial/asocial-backend/internal/metrics"
	"go.uber.org/zap"
)

// LikeStatus reports whether an email has liked a post
type LikeStatus struct {
	Liked bool   `json:"liked"`
	ID    string `json:"_id,omitempty"`
}

type LikeService struct {
	likes   interfaces.Repository
	metrics *metrics.Metrics
	logger  *zap.SugaredLogger
}

func NewLikeService(db interfaces.Database, m *metrics.Metrics, logger *zap.SugaredLogger) *LikeService {
	return &LikeService{
		likes:   db.Repository(entities.LikeSchema),
		metrics: m,
		logger:  logger,
	}
}

// Add records a like. A second like of the same post by the same email is
// rejected with ErrConflict by the (post_id, email) unique index.
func (s *LikeService) Add(ctx context.Context, postID, email string) (string, error) {
	if strings.TrimSpace(postID) == "" {
		return "", invalid("post_id is required")
	}
	if strings.TrimSpace(email) == "" {
		return "", invalid("email is required")
	}

	record, err := s.likes.Create(ctx, map[string]interface{}{
		"post_id": postID,
		"email":   email,
	})
	if err != nil {
		if !errors.Is(err, interfaces.ErrUniqueConstraint) {
			s.metrics.RecordStoreError(ctx, "likes.create")
		}
		return "", storeError("add like", err)
	}

	id, _ := record[interfaces.FieldID].(string)
	s.metrics.RecordEvent(ctx, metrics.EventLikeAdded)
	return id, nil
}

// Remove deletes a like by its ID
func (s *LikeService) Remove(ctx context.Context, id string) error {
	if err := s.likes.Delete(ctx, interfaces.StringID(id)); err != nil {
		return storeError("remove like", err)
	}
	s.metrics.RecordEvent(ctx, metrics.EventLikeRemoved)
	return nil
}

func (s *LikeService) Count(ctx context.Context, postID string) (int64, error) {
	n, err := s.likes.Count(ctx, &interfaces.Query{
		Where: interfaces.Where(interfaces.Eq("post_id", postID)),
	})
	if err != nil {
		return 0, storeError("count likes", err)
	}
	return n, nil
}

func (s *LikeService) Status(ctx context.Context, postID, email string) (*LikeStatus, error) {
	record, err := s.likes.FindOne(ctx, &interfaces.Query{
		Where: interfaces.Where(
			interfaces.Eq("post_id", postID),
			interfaces.Eq("email", email),
		),
	})
	if errors.Is(err, interfaces.ErrNotFound) {
		return &LikeStatus{Liked: false}, nil
	}
	if err != nil {
		return nil, storeError("like status", err)
	}

	id, _ := record[interfaces.FieldID].(string)
	return &LikeStatus{Liked: true, ID: id}, nil
}
