package social

import (
	"context"
	"strings"

	"github.com/asocial/asocial-backend/internal/db/entities"
	"github.com/asocial/asocial-backend/internal/db/interfaces"
	"github.com/asocial/asocial-backend/internal/metrics"
	"go.uber.org/zap"
)

// NewComment is a comment creation request
type NewComment struct {
	PostID   string
	Username string
	Email    string
	Comment  string
}

type CommentService struct {
	comments interfaces.Repository
	metrics  *metrics.Metrics
	logger   *zap.SugaredLogger
}

func NewCommentService(db interfaces.Database, m *metrics.Metrics, logger *zap.SugaredLogger) *CommentService {
	return &CommentService{
		comments: db.Repository(entities.CommentSchema),
		metrics:  m,
		logger:   logger,
	}
}

func (s *CommentService) Create(ctx context.Context, in NewComment) (string, error) {
	if strings.TrimSpace(in.PostID) == "" {
		return "", invalid("post_id is required")
	}

	record, err := s.comments.Create(ctx, map[string]interface{}{
		"post_id":  in.PostID,
		"username": in.Username,
		"email":    in.Email,
		"comment":  in.Comment,
	})
	if err != nil {
		s.metrics.RecordStoreError(ctx, "comments.create")
		return "", storeError("create comment", err)
	}

	id, _ := record[interfaces.FieldID].(string)
	s.metrics.RecordEvent(ctx, metrics.EventCommentCreated)
	return id, nil
}

// Edit replaces the text of an existing comment
func (s *CommentService) Edit(ctx context.Context, id, text string) (*entities.Comment, error) {
	record, err := s.comments.Update(ctx, interfaces.StringID(id), map[string]interface{}{
		"comment": text,
	})
	if err != nil {
		return nil, storeError("edit comment", err)
	}

	s.metrics.RecordEvent(ctx, metrics.EventCommentEdited)
	return entities.Decode[entities.Comment](record)
}

func (s *CommentService) Delete(ctx context.Context, id string) error {
	if err := s.comments.Delete(ctx, interfaces.StringID(id)); err != nil {
		return storeError("delete comment", err)
	}
	s.metrics.RecordEvent(ctx, metrics.EventCommentDeleted)
	return nil
}

// ListByPost returns a post's comments, oldest first
func (s *CommentService) ListByPost(ctx context.Context, postID string) ([]entities.Comment, error) {
	page, err := s.comments.FindMany(ctx, &interfaces.Query{
		Where: interfaces.Where(interfaces.Eq("post_id", postID)),
		OrderBy: []interfaces.OrderBy{
			{Field: interfaces.FieldCreatedAt, Direction: "asc"},
			{Field: interfaces.FieldID, Direction: "asc"},
		},
	})
	if err != nil {
		return nil, storeError("list comments", err)
	}
	return entities.DecodeAll[entities.Comment](page.Data)
}

// RenameAuthor overwrites the username on every comment written by email
func (s *CommentService) RenameAuthor(ctx context.Context, email, username string) (int64, error) {
	n, err := renameAuthor(ctx, s.comments, email, username)
	if err != nil {
		return 0, storeError("rename comment author", err)
	}
	s.metrics.RecordEvent(ctx, metrics.EventAuthorRenamed)
	return n, nil
}
