package social

import (
	"context"
	"strings"

	"github.com/asocial/asocial-backend/internal/db/entities"
	"github.com/asocial/asocial-backend/internal/db/interfaces"
	"github.com/asocial/asocial-backend/internal/metrics"
	"go.uber.org/zap"
)

// NewUser is a registration request
type NewUser struct {
	Username  string
	Email     string
	Institute string
	Address   string
	Photo     string
}

// UserPatch holds the profile fields to change. Nil fields are left alone.
type UserPatch struct {
	Username  *string
	Institute *string
	Address   *string
	Photo     *string
}

// UserService manages user registration and profiles
type UserService struct {
	db       interfaces.Database
	users    interfaces.Repository
	posts    interfaces.Repository
	comments interfaces.Repository
	metrics  *metrics.Metrics
	logger   *zap.SugaredLogger
}

func NewUserService(db interfaces.Database, m *metrics.Metrics, logger *zap.SugaredLogger) *UserService {
	return &UserService{
		db:       db,
		users:    db.Repository(entities.UserSchema),
		posts:    db.Repository(entities.PostSchema),
		comments: db.Repository(entities.CommentSchema),
		metrics:  m,
		logger:   logger,
	}
}

// Register inserts a user and returns its ID. The unique indexes on email
// and username reject duplicates with ErrConflict.
func (s *UserService) Register(ctx context.Context, in NewUser) (string, error) {
	if strings.TrimSpace(in.Email) == "" {
		return "", invalid("email is required")
	}
	if strings.TrimSpace(in.Username) == "" {
		return "", invalid("username is required")
	}

	data := map[string]interface{}{
		"username": in.Username,
		"email":    in.Email,
	}
	for field, value := range map[string]string{"institute": in.Institute, "address": in.Address, "photo": in.Photo} {
		if value != "" {
			data[field] = value
		}
	}

	record, err := s.users.Create(ctx, data)
	if err != nil {
		s.metrics.RecordStoreError(ctx, "users.create")
		return "", storeError("register user", err)
	}

	id, _ := record[interfaces.FieldID].(string)
	s.metrics.RecordEvent(ctx, metrics.EventUserRegistered)
	s.logger.Debugw("User registered", "id", id, "email", in.Email)
	return id, nil
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	return s.findOne(ctx, "email", email)
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*entities.User, error) {
	return s.findOne(ctx, "username", username)
}

func (s *UserService) findOne(ctx context.Context, field, value string) (*entities.User, error) {
	record, err := s.users.FindOne(ctx, &interfaces.Query{
		Where: interfaces.Where(interfaces.Eq(field, value)),
	})
	if err != nil {
		return nil, storeError("find user by "+field, err)
	}
	return entities.Decode[entities.User](record)
}

// List returns every user in insertion order
func (s *UserService) List(ctx context.Context) ([]entities.User, error) {
	page, err := s.users.FindMany(ctx, &interfaces.Query{OrderBy: ascending(interfaces.FieldID)})
	if err != nil {
		return nil, storeError("list users", err)
	}
	return entities.DecodeAll[entities.User](page.Data)
}

// Update patches the user identified by email and marks the profile as
// edited. A username change is copied onto the user's posts and comments in
// the same transaction.
func (s *UserService) Update(ctx context.Context, email string, patch UserPatch) (*entities.User, error) {
	if patch.Username != nil && strings.TrimSpace(*patch.Username) == "" {
		return nil, invalid("username cannot be empty")
	}

	data := map[string]interface{}{"isUpdated": true}
	setOptional(data, map[string]*string{
		"username":  patch.Username,
		"institute": patch.Institute,
		"address":   patch.Address,
		"photo":     patch.Photo,
	})

	var updated map[string]interface{}
	err := s.db.Transaction(ctx, func(ctx context.Context, tx interfaces.Transaction) error {
		current, err := s.users.FindOne(ctx, &interfaces.Query{
			Where: interfaces.Where(interfaces.Eq("email", email)),
		})
		if err != nil {
			return storeError("find user", err)
		}

		updated, err = s.users.Update(ctx, interfaces.StringID(current[interfaces.FieldID].(string)), data)
		if err != nil {
			return storeError("update user", err)
		}

		if patch.Username == nil || current["username"] == *patch.Username {
			return nil
		}
		if _, err := renameAuthor(ctx, s.posts, email, *patch.Username); err != nil {
			return storeError("rename post author", err)
		}
		if _, err := renameAuthor(ctx, s.comments, email, *patch.Username); err != nil {
			return storeError("rename comment author", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordEvent(ctx, metrics.EventUserUpdated)
	return entities.Decode[entities.User](updated)
}
