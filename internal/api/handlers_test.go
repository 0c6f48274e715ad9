package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/asocial/asocial-backend/internal/db/entities"
	"github.com/asocial/asocial-backend/internal/social"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Mock services for handler tests

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, in social.NewUser) (string, error) {
	args := m.Called(ctx, in)
	return args.String(0), args.Error(1)
}

func (m *MockUserService) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserService) GetByUsername(ctx context.Context, username string) (*entities.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserService) List(ctx context.Context) ([]entities.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.User), args.Error(1)
}

func (m *MockUserService) Update(ctx context.Context, email string, patch social.UserPatch) (*entities.User, error) {
	args := m.Called(ctx, email, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

type MockPostService struct {
	mock.Mock
}

func (m *MockPostService) Create(ctx context.Context, in social.NewPost) (string, error) {
	args := m.Called(ctx, in)
	return args.String(0), args.Error(1)
}

func (m *MockPostService) Edit(ctx context.Context, id, writings string) (*entities.Post, error) {
	args := m.Called(ctx, id, writings)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Post), args.Error(1)
}

func (m *MockPostService) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockPostService) ListByAuthor(ctx context.Context, email string) ([]entities.Post, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Post), args.Error(1)
}

func (m *MockPostService) Feed(ctx context.Context, page, limit int) (*social.Feed, error) {
	args := m.Called(ctx, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*social.Feed), args.Error(1)
}

func (m *MockPostService) Popular(ctx context.Context) ([]social.PopularPost, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]social.PopularPost), args.Error(1)
}

func (m *MockPostService) RenameAuthor(ctx context.Context, email, username string) (int64, error) {
	args := m.Called(ctx, email, username)
	return args.Get(0).(int64), args.Error(1)
}

type MockCommentService struct {
	mock.Mock
}

func (m *MockCommentService) Create(ctx context.Context, in social.NewComment) (string, error) {
	args := m.Called(ctx, in)
	return args.String(0), args.Error(1)
}

func (m *MockCommentService) Edit(ctx context.Context, id, text string) (*entities.Comment, error) {
	args := m.Called(ctx, id, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Comment), args.Error(1)
}

func (m *MockCommentService) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockCommentService) ListByPost(ctx context.Context, postID string) ([]entities.Comment, error) {
	args := m.Called(ctx, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Comment), args.Error(1)
}

func (m *MockCommentService) RenameAuthor(ctx context.Context, email, username string) (int64, error) {
	args := m.Called(ctx, email, username)
	return args.Get(0).(int64), args.Error(1)
}

type MockLikeService struct {
	mock.Mock
}

func (m *MockLikeService) Add(ctx context.Context, postID, email string) (string, error) {
	args := m.Called(ctx, postID, email)
	return args.String(0), args.Error(1)
}

func (m *MockLikeService) Remove(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockLikeService) Count(ctx context.Context, postID string) (int64, error) {
	args := m.Called(ctx, postID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLikeService) Status(ctx context.Context, postID, email string) (*social.LikeStatus, error) {
	args := m.Called(ctx, postID, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*social.LikeStatus), args.Error(1)
}

// Ensure mocks implement the service interfaces
var (
	_ UserService    = (*MockUserService)(nil)
	_ PostService    = (*MockPostService)(nil)
	_ CommentService = (*MockCommentService)(nil)
	_ LikeService    = (*MockLikeService)(nil)
)

// Mock metrics for testing
type MockMetrics struct{}

func (m *MockMetrics) RecordHTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
}

type staticHealth bool

func (s staticHealth) IsHealthy(ctx context.Context) bool { return bool(s) }

type testDeps struct {
	users    *MockUserService
	posts    *MockPostService
	comments *MockCommentService
	likes    *MockLikeService
}

func createTestRouter(t *testing.T, healthy bool) (http.Handler, *testDeps) {
	t.Helper()

	logger, _ := zap.NewDevelopment()
	sugar := logger.Sugar()

	deps := &testDeps{
		users:    &MockUserService{},
		posts:    &MockPostService{},
		comments: &MockCommentService{},
		likes:    &MockLikeService{},
	}
	handler := NewHandler(deps.users, deps.posts, deps.comments, deps.likes, staticHealth(healthy), sugar)
	router := handler.Routes(NewMiddleware(sugar, &MockMetrics{}), RouterOptions{
		CORSOrigins:    []string{"*"},
		RequestTimeout: 5 * time.Second,
	})

	t.Cleanup(func() {
		deps.users.AssertExpectations(t)
		deps.posts.AssertExpectations(t)
		deps.comments.AssertExpectations(t)
		deps.likes.AssertExpectations(t)
	})
	return router, deps
}

func doRequest(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestRoot(t *testing.T) {
	router, _ := createTestRouter(t, true)

	rec := doRequest(t, router, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "aSocial server is running", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestReadyz(t *testing.T) {
	router, _ := createTestRouter(t, true)
	assert.Equal(t, http.StatusOK, doRequest(t, router, http.MethodGet, "/readyz", nil).Code)
	assert.Equal(t, http.StatusOK, doRequest(t, router, http.MethodGet, "/healthz", nil).Code)
	assert.Equal(t, http.StatusOK, doRequest(t, router, http.MethodGet, "/ping", nil).Code)

	router, _ = createTestRouter(t, false)
	assert.Equal(t, http.StatusServiceUnavailable, doRequest(t, router, http.MethodGet, "/readyz", nil).Code)
	assert.Equal(t, http.StatusOK, doRequest(t, router, http.MethodGet, "/healthz", nil).Code)
}

func TestErrorMapping(t *testing.T) {
	testCases := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{"not found", fmt.Errorf("find user: %w: record not found in users", social.ErrNotFound), http.StatusNotFound, "NOT_FOUND", "user not found"},
		{"conflict", fmt.Errorf("register: %w: unique constraint violation on users.email", social.ErrConflict), http.StatusBadRequest, "CONFLICT", "email or username already taken"},
		{"store validation", fmt.Errorf("find user: %w: bad operator on users.email", social.ErrInvalidInput), http.StatusBadRequest, "VALIDATION_ERROR", "invalid user"},
		{"input", fmt.Errorf("register: %w", &social.InputError{Reason: "email is required"}), http.StatusBadRequest, "VALIDATION_ERROR", "email is required"},
		{"internal", errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			router, deps := createTestRouter(t, true)
			deps.users.On("GetByEmail", mock.Anything, "ada@example.com").Return(nil, tc.err)

			rec := doRequest(t, router, http.MethodGet, "/user/ada@example.com", nil)
			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.NotContains(t, rec.Body.String(), "users")
			resp := decodeError(t, rec)
			assert.Equal(t, tc.wantCode, resp.Code)
			assert.Equal(t, tc.wantMessage, resp.Message)
		})
	}
}

func TestErrorMessagesNameTheResource(t *testing.T) {
	router, deps := createTestRouter(t, true)
	deps.likes.On("Add", mock.Anything, "p1", "ada@example.com").
		Return("", fmt.Errorf("add like: %w: unique constraint violation on likes", social.ErrConflict))
	deps.comments.On("Delete", mock.Anything, "c1").
		Return(fmt.Errorf("delete comment: %w: record not found", social.ErrNotFound))

	rec := doRequest(t, router, http.MethodPost, "/likes", map[string]any{"post_id": "p1", "email": "ada@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "post already liked", decodeError(t, rec).Message)

	rec = doRequest(t, router, http.MethodDelete, "/comment/c1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "comment not found", decodeError(t, rec).Message)
}

func TestInternalErrorsDoNotLeakDetails(t *testing.T) {
	router, deps := createTestRouter(t, true)
	deps.users.On("List", mock.Anything).Return(nil, errors.New("dial tcp 10.0.0.5:27017: refused"))

	rec := doRequest(t, router, http.MethodGet, "/users", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}

func TestRegisterUser(t *testing.T) {
	router, deps := createTestRouter(t, true)
	deps.users.On("Register", mock.Anything, social.NewUser{
		Username: "ada",
		Email:    "ada@example.com",
		Address:  "London",
	}).Return("id-1", nil)

	rec := doRequest(t, router, http.MethodPost, "/users", map[string]any{
		"username": "ada",
		"email":    "ada@example.com",
		"address":  "London",
		"role":     "admin",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp InsertedResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "id-1", resp.InsertedID)
	assert.NotEmpty(t, resp.Message)
}

func TestMalformedBody(t *testing.T) {
	router, _ := createTestRouter(t, true)

	for _, path := range []string{"/users", "/posts", "/comments", "/likes"} {
		rec := doRequest(t, router, http.MethodPost, path, "{not json")
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Equal(t, "BAD_REQUEST", decodeError(t, rec).Code, path)
	}

	rec := doRequest(t, router, http.MethodPost, "/users", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateUserPassesOnlyProvidedFields(t *testing.T) {
	router, deps := createTestRouter(t, true)
	deps.users.On("Update", mock.Anything, "ada@example.com", mock.MatchedBy(func(p social.UserPatch) bool {
		return p.Username != nil && *p.Username == "countess" && p.Address == nil && p.Institute == nil && p.Photo == nil
	})).Return(&entities.User{ID: "id-1", Username: "countess", Email: "ada@example.com", IsUpdated: true}, nil)

	rec := doRequest(t, router, http.MethodPatch, "/user/ada@example.com", map[string]any{"username": "countess"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Message string        `json:"message"`
		Data    entities.User `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "countess", resp.Data.Username)
	assert.True(t, resp.Data.IsUpdated)
}

func TestGetUserByUsernameRoute(t *testing.T) {
	router, deps := createTestRouter(t, true)
	deps.users.On("GetByUsername", mock.Anything, "ada").Return(&entities.User{Username: "ada"}, nil)

	rec := doRequest(t, router, http.MethodGet, "/user/username/ada", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFeedQueryParsing(t *testing.T) {
	testCases := []struct {
		query     string
		wantPage  int
		wantLimit int
	}{
		{"", 1, 10},
		{"?page=2&limit=5", 2, 5},
		{"?page=abc&limit=xyz", 1, 10},
		{"?page=0&limit=-3", 1, 10},
	}

	for _, tc := range testCases {
		t.Run(tc.query, func(t *testing.T) {
			router, deps := createTestRouter(t, true)
			deps.posts.On("Feed", mock.Anything, tc.wantPage, tc.wantLimit).
				Return(&social.Feed{Posts: []entities.Post{}, CurrentPage: tc.wantPage}, nil)

			rec := doRequest(t, router, http.MethodGet, "/posts"+tc.query, nil)
			assert.Equal(t, http.StatusOK, rec.Code)

			var feed map[string]any
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&feed))
			for _, key := range []string{"posts", "totalPages", "currentPage", "totalPosts"} {
				assert.Contains(t, feed, key)
			}
		})
	}
}

func TestPopularRouteIsNotAnEmail(t *testing.T) {
	router, deps := createTestRouter(t, true)
	deps.posts.On("Popular", mock.Anything).Return([]social.PopularPost{
		{Post: entities.Post{ID: "p1", Writings: "hit"}, LikesCount: 5},
	}, nil)

	rec := doRequest(t, router, http.MethodGet, "/posts/popular", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var popular []map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&popular))
	require.Len(t, popular, 1)
	assert.Equal(t, "p1", popular[0]["_id"])
	assert.Equal(t, float64(5), popular[0]["likesCount"])
}

func TestEditPostRequiresWritings(t *testing.T) {
	router, deps := createTestRouter(t, true)

	rec := doRequest(t, router, http.MethodPatch, "/post/p1", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	deps.posts.On("Edit", mock.Anything, "p1", "new").Return(nil, social.ErrNotFound)
	rec = doRequest(t, router, http.MethodPatch, "/post/p1", map[string]any{"writings": "new"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCommentKeyRoutes(t *testing.T) {
	router, deps := createTestRouter(t, true)
	deps.comments.On("ListByPost", mock.Anything, "p1").Return([]entities.Comment{}, nil)
	deps.comments.On("RenameAuthor", mock.Anything, "ada@example.com", "countess").Return(int64(2), nil)

	rec := doRequest(t, router, http.MethodGet, "/comments/p1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))

	rec = doRequest(t, router, http.MethodPatch, "/comments/ada@example.com", map[string]any{"username": "countess"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ModifiedResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, int64(2), resp.ModifiedCount)
}

func TestLikeRoutes(t *testing.T) {
	router, deps := createTestRouter(t, true)
	deps.likes.On("Count", mock.Anything, "p1").Return(int64(3), nil)
	deps.likes.On("Status", mock.Anything, "p1", "ada@example.com").Return(&social.LikeStatus{Liked: false}, nil)
	deps.likes.On("Remove", mock.Anything, "l1").Return(social.ErrNotFound)

	rec := doRequest(t, router, http.MethodGet, "/likes/count/p1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":3}`, rec.Body.String())

	rec = doRequest(t, router, http.MethodGet, "/likes/p1/ada@example.com", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"liked":false}`, rec.Body.String())

	rec = doRequest(t, router, http.MethodDelete, "/like/l1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPanicIsRecovered(t *testing.T) {
	router, deps := createTestRouter(t, true)
	deps.users.On("List", mock.Anything).Run(func(mock.Arguments) { panic("boom") })

	rec := doRequest(t, router, http.MethodGet, "/users", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", decodeError(t, rec).Code)
}

func TestCORSPreflight(t *testing.T) {
	router, _ := createTestRouter(t, true)

	req := httptest.NewRequest(http.MethodOptions, "/users", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
