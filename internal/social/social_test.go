package social

import (
	"context"
	"fmt"
	"testing"

	"github.com/asocial/asocial-backend/internal/db"
	"github.com/asocial/asocial-backend/internal/db/entities"
	"github.com/asocial/asocial-backend/internal/db/interfaces"
	"github.com/asocial/asocial-backend/internal/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServices(t *testing.T, opts Options) (*Services, interfaces.Database) {
	t.Helper()

	ctx := context.Background()
	store := db.NewInMemoryDatabase(log.Nop())
	require.NoError(t, db.ConnectAndMigrate(ctx, store, db.AllSchemas()))
	t.Cleanup(func() { store.Disconnect(ctx) })

	return NewServices(store, opts, nil, log.Nop()), store
}

func register(t *testing.T, s *Services, username, email string) string {
	t.Helper()
	id, err := s.Users.Register(context.Background(), NewUser{Username: username, Email: email})
	require.NoError(t, err)
	return id
}

func createPost(t *testing.T, s *Services, email, writings string) string {
	t.Helper()
	id, err := s.Posts.Create(context.Background(), NewPost{Username: email, Email: email, Writings: writings})
	require.NoError(t, err)
	return id
}

func TestRegisterAndLookup(t *testing.T) {
	s, _ := newTestServices(t, Options{})
	ctx := context.Background()

	id, err := s.Users.Register(ctx, NewUser{
		Username:  "ada",
		Email:     "ada@example.com",
		Institute: "Analytical Engines",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	byEmail, err := s.Users.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, byEmail.ID)
	assert.Equal(t, "Analytical Engines", byEmail.Institute)
	assert.False(t, byEmail.CreatedAt.IsZero())

	byName, err := s.Users.GetByUsername(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, id, byName.ID)

	_, err = s.Users.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Users.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	s, _ := newTestServices(t, Options{})
	ctx := context.Background()
	register(t, s, "ada", "ada@example.com")

	_, err := s.Users.Register(ctx, NewUser{Username: "other", Email: "ada@example.com"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = s.Users.Register(ctx, NewUser{Username: "ada", Email: "other@example.com"})
	assert.ErrorIs(t, err, ErrConflict)

	users, err := s.Users.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "ada", users[0].Username)
}

func TestRegisterRequiresIdentity(t *testing.T) {
	s, _ := newTestServices(t, Options{})
	ctx := context.Background()

	_, err := s.Users.Register(ctx, NewUser{Username: "ada"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = s.Users.Register(ctx, NewUser{Email: "ada@example.com"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestListUsersInRegistrationOrder(t *testing.T) {
	s, _ := newTestServices(t, Options{})
	for i := 0; i < 5; i++ {
		register(t, s, fmt.Sprintf("user%d", i), fmt.Sprintf("user%d@example.com", i))
	}

	users, err := s.Users.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 5)
	for i, u := range users {
		assert.Equal(t, fmt.Sprintf("user%d", i), u.Username)
	}
}

func TestUpdateUser(t *testing.T) {
	s, _ := newTestServices(t, Options{})
	ctx := context.Background()
	register(t, s, "ada", "ada@example.com")

	address := "Marylebone"
	updated, err := s.Users.Update(ctx, "ada@example.com", UserPatch{Address: &address})
	require.NoError(t, err)
	assert.Equal(t, "Marylebone", updated.Address)
	assert.Equal(t, "ada", updated.Username)
	assert.True(t, updated.IsUpdated)

	_, err = s.Users.Update(ctx, "nobody@example.com", UserPatch{Address: &address})
	assert.ErrorIs(t, err, ErrNotFound)

	users, err := s.Users.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1, "update must not create users")
}

func TestUpdateUsernameConflict(t *testing.T) {
	s, _ := newTestServices(t, Options{})
	ctx := context.Background()
	register(t, s, "ada", "ada@example.com")
	register(t, s, "grace", "grace@example.com")

	taken := "grace"
	_, err := s.Users.Update(ctx, "ada@example.com", UserPatch{Username: &taken})
	assert.ErrorIs(t, err, ErrConflict)

	ada, err := s.Users.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ada", ada.Username)

	own := "ada"
	_, err = s.Users.Update(ctx, "ada@example.com", UserPatch{Username: &own})
	assert.NoError(t, err)

	empty := " "
	_, err = s.Users.Update(ctx, "ada@example.com", UserPatch{Username: &empty})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateUsernamePropagates(t *testing.T) {
	s, _ := newTestServices(t, Options{})
	ctx := context.Background()
	register(t, s, "ada", "ada@example.com")
	register(t, s, "grace", "grace@example.com")

	postID := createPost(t, s, "ada@example.com", "hello")
	otherPost := createPost(t, s, "grace@example.com", "hi")
	_, err := s.Comments.Create(ctx, NewComment{PostID: otherPost, Username: "ada", Email: "ada@example.com", Comment: "nice"})
	require.NoError(t, err)
	_, err = s.Comments.Create(ctx, NewComment{PostID: postID, Username: "grace", Email: "grace@example.com", Comment: "thanks"})
	require.NoError(t, err)

	renamed := "countess"
	_, err = s.Users.Update(ctx, "ada@example.com", UserPatch{Username: &renamed})
	require.NoError(t, err)

	posts, err := s.Posts.ListByAuthor(ctx, "ada@example.com")
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "countess", posts[0].Username)

	grace, err := s.Posts.ListByAuthor(ctx, "grace@example.com")
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", grace[0].Username)

	comments, err := s.Comments.ListByPost(ctx, otherPost)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "countess", comments[0].Username)

	comments, err = s.Comments.ListByPost(ctx, postID)
	require.NoError(t, err)
	assert.Equal(t, "grace", comments[0].Username)
}

func TestEditPost(t *testing.T) {
	s, _ := newTestServices(t, Options{})
	ctx := context.Background()
	id := createPost(t, s, "ada@example.com", "draft")

	post, err := s.Posts.Edit(ctx, id, "final")
	require.NoError(t, err)
	assert.Equal(t, "final", post.Writings)
	assert.True(t, post.IsUpdated)
	assert.False(t, post.UpdatedAt.Before(post.CreatedAt))

	_, err = s.Posts.Edit(ctx, "missing", "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	feed, err := s.Posts.Feed(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), feed.TotalPosts, "edit must not create posts")
}

func TestListByAuthorNewestFirst(t *testing.T) {
	s, _ := newTestServices(t, Options{})
	ctx := context.Background()
	createPost(t, s, "ada@example.com", "first")
	createPost(t, s, "grace@example.com", "other")
	createPost(t, s, "ada@example.com", "second")

	posts, err := s.Posts.ListByAuthor(ctx, "ada@example.com")
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "second", posts[0].Writings)
	assert.Equal(t, "first", posts[1].Writings)

	posts, err = s.Posts.ListByAuthor(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestFeedPagination(t *testing.T) {
	s, _ := newTestServices(t, Options{})
	ctx := context.Background()
	for i := 0; i < 25; i++ {
		createPost(t, s, "ada@example.com", fmt.Sprintf("post %d", i))
	}

	first, err := s.Posts.Feed(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, first.TotalPages)
	assert.Equal(t, 1, first.CurrentPage)
	assert.Equal(t, int64(25), first.TotalPosts)
	require.Len(t, first.Posts, 10)
	assert.Equal(t, "post 24", first.Posts[0].Writings)

	last, err := s.Posts.Feed(ctx, 3, 10)
	require.NoError(t, err)
	require.Len(t, last.Posts, 5)
	assert.Equal(t, "post 0", last.Posts[4].Writings)

	beyond, err := s.Posts.Feed(ctx, 4, 10)
	require.NoError(t, err)
	assert.Empty(t, beyond.Posts)
	assert.Equal(t, 4, beyond.CurrentPage)
}

func TestFeedPagesDoNotOverlap(t *testing.T) {
	s, _ := newTestServices(t, Options{})
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		createPost(t, s, "ada@example.com", fmt.Sprintf("post %d", i))
	}

	seen := map[string]bool{}
	for page := 1; page <= 3; page++ {
		feed, err := s.Posts.Feed(ctx, page, 3)
		require.NoError(t, err)
		for _, p := range feed.Posts {
			assert.False(t, seen[p.ID], "post %s on two pages", p.ID)
			seen[p.ID] = true
		}
	}
	assert.Len(t, seen, 7)
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		page, limit         int
		wantPage, wantLimit int
	}{
		{0, 0, 1, 10},
		{-2, -1, 1, 10},
		{3, 25, 3, 25},
		{1, 1000, 1, MaxPageSize},
	}
	for _, tt := range tests {
		page, limit := NormalizePage(tt.page, tt.limit)
		assert.Equal(t, tt.wantPage, page)
		assert.Equal(t, tt.wantLimit, limit)
	}
}

func TestPopular(t *testing.T) {
	s, _ := newTestServices(t, Options{})
	ctx := context.Background()

	counts := []int{5, 1, 3, 0}
	ids := make([]string, len(counts))
	for i, n := range counts {
		ids[i] = createPost(t, s, "ada@example.com", fmt.Sprintf("post %d", i))
		for j := 0; j < n; j++ {
			_, err := s.Likes.Add(ctx, ids[i], fmt.Sprintf("fan%d@example.com", j))
			require.NoError(t, err)
		}
	}

	popular, err := s.Posts.Popular(ctx)
	require.NoError(t, err)
	require.Len(t, popular, 3)
	assert.Equal(t, ids[0], popular[0].ID)
	assert.Equal(t, int64(5), popular[0].LikesCount)
	assert.Equal(t, ids[2], popular[1].ID)
	assert.Equal(t, int64(3), popular[1].LikesCount)
	assert.Equal(t, ids[1], popular[2].ID)
	assert.Equal(t, int64(1), popular[2].LikesCount)
}

func TestPopularSkipsOrphanedLikes(t *testing.T) {
	s, _ := newTestServices(t, Options{PostDeleteCascade: false})
	ctx := context.Background()

	gone := createPost(t, s, "ada@example.com", "gone")
	kept := createPost(t, s, "ada@example.com", "kept")
	for j := 0; j < 4; j++ {
		_, err := s.Likes.Add(ctx, gone, fmt.Sprintf("fan%d@example.com", j))
		require.NoError(t, err)
	}
	_, err := s.Likes.Add(ctx, kept, "fan@example.com")
	require.NoError(t, err)
	require.NoError(t, s.Posts.Delete(ctx, gone))

	popular, err := s.Posts.Popular(ctx)
	require.NoError(t, err)
	require.Len(t, popular, 1)
	assert.Equal(t, kept, popular[0].ID)
}

func TestPopularEmpty(t *testing.T) {
	s, _ := newTestServices(t, Options{})
	createPost(t, s, "ada@example.com", "lonely")

	popular, err := s.Posts.Popular(context.Background())
	require.NoError(t, err)
	assert.Empty(t, popular)
}

func seedPostActivity(t *testing.T, s *Services) string {
	t.Helper()
	ctx := context.Background()

	id := createPost(t, s, "ada@example.com", "busy")
	_, err := s.Comments.Create(ctx, NewComment{PostID: id, Username: "grace", Email: "grace@example.com", Comment: "hi"})
	require.NoError(t, err)
	_, err = s.Likes.Add(ctx, id, "grace@example.com")
	require.NoError(t, err)
	return id
}

func TestDeletePostCascades(t *testing.T) {
	s, _ := newTestServices(t, Options{PostDeleteCascade: true})
	ctx := context.Background()
	id := seedPostActivity(t, s)

	require.NoError(t, s.Posts.Delete(ctx, id))

	comments, err := s.Comments.ListByPost(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, comments)
	count, err := s.Likes.Count(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, count)

	assert.ErrorIs(t, s.Posts.Delete(ctx, id), ErrNotFound)
}

func TestDeletePostWithoutCascadeLeavesOrphans(t *testing.T) {
	s, _ := newTestServices(t, Options{PostDeleteCascade: false})
	ctx := context.Background()
	id := seedPostActivity(t, s)

	require.NoError(t, s.Posts.Delete(ctx, id))

	comments, err := s.Comments.ListByPost(ctx, id)
	require.NoError(t, err)
	assert.Len(t, comments, 1)
	count, err := s.Likes.Count(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestDeleteUnknownPostKeepsComments(t *testing.T) {
	s, store := newTestServices(t, Options{PostDeleteCascade: true})
	ctx := context.Background()
	id := seedPostActivity(t, s)

	// comments referencing an ID that was never a post
	_, err := s.Comments.Create(ctx, NewComment{PostID: "missing", Comment: "stray"})
	require.NoError(t, err)

	assert.ErrorIs(t, s.Posts.Delete(ctx, "missing"), ErrNotFound)

	n, err := store.Repository(entities.CommentSchema).Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	comments, err := s.Comments.ListByPost(ctx, id)
	require.NoError(t, err)
	assert.Len(t, comments, 1)
}

func TestRenameAuthorTouchesOnlyTarget(t *testing.T) {
	s, _ := newTestServices(t, Options{})
	ctx := context.Background()
	createPost(t, s, "ada@example.com", "a1")
	createPost(t, s, "ada@example.com", "a2")
	createPost(t, s, "grace@example.com", "g1")

	n, err := s.Posts.RenameAuthor(ctx, "ada@example.com", "countess")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = s.Posts.RenameAuthor(ctx, "ada@example.com", "countess")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n, "rename is idempotent")

	grace, err := s.Posts.ListByAuthor(ctx, "grace@example.com")
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", grace[0].Username)

	_, err = s.Posts.RenameAuthor(ctx, "ada@example.com", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestComments(t *testing.T) {
	s, _ := newTestServices(t, Options{})
	ctx := context.Background()
	postID := createPost(t, s, "ada@example.com", "post")

	first, err := s.Comments.Create(ctx, NewComment{PostID: postID, Username: "grace", Email: "grace@example.com", Comment: "one"})
	require.NoError(t, err)
	_, err = s.Comments.Create(ctx, NewComment{PostID: postID, Username: "alan", Email: "alan@example.com", Comment: "two"})
	require.NoError(t, err)

	_, err = s.Comments.Create(ctx, NewComment{Comment: "no post"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	comments, err := s.Comments.ListByPost(ctx, postID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "one", comments[0].Comment)
	assert.Equal(t, "two", comments[1].Comment)

	edited, err := s.Comments.Edit(ctx, first, "uno")
	require.NoError(t, err)
	assert.Equal(t, "uno", edited.Comment)
	assert.Equal(t, postID, edited.PostID)

	_, err = s.Comments.Edit(ctx, "missing", "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Comments.Delete(ctx, first))
	assert.ErrorIs(t, s.Comments.Delete(ctx, first), ErrNotFound)

	n, err := s.Comments.RenameAuthor(ctx, "alan@example.com", "turing")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	comments, err = s.Comments.ListByPost(ctx, postID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "turing", comments[0].Username)
}

func TestLikes(t *testing.T) {
	s, _ := newTestServices(t, Options{})
	ctx := context.Background()
	postID := createPost(t, s, "ada@example.com", "post")

	status, err := s.Likes.Status(ctx, postID, "grace@example.com")
	require.NoError(t, err)
	assert.Equal(t, &LikeStatus{Liked: false}, status)

	likeID, err := s.Likes.Add(ctx, postID, "grace@example.com")
	require.NoError(t, err)

	_, err = s.Likes.Add(ctx, postID, "grace@example.com")
	assert.ErrorIs(t, err, ErrConflict)

	count, err := s.Likes.Count(ctx, postID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	status, err = s.Likes.Status(ctx, postID, "grace@example.com")
	require.NoError(t, err)
	assert.Equal(t, &LikeStatus{Liked: true, ID: likeID}, status)

	require.NoError(t, s.Likes.Remove(ctx, likeID))
	assert.ErrorIs(t, s.Likes.Remove(ctx, likeID), ErrNotFound)

	status, err = s.Likes.Status(ctx, postID, "grace@example.com")
	require.NoError(t, err)
	assert.False(t, status.Liked)

	_, err = s.Likes.Add(ctx, "", "grace@example.com")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
