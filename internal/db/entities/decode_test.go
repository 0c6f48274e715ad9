package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeUser(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	record := map[string]interface{}{
		"_id":       "0190a3c2-7d1e-7c4e-9a5b-3f2d1e0c9b8a",
		"username":  "ada",
		"email":     "ada@example.com",
		"institute": "Analytical Engines",
		"photo":     nil,
		"isUpdated": true,
		"createdAt": created,
		"updatedAt": created.Format(time.RFC3339Nano),
	}

	user, err := Decode[User](record)
	require.NoError(t, err)
	assert.Equal(t, "0190a3c2-7d1e-7c4e-9a5b-3f2d1e0c9b8a", user.ID)
	assert.Equal(t, "ada", user.Username)
	assert.Equal(t, "Analytical Engines", user.Institute)
	assert.Empty(t, user.Photo)
	assert.True(t, user.IsUpdated)
	assert.True(t, created.Equal(user.CreatedAt))
	assert.True(t, created.Equal(user.UpdatedAt))
}

func TestDecodeAllLikes(t *testing.T) {
	records := []map[string]interface{}{
		{"_id": "1", "post_id": "p1", "email": "a@example.com"},
		{"_id": "2", "post_id": "p1", "email": "b@example.com"},
	}

	likes, err := DecodeAll[Like](records)
	require.NoError(t, err)
	require.Len(t, likes, 2)
	assert.Equal(t, "p1", likes[1].PostID)
	assert.Equal(t, "b@example.com", likes[1].Email)
}

func TestDecodeAllEmpty(t *testing.T) {
	posts, err := DecodeAll[Post](nil)
	require.NoError(t, err)
	assert.NotNil(t, posts)
	assert.Empty(t, posts)
}

func TestDecodeRejectsMismatchedTypes(t *testing.T) {
	_, err := Decode[Comment](map[string]interface{}{"comment": []string{"a", "b"}})
	assert.Error(t, err)
}
