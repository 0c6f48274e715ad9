package entities

import (
	"time"

	"github.com/asocial/asocial-backend/internal/db/interfaces"
)

// Like records that Email liked the post PostID
type Like struct {
	ID        string    `json:"_id"`
	PostID    string    `json:"post_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LikeSchema defines the likes collection. A user likes a post at most once.
var LikeSchema = &interfaces.Schema{
	TableName: "likes",
	Fields: map[string]interfaces.FieldSchema{
		"post_id": {
			Type: "string",
		},
		"email": {
			Type: "string",
		},
	},
	Indexes: []interfaces.Index{
		{
			Name:    "uniq_likes_post_email",
			Columns: []string{"post_id", "email"},
			Unique:  true,
		},
	},
}
