package entities

import (
	"time"

	"github.com/asocial/asocial-backend/internal/db/interfaces"
)

// Comment belongs to a post through PostID, a plain string reference
type Comment struct {
	ID        string    `json:"_id"`
	PostID    string    `json:"post_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CommentSchema defines the comments collection
var CommentSchema = &interfaces.Schema{
	TableName: "comments",
	Fields: map[string]interfaces.FieldSchema{
		"post_id": {
			Type: "string",
		},
		"username": {
			Type:     "string",
			Nullable: true,
		},
		"email": {
			Type:     "string",
			Nullable: true,
		},
		"comment": {
			Type:     "string",
			Nullable: true,
		},
	},
	Indexes: []interfaces.Index{
		{
			Name:    "idx_comments_post_id",
			Columns: []string{"post_id"},
		},
	},
}
