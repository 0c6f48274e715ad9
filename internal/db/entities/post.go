package entities

import (
	"time"

	"github.com/asocial/asocial-backend/internal/db/interfaces"
)

// Post is a text and/or photo post. Author fields are denormalized.
type Post struct {
	ID        string    `json:"_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Writings  string    `json:"writings"`
	Photo     string    `json:"photo,omitempty"`
	IsUpdated bool      `json:"isUpdated,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PostSchema defines the posts collection
var PostSchema = &interfaces.Schema{
	TableName: "posts",
	Fields: map[string]interfaces.FieldSchema{
		"email": {
			Type: "string",
		},
		"username": {
			Type:     "string",
			Nullable: true,
		},
		"writings": {
			Type:     "string",
			Nullable: true,
		},
		"photo": {
			Type:     "string",
			Nullable: true,
		},
		"isUpdated": {
			Type:     "bool",
			Nullable: true,
		},
	},
	Indexes: []interfaces.Index{
		{
			Name:    "idx_posts_email",
			Columns: []string{"email"},
		},
	},
}
