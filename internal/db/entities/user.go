package entities

import (
	"time"

	"github.com/asocial/asocial-backend/internal/db/interfaces"
)

// User is a registered member. Email is the identity; username is the
// display handle copied onto the user's posts and comments.
type User struct {
	ID        string    `json:"_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Institute string    `json:"institute,omitempty"`
	Address   string    `json:"address,omitempty"`
	Photo     string    `json:"photo,omitempty"`
	IsUpdated bool      `json:"isUpdated,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserSchema defines the users collection
var UserSchema = &interfaces.Schema{
	TableName: "users",
	Fields: map[string]interfaces.FieldSchema{
		"username": {
			Type:   "string",
			Unique: true,
		},
		"email": {
			Type:   "string",
			Unique: true,
		},
		"institute": {
			Type:     "string",
			Nullable: true,
		},
		"address": {
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
}
