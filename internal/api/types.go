package api

// Request bodies. Fields outside these shapes are ignored.

type RegisterUserRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Institute string `json:"institute"`
	Address   string `json:"address"`
	Photo     string `json:"photo"`
}

// UpdateUserRequest carries only the profile fields being changed
type UpdateUserRequest struct {
	Username  *string `json:"username"`
	Institute *string `json:"institute"`
	Address   *string `json:"address"`
	Photo     *string `json:"photo"`
}

type CreatePostRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Writings string `json:"writings"`
	Photo    string `json:"photo"`
}

type EditPostRequest struct {
	Writings *string `json:"writings"`
}

// RenameAuthorRequest is the body of the bulk rename endpoints
type RenameAuthorRequest struct {
	Username string `json:"username"`
}

type CreateCommentRequest struct {
	PostID   string `json:"post_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Comment  string `json:"comment"`
}

type EditCommentRequest struct {
	Comment *string `json:"comment"`
}

type AddLikeRequest struct {
	PostID string `json:"post_id"`
	Email  string `json:"email"`
}

// Responses

type InsertedResponse struct {
	Message    string `json:"message"`
	InsertedID string `json:"insertedId"`
}

type UpdatedResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ModifiedResponse struct {
	Message       string `json:"message"`
	ModifiedCount int64  `json:"modifiedCount"`
}

type CountResponse struct {
	Count int64 `json:"count"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
