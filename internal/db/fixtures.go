package db

import (
	"context"
	"fmt"

	"github.com/asocial/asocial-backend/internal/db/entities"
	"github.com/asocial/asocial-backend/internal/db/interfaces"
)

// UserFixtures provides sample users for seeding, keyed by email
var UserFixtures = []map[string]interface{}{
	{
		"email":     "ada@example.com",
		"username":  "ada",
		"institute": "Analytical Engines",
		"address":   "London",
	},
	{
		"email":     "grace@example.com",
		"username":  "grace",
		"institute": "Harvard Computation Lab",
		"address":   "Arlington",
	},
	{
		"email":    "alan@example.com",
		"username": "alan",
		// institute and address omitted
	},
}

// PostFixtures provides sample posts for the fixture users, keyed by email
// and writings
var PostFixtures = []map[string]interface{}{
	{
		"email":    "ada@example.com",
		"username": "ada",
		"writings": "Notes on the analytical engine",
	},
	{
		"email":    "grace@example.com",
		"username": "grace",
		"writings": "Found a moth in the relay today",
	},
	{
		"email":    "ada@example.com",
		"username": "ada",
		"writings": "The engine weaves algebraic patterns",
		"photo":    "https://example.com/loom.png",
	},
}

// AllSchemas returns all entity schemas for migration
func AllSchemas() []*interfaces.Schema {
	return []*interfaces.Schema{
		entities.UserSchema,
		entities.PostSchema,
		entities.CommentSchema,
		entities.LikeSchema,
	}
}

// Seed upserts the fixtures. Running it twice leaves one copy of each.
func Seed(ctx context.Context, database interfaces.Database) error {
	users := database.Repository(entities.UserSchema)
	for _, user := range UserFixtures {
		key := map[string]interface{}{"email": user["email"]}
		if _, err := users.Upsert(ctx, key, without(user, "email")); err != nil {
			return fmt.Errorf("seed user %v: %w", user["email"], err)
		}
	}

	posts := database.Repository(entities.PostSchema)
	for _, post := range PostFixtures {
		key := map[string]interface{}{"email": post["email"], "writings": post["writings"]}
		if _, err := posts.Upsert(ctx, key, without(post, "email", "writings")); err != nil {
			return fmt.Errorf("seed post %v: %w", post["writings"], err)
		}
	}

	return nil
}

func without(data map[string]interface{}, keys ...string) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}
