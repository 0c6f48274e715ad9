package interfaces

import "context"

// Database represents a document store holding named collections
type Database interface {
	// Connect establishes a connection to the store
	Connect(ctx context.Context) error

	// Disconnect closes the connection and releases pooled resources
	Disconnect(ctx context.Context) error

	// IsHealthy checks if the store connection is healthy
	IsHealthy(ctx context.Context) bool

	// Transaction executes fn atomically. Repository calls made inside fn
	// must use the context passed to fn.
	Transaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error

	// Repository returns a repository for the given schema
	Repository(schema *Schema) Repository

	// Migrate creates collections and unique indexes. It is idempotent.
	Migrate(ctx context.Context, schemas []*Schema) error
}
