package memory

import (
	"context"
	"sync"

	"github.com/asocial/asocial-backend/internal/db/interfaces"
	"go.uber.org/zap"
)

// Database implements the Database interface for in-memory storage
type Database struct {
	mu        sync.RWMutex
	tables    map[string]map[string]map[string]interface{} // tableName -> recordID -> record
	schemas   map[string]*interfaces.Schema                // tableName -> schema
	connected bool

	// txMu is held exclusively by a running transaction and shared by
	// every repository call made outside of one
	txMu sync.RWMutex

	logger *zap.SugaredLogger
}

// NewDatabase creates a new in-memory database
func NewDatabase(logger *zap.SugaredLogger) *Database {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Database{
		tables:  make(map[string]map[string]map[string]interface{}),
		schemas: make(map[string]*interfaces.Schema),
		logger:  logger,
	}
}

// Connect establishes a connection to the database
func (db *Database) Connect(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.connected = true
	db.logger.Infow("Connected to in-memory database")
	return nil
}

// Disconnect closes the database connection and drops all data
func (db *Database) Disconnect(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.connected = false
	db.tables = make(map[string]map[string]map[string]interface{})
	db.schemas = make(map[string]*interfaces.Schema)
	db.logger.Infow("Disconnected from in-memory database")
	return nil
}

// IsHealthy checks if the database connection is healthy
func (db *Database) IsHealthy(ctx context.Context) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.connected
}

// txKey marks a context as running inside a transaction of this package
type txKey struct{}

// gate blocks while another transaction runs. Calls carrying the running
// transaction's context pass straight through. The returned func releases.
func (db *Database) gate(ctx context.Context) func() {
	if tx, ok := ctx.Value(txKey{}).(*Transaction); ok && tx.db == db {
		return func() {}
	}
	db.txMu.RLock()
	return db.txMu.RUnlock
}

// Transaction executes fn with exclusive access to the store and restores
// the snapshot taken at its start if fn fails. Repository calls inside fn
// must use the context passed to fn. A nested call joins the running
// transaction.
func (db *Database) Transaction(ctx context.Context, fn func(ctx context.Context, tx interfaces.Transaction) error) error {
	if !db.IsHealthy(ctx) {
		return interfaces.ErrDatabaseNotConnected
	}

	if tx, ok := ctx.Value(txKey{}).(*Transaction); ok && tx.db == db {
		return fn(ctx, tx)
	}

	db.txMu.Lock()
	defer db.txMu.Unlock()

	tx := NewTransaction(db)
	ctx = context.WithValue(ctx, txKey{}, tx)

	defer func() {
		if !tx.IsCompleted() {
			tx.Rollback(ctx)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if !tx.IsCompleted() {
			tx.Rollback(ctx)
		}
		return err
	}

	if tx.IsCompleted() {
		return nil
	}
	return tx.Commit(ctx)
}

// Repository returns a repository for the given schema
func (db *Database) Repository(schema *interfaces.Schema) interfaces.Repository {
	db.mu.Lock()
	db.schemas[schema.TableName] = schema
	db.mu.Unlock()

	return NewRepository(db, schema)
}

// Migrate creates tables. Unique indexes are enforced from the schema on write.
func (db *Database) Migrate(ctx context.Context, schemas []*interfaces.Schema) error {
	if !db.IsHealthy(ctx) {
		return interfaces.ErrDatabaseNotConnected
	}

	defer db.gate(ctx)()

	db.mu.Lock()
	defer db.mu.Unlock()

	for _, schema := range schemas {
		db.schemas[schema.TableName] = schema

		if _, exists := db.tables[schema.TableName]; !exists {
			db.tables[schema.TableName] = make(map[string]map[string]interface{})
			db.logger.Debugw("Created in-memory table", "table", schema.TableName)
		}
	}

	db.logger.Infow("Migration completed", "schemas", len(schemas))
	return nil
}
