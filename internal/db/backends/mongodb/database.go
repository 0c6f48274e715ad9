// Package mongodb implements the document store interfaces on MongoDB.
package mongodb

import (
	"context"
	"fmt"
	"sync"

	"github.com/asocial/asocial-backend/internal/db/interfaces"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.uber.org/zap"
)

// Database implements the Database interface on a MongoDB deployment
type Database struct {
	mu     sync.RWMutex
	uri    string
	name   string
	client *mongo.Client
	db     *mongo.Database

	// transactions is false on a standalone server
	transactions bool

	logger *zap.SugaredLogger
}

// NewDatabase creates a MongoDB-backed database. Connect must be called
// before use.
func NewDatabase(uri, name string, logger *zap.SugaredLogger) *Database {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Database{
		uri:    uri,
		name:   name,
		logger: logger,
	}
}

// Connect opens the client pool and verifies the primary is reachable
func (d *Database) Connect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	opts := options.Client().
		ApplyURI(d.uri).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))

	client, err := mongo.Connect(opts)
	if err != nil {
		return &interfaces.DatabaseError{Op: "mongo connect", Err: err}
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return &interfaces.DatabaseError{Op: "mongo ping", Err: err}
	}

	var hello bson.M
	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello); err != nil {
		_ = client.Disconnect(ctx)
		return &interfaces.DatabaseError{Op: "mongo hello", Err: err}
	}

	d.client = client
	d.db = client.Database(d.name)
	d.transactions = supportsTransactions(hello)
	if !d.transactions {
		d.logger.Warnw("MongoDB deployment is standalone, transactions run without atomicity", "database", d.name)
	}
	d.logger.Infow("Connected to MongoDB", "database", d.name, "transactions", d.transactions)
	return nil
}

// supportsTransactions reports whether a hello reply comes from a replica
// set member or a mongos router
func supportsTransactions(hello bson.M) bool {
	if _, ok := hello["logicalSessionTimeoutMinutes"]; !ok {
		return false
	}
	if setName, ok := hello["setName"].(string); ok && setName != "" {
		return true
	}
	msg, _ := hello["msg"].(string)
	return msg == "isdbgrid"
}

// Disconnect closes the client pool
func (d *Database) Disconnect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.client == nil {
		return nil
	}
	err := d.client.Disconnect(ctx)
	d.client = nil
	d.db = nil
	if err != nil {
		return &interfaces.DatabaseError{Op: "mongo disconnect", Err: err}
	}
	d.logger.Infow("Disconnected from MongoDB")
	return nil
}

// IsHealthy pings the primary
func (d *Database) IsHealthy(ctx context.Context) bool {
	client := d.currentClient()
	if client == nil {
		return false
	}
	return client.Ping(ctx, readpref.Primary()) == nil
}

// Transaction runs fn inside a multi-document transaction on a replica set or
// sharded cluster. On a standalone server fn runs directly and its writes are
// kept even when it fails.
func (d *Database) Transaction(ctx context.Context, fn func(ctx context.Context, tx interfaces.Transaction) error) error {
	client := d.currentClient()
	if client == nil {
		return interfaces.ErrDatabaseNotConnected
	}

	d.mu.RLock()
	transactions := d.transactions
	d.mu.RUnlock()
	if !transactions {
		return runDirect(ctx, fn)
	}

	session, err := client.StartSession()
	if err != nil {
		return &interfaces.DatabaseError{Op: "mongo start session", Err: err}
	}
	defer session.EndSession(ctx)

	if err := session.StartTransaction(); err != nil {
		return &interfaces.DatabaseError{Op: "mongo start transaction", Err: err}
	}

	sessCtx := mongo.NewSessionContext(ctx, session)
	tx := &Transaction{session: session}

	if err := fn(sessCtx, tx); err != nil {
		if !tx.IsCompleted() {
			if rbErr := tx.Rollback(sessCtx); rbErr != nil {
				d.logger.Warnw("Transaction rollback failed", "error", rbErr)
			}
		}
		return err
	}

	if tx.IsCompleted() {
		return nil
	}
	return tx.Commit(sessCtx)
}

// Repository returns a repository for the given schema
func (d *Database) Repository(schema *interfaces.Schema) interfaces.Repository {
	d.mu.RLock()
	db := d.db
	d.mu.RUnlock()

	return NewRepository(db, schema)
}

// Migrate creates missing collections and their unique indexes
func (d *Database) Migrate(ctx context.Context, schemas []*interfaces.Schema) error {
	d.mu.RLock()
	db := d.db
	d.mu.RUnlock()
	if db == nil {
		return interfaces.ErrDatabaseNotConnected
	}

	existing, err := db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return &interfaces.DatabaseError{Op: "mongo list collections", Err: err}
	}
	have := make(map[string]bool, len(existing))
	for _, name := range existing {
		have[name] = true
	}

	for _, schema := range schemas {
		if !have[schema.TableName] {
			if err := db.CreateCollection(ctx, schema.TableName); err != nil {
				return &interfaces.DatabaseError{Op: "mongo create collection " + schema.TableName, Err: err}
			}
			d.logger.Infow("Created collection", "collection", schema.TableName)
		}

		models := indexModels(schema)
		if len(models) == 0 {
			continue
		}
		if _, err := db.Collection(schema.TableName).Indexes().CreateMany(ctx, models); err != nil {
			return &interfaces.DatabaseError{Op: "mongo create indexes " + schema.TableName, Err: err}
		}
	}

	d.logger.Infow("Migration completed", "schemas", len(schemas))
	return nil
}

func (d *Database) currentClient() *mongo.Client {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.client
}

func indexModels(schema *interfaces.Schema) []mongo.IndexModel {
	var models []mongo.IndexModel
	for fieldName, field := range schema.Fields {
		if !field.Unique || fieldName == interfaces.FieldID {
			continue
		}
		models = append(models, mongo.IndexModel{
			Keys:    bson.D{{Key: fieldName, Value: 1}},
			Options: options.Index().SetUnique(true).SetName(fmt.Sprintf("uniq_%s_%s", schema.TableName, fieldName)),
		})
	}
	for _, index := range schema.Indexes {
		keys := bson.D{}
		for _, column := range index.Columns {
			keys = append(keys, bson.E{Key: column, Value: 1})
		}
		models = append(models, mongo.IndexModel{
			Keys:    keys,
			Options: options.Index().SetUnique(index.Unique).SetName(index.Name),
		})
	}
	return models
}

// runDirect runs fn without a session. Commit and Rollback only mark the
// transaction completed.
func runDirect(ctx context.Context, fn func(ctx context.Context, tx interfaces.Transaction) error) error {
	tx := &Transaction{}
	if err := fn(ctx, tx); err != nil {
		tx.markCompleted()
		return err
	}
	if tx.IsCompleted() {
		return nil
	}
	return tx.Commit(ctx)
}

// Transaction wraps a MongoDB session transaction. A nil session means the
// deployment cannot run transactions.
type Transaction struct {
	mu        sync.Mutex
	session   *mongo.Session
	completed bool
}

// Commit commits the transaction
func (tx *Transaction) Commit(ctx context.Context) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.completed {
		return interfaces.ErrTransactionCompleted
	}
	tx.completed = true
	if tx.session == nil {
		return nil
	}
	if err := tx.session.CommitTransaction(ctx); err != nil {
		return &interfaces.DatabaseError{Op: "mongo commit", Err: err}
	}
	return nil
}

// Rollback aborts the transaction
func (tx *Transaction) Rollback(ctx context.Context) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.completed {
		return interfaces.ErrTransactionCompleted
	}
	tx.completed = true
	if tx.session == nil {
		return nil
	}
	if err := tx.session.AbortTransaction(ctx); err != nil {
		return &interfaces.DatabaseError{Op: "mongo abort", Err: err}
	}
	return nil
}

func (tx *Transaction) markCompleted() {
	tx.mu.Lock()
	tx.completed = true
	tx.mu.Unlock()
}

// IsCompleted returns true if the transaction has been committed or rolled back
func (tx *Transaction) IsCompleted() bool {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.completed
}
