// Package postgres implements the document store interfaces on PostgreSQL,
// keeping each record as a JSONB document next to its system columns.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/asocial/asocial-backend/internal/db/interfaces"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsDir = "migrations"

// querier is satisfied by both *pgxpool.Pool and pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type txKey struct{}

// Database implements the Database interface on a pgx connection pool
type Database struct {
	mu   sync.RWMutex
	dsn  string
	pool *pgxpool.Pool

	logger *zap.SugaredLogger
}

// NewDatabase creates a PostgreSQL-backed database. Connect must be called
// before use.
func NewDatabase(dsn string, logger *zap.SugaredLogger) *Database {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Database{
		dsn:    dsn,
		logger: logger,
	}
}

// Connect opens the pool and verifies the server is reachable
func (d *Database) Connect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	cfg, err := pgxpool.ParseConfig(d.dsn)
	if err != nil {
		return &interfaces.DatabaseError{Op: "parse postgres dsn", Err: err}
	}
	cfg.MaxConns = 20
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement
	cfg.ConnConfig.StatementCacheCapacity = 256

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return &interfaces.DatabaseError{Op: "postgres connect", Err: err}
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return &interfaces.DatabaseError{Op: "postgres ping", Err: err}
	}

	d.pool = pool
	d.logger.Infow("Connected to PostgreSQL", "database", cfg.ConnConfig.Database)
	return nil
}

// Disconnect closes the pool
func (d *Database) Disconnect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pool == nil {
		return nil
	}
	d.pool.Close()
	d.pool = nil
	d.logger.Infow("Disconnected from PostgreSQL")
	return nil
}

// IsHealthy pings the server
func (d *Database) IsHealthy(ctx context.Context) bool {
	pool := d.currentPool()
	if pool == nil {
		return false
	}
	return pool.Ping(ctx) == nil
}

// Transaction runs fn inside a database transaction. Repositories called with
// the context passed to fn join the transaction.
func (d *Database) Transaction(ctx context.Context, fn func(ctx context.Context, tx interfaces.Transaction) error) error {
	pool := d.currentPool()
	if pool == nil {
		return interfaces.ErrDatabaseNotConnected
	}

	pgTx, err := pool.Begin(ctx)
	if err != nil {
		return &interfaces.DatabaseError{Op: "postgres begin", Err: err}
	}

	tx := &Transaction{tx: pgTx}
	txCtx := context.WithValue(ctx, txKey{}, pgTx)

	if err := fn(txCtx, tx); err != nil {
		if !tx.IsCompleted() {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				d.logger.Warnw("Transaction rollback failed", "error", rbErr)
			}
		}
		return err
	}

	if tx.IsCompleted() {
		return nil
	}
	return tx.Commit(ctx)
}

// Repository returns a repository for the given schema
func (d *Database) Repository(schema *interfaces.Schema) interfaces.Repository {
	return NewRepository(d, schema)
}

// Migrate applies the embedded versioned migrations, then creates any table
// or index a schema declares that the migrations do not cover
func (d *Database) Migrate(ctx context.Context, schemas []*interfaces.Schema) error {
	pool := d.currentPool()
	if pool == nil {
		return interfaces.ErrDatabaseNotConnected
	}

	if err := d.MigrateVersioned(ctx, "up"); err != nil {
		return err
	}

	for _, schema := range schemas {
		for _, stmt := range schemaDDL(schema) {
			if _, err := pool.Exec(ctx, stmt); err != nil {
				return &interfaces.DatabaseError{Op: "postgres migrate " + schema.TableName, Err: err}
			}
		}
	}

	d.logger.Infow("Migration completed", "schemas", len(schemas))
	return nil
}

// MigrateVersioned runs a goose command (up, down, status) against the
// embedded migrations
func (d *Database) MigrateVersioned(ctx context.Context, command string) error {
	pool := d.currentPool()
	if pool == nil {
		return interfaces.ErrDatabaseNotConnected
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()

	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{d.logger})
	if err := goose.SetDialect("postgres"); err != nil {
		return &interfaces.DatabaseError{Op: "goose dialect", Err: err}
	}

	var err error
	switch command {
	case "up":
		err = goose.UpContext(ctx, sqlDB, migrationsDir)
	case "down":
		err = goose.DownContext(ctx, sqlDB, migrationsDir)
	case "status":
		err = goose.StatusContext(ctx, sqlDB, migrationsDir)
	default:
		return fmt.Errorf("unknown migration command %q", command)
	}
	if err != nil {
		return &interfaces.DatabaseError{Op: "goose " + command, Err: err}
	}
	return nil
}

func (d *Database) currentPool() *pgxpool.Pool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.pool
}

// querier returns the transaction bound to ctx, or the pool
func (d *Database) querier(ctx context.Context) (querier, error) {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx, nil
	}
	pool := d.currentPool()
	if pool == nil {
		return nil, interfaces.ErrDatabaseNotConnected
	}
	return pool, nil
}

// inTx runs fn in the transaction bound to ctx, or in a new one
func (d *Database) inTx(ctx context.Context, fn func(q querier) error) error {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(tx)
	}
	pool := d.currentPool()
	if pool == nil {
		return interfaces.ErrDatabaseNotConnected
	}
	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		return fn(tx)
	})
}

func schemaDDL(schema *interfaces.Schema) []string {
	table := pgx.Identifier{schema.TableName}.Sanitize()
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id         TEXT PRIMARY KEY,
    doc        JSONB NOT NULL DEFAULT '{}'::jsonb,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
)`, table),
	}

	for fieldName, field := range schema.Fields {
		if !field.Unique || fieldName == interfaces.FieldID {
			continue
		}
		name := pgx.Identifier{fmt.Sprintf("uniq_%s_%s", schema.TableName, fieldName)}.Sanitize()
		stmts = append(stmts, fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s ((doc->>%s))",
			name, table, quoteLiteral(fieldName)))
	}

	for _, index := range schema.Indexes {
		columns := make([]string, 0, len(index.Columns))
		for _, column := range index.Columns {
			if system, ok := systemColumns[column]; ok {
				columns = append(columns, system)
				continue
			}
			columns = append(columns, "(doc->>"+quoteLiteral(column)+")")
		}
		unique := ""
		if index.Unique {
			unique = "UNIQUE "
		}
		stmts = append(stmts, fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS %s ON %s (%s)",
			unique, pgx.Identifier{index.Name}.Sanitize(), table, strings.Join(columns, ", ")))
	}

	return stmts
}

// Transaction wraps a pgx transaction
type Transaction struct {
	mu        sync.Mutex
	tx        pgx.Tx
	completed bool
}

// Commit commits the transaction
func (t *Transaction) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.completed {
		return interfaces.ErrTransactionCompleted
	}
	t.completed = true
	if err := t.tx.Commit(ctx); err != nil {
		return &interfaces.DatabaseError{Op: "postgres commit", Err: err}
	}
	return nil
}

// Rollback rolls the transaction back
func (t *Transaction) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.completed {
		return interfaces.ErrTransactionCompleted
	}
	t.completed = true
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return &interfaces.DatabaseError{Op: "postgres rollback", Err: err}
	}
	return nil
}

// IsCompleted returns true if the transaction has been committed or rolled back
func (t *Transaction) IsCompleted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completed
}

// gooseLogger routes goose output through zap
type gooseLogger struct {
	logger *zap.SugaredLogger
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Fatalf(strings.TrimSpace(format), v...)
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Infof(strings.TrimSpace(format), v...)
}
