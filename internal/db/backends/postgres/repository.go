package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/asocial/asocial-backend/internal/db/interfaces"
	"github.com/asocial/asocial-backend/internal/db/query"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	selectColumns     = "id, doc, created_at, updated_at"
	uniqueViolation   = "23505"
	invalidTextFormat = "22P02"
)

// Repository implements the Repository interface on one JSONB table
type Repository struct {
	db      *Database
	schema  *interfaces.Schema
	builder *query.Builder
	table   string
}

// NewRepository creates a repository bound to the schema's table
func NewRepository(db *Database, schema *interfaces.Schema) *Repository {
	return &Repository{
		db:      db,
		schema:  schema,
		builder: query.NewBuilder(schema),
		table:   pgx.Identifier{schema.TableName}.Sanitize(),
	}
}

// GetByID retrieves a single record by its ID
func (r *Repository) GetByID(ctx context.Context, id interfaces.ID) (map[string]interface{}, error) {
	q, err := r.db.querier(ctx)
	if err != nil {
		return nil, err
	}

	row := q.QueryRow(ctx, fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", selectColumns, r.table), id.String())
	record, err := scanRecord(row)
	if err != nil {
		return nil, r.wrap("get by id", err)
	}
	return record, nil
}

// FindOne retrieves the first record matching the query
func (r *Repository) FindOne(ctx context.Context, q *interfaces.Query) (map[string]interface{}, error) {
	one := interfaces.Query{}
	if q != nil {
		one = *q
	}
	limit := 1
	one.Limit = &limit

	result, err := r.FindMany(ctx, &one)
	if err != nil {
		return nil, err
	}
	if len(result.Data) == 0 {
		return nil, interfaces.ErrNotFound
	}
	return result.Data[0], nil
}

// FindMany retrieves multiple records matching the query with pagination.
// Ties in the requested order fall back to ID order.
func (r *Repository) FindMany(ctx context.Context, q *interfaces.Query) (*interfaces.ResultPage, error) {
	db, err := r.db.querier(ctx)
	if err != nil {
		return nil, err
	}
	if q == nil {
		q = &interfaces.Query{}
	}

	b := &sqlBuilder{}
	where, err := b.where(q.Where)
	if err != nil {
		return nil, err
	}

	var total int64
	countSQL := fmt.Sprintf("SELECT count(*) FROM %s WHERE %s", r.table, where)
	if err := db.QueryRow(ctx, countSQL, b.args...).Scan(&total); err != nil {
		return nil, r.wrap("count", err)
	}

	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s %s", selectColumns, r.table, where, orderBy(q.OrderBy))
	offset := 0
	if q.Offset != nil && *q.Offset > 0 {
		offset = *q.Offset
	}
	pageSize := int(total) - offset
	if pageSize < 0 {
		pageSize = 0
	}
	if q.Limit != nil && *q.Limit >= 0 {
		pageSize = *q.Limit
		sql += " LIMIT " + b.arg(*q.Limit)
	}
	if offset > 0 {
		sql += " OFFSET " + b.arg(offset)
	}

	rows, err := db.Query(ctx, sql, b.args...)
	if err != nil {
		return nil, r.wrap("find", err)
	}
	records, err := scanRecords(rows)
	if err != nil {
		return nil, r.wrap("find", err)
	}

	if len(q.Select) > 0 {
		for i, record := range records {
			records[i] = r.builder.Project(record, q.Select)
		}
	}

	page := 1
	if pageSize > 0 {
		page = offset/pageSize + 1
	}

	return &interfaces.ResultPage{
		Data:     records,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// Create inserts a new record
func (r *Repository) Create(ctx context.Context, data map[string]interface{}) (map[string]interface{}, error) {
	q, err := r.db.querier(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.builder.ValidateData(data); err != nil {
		return nil, err
	}

	doc := documentFields(data)
	for fieldName, fieldSchema := range r.schema.Fields {
		if _, exists := doc[fieldName]; !exists && fieldSchema.DefaultValue != nil {
			doc[fieldName] = fieldSchema.DefaultValue
		}
	}

	record, err := r.insert(ctx, q, doc)
	if err != nil {
		return nil, r.wrap("insert", err)
	}
	return record, nil
}

// Update modifies an existing record by ID
func (r *Repository) Update(ctx context.Context, id interfaces.ID, data map[string]interface{}) (map[string]interface{}, error) {
	q, err := r.db.querier(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.builder.ValidatePatch(data); err != nil {
		return nil, err
	}

	patch, err := json.Marshal(documentFields(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrValidation, err)
	}

	sql := fmt.Sprintf("UPDATE %s SET doc = doc || $2::jsonb, updated_at = $3 WHERE id = $1 RETURNING %s", r.table, selectColumns)
	record, err := scanRecord(q.QueryRow(ctx, sql, id.String(), string(patch), now()))
	if err != nil {
		return nil, r.wrap("update", err)
	}
	return record, nil
}

// UpdateMany sets data on every matching record in one statement
func (r *Repository) UpdateMany(ctx context.Context, where *interfaces.Filters, data map[string]interface{}) (int64, error) {
	q, err := r.db.querier(ctx)
	if err != nil {
		return 0, err
	}
	if err := r.builder.ValidatePatch(data); err != nil {
		return 0, err
	}

	patch, err := json.Marshal(documentFields(data))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", interfaces.ErrValidation, err)
	}

	b := &sqlBuilder{}
	patchArg := b.arg(string(patch))
	tsArg := b.arg(now())
	clause, err := b.where(where)
	if err != nil {
		return 0, err
	}

	sql := fmt.Sprintf("UPDATE %s SET doc = doc || %s::jsonb, updated_at = %s WHERE %s", r.table, patchArg, tsArg, clause)
	tag, err := q.Exec(ctx, sql, b.args...)
	if err != nil {
		return 0, r.wrap("update many", err)
	}
	return tag.RowsAffected(), nil
}

// Upsert inserts or updates based on unique field constraints. The lookup
// locks the matched row until the write completes.
func (r *Repository) Upsert(ctx context.Context, uniqueFields map[string]interface{}, data map[string]interface{}) (map[string]interface{}, error) {
	if err := r.builder.ValidatePatch(data); err != nil {
		return nil, err
	}

	where := &interfaces.Filters{}
	for field, value := range uniqueFields {
		where.Conditions = append(where.Conditions, interfaces.Eq(field, value))
	}

	var record map[string]interface{}
	err := r.db.inTx(ctx, func(q querier) error {
		b := &sqlBuilder{}
		clause, err := b.where(where)
		if err != nil {
			return err
		}

		var id string
		sql := fmt.Sprintf("SELECT id FROM %s WHERE %s ORDER BY id LIMIT 1 FOR UPDATE", r.table, clause)
		err = q.QueryRow(ctx, sql, b.args...).Scan(&id)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			doc := documentFields(data)
			for field, value := range uniqueFields {
				if field != interfaces.FieldID {
					doc[field] = value
				}
			}
			if err := r.builder.ValidateData(doc); err != nil {
				return err
			}
			record, err = r.insert(ctx, q, doc)
			return err
		case err != nil:
			return err
		}

		patch, err := json.Marshal(documentFields(data))
		if err != nil {
			return fmt.Errorf("%w: %v", interfaces.ErrValidation, err)
		}
		update := fmt.Sprintf("UPDATE %s SET doc = doc || $2::jsonb, updated_at = $3 WHERE id = $1 RETURNING %s", r.table, selectColumns)
		record, err = scanRecord(q.QueryRow(ctx, update, id, string(patch), now()))
		return err
	})
	if err != nil {
		return nil, r.wrap("upsert", err)
	}
	return record, nil
}

// Delete removes a record by ID
func (r *Repository) Delete(ctx context.Context, id interfaces.ID) error {
	q, err := r.db.querier(ctx)
	if err != nil {
		return err
	}

	tag, err := q.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", r.table), id.String())
	if err != nil {
		return r.wrap("delete", err)
	}
	if tag.RowsAffected() == 0 {
		return interfaces.ErrNotFound
	}
	return nil
}

// DeleteMany removes every record matching where
func (r *Repository) DeleteMany(ctx context.Context, where *interfaces.Filters) (int64, error) {
	q, err := r.db.querier(ctx)
	if err != nil {
		return 0, err
	}

	b := &sqlBuilder{}
	clause, err := b.where(where)
	if err != nil {
		return 0, err
	}

	tag, err := q.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s", r.table, clause), b.args...)
	if err != nil {
		return 0, r.wrap("delete many", err)
	}
	return tag.RowsAffected(), nil
}

// Count returns the number of records matching the query
func (r *Repository) Count(ctx context.Context, q *interfaces.Query) (int64, error) {
	db, err := r.db.querier(ctx)
	if err != nil {
		return 0, err
	}

	var where *interfaces.Filters
	if q != nil {
		where = q.Where
	}
	b := &sqlBuilder{}
	clause, err := b.where(where)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := db.QueryRow(ctx, fmt.Sprintf("SELECT count(*) FROM %s WHERE %s", r.table, clause), b.args...).Scan(&count); err != nil {
		return 0, r.wrap("count", err)
	}
	return count, nil
}

// GroupCount counts matching records per distinct value of field, largest
// group first, ties broken by key
func (r *Repository) GroupCount(ctx context.Context, field string, q *interfaces.Query) ([]interfaces.GroupCount, error) {
	db, err := r.db.querier(ctx)
	if err != nil {
		return nil, err
	}

	var where *interfaces.Filters
	if q != nil {
		where = q.Where
	}
	b := &sqlBuilder{}
	clause, err := b.where(where)
	if err != nil {
		return nil, err
	}

	key, notNull := groupKey(field)
	sql := fmt.Sprintf("SELECT %s AS key, count(*) FROM %s WHERE %s AND %s GROUP BY 1 ORDER BY 2 DESC, 1 ASC",
		key, r.table, clause, notNull)
	if q != nil && q.Limit != nil && *q.Limit >= 0 {
		sql += " LIMIT " + b.arg(*q.Limit)
	}
	if q != nil && q.Offset != nil && *q.Offset > 0 {
		sql += " OFFSET " + b.arg(*q.Offset)
	}

	rows, err := db.Query(ctx, sql, b.args...)
	if err != nil {
		return nil, r.wrap("group count", err)
	}
	groups, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (interfaces.GroupCount, error) {
		var g interfaces.GroupCount
		err := row.Scan(&g.Key, &g.Count)
		return g, err
	})
	if err != nil {
		return nil, r.wrap("group count", err)
	}
	return groups, nil
}

// GetSchema returns the schema for this repository
func (r *Repository) GetSchema() *interfaces.Schema {
	return r.schema
}

func (r *Repository) insert(ctx context.Context, q querier, doc map[string]interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrValidation, err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, &interfaces.DatabaseError{Op: "generate id", Err: err}
	}

	ts := now()
	sql := fmt.Sprintf("INSERT INTO %s (id, doc, created_at, updated_at) VALUES ($1, $2::jsonb, $3, $3) RETURNING %s", r.table, selectColumns)
	return scanRecord(q.QueryRow(ctx, sql, id.String(), string(raw), ts))
}

func (r *Repository) wrap(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return interfaces.ErrNotFound
	}
	if errors.Is(err, interfaces.ErrNotFound) || errors.Is(err, interfaces.ErrValidation) ||
		errors.Is(err, interfaces.ErrUniqueConstraint) || errors.Is(err, interfaces.ErrInvalidQuery) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%w: %s", interfaces.ErrUniqueConstraint, pgErr.ConstraintName)
		case invalidTextFormat:
			return fmt.Errorf("%w: %s", interfaces.ErrInvalidQuery, pgErr.Message)
		}
	}
	return &interfaces.DatabaseError{Op: "postgres " + op + " " + r.schema.TableName, Err: err}
}

// documentFields strips system fields, which live in their own columns
func documentFields(data map[string]interface{}) map[string]interface{} {
	doc := make(map[string]interface{}, len(data))
	for k, v := range data {
		if _, system := systemColumns[k]; system {
			continue
		}
		doc[k] = v
	}
	return doc
}

// now is truncated to the microsecond precision timestamptz keeps
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func scanRecord(row pgx.Row) (map[string]interface{}, error) {
	var (
		id                   string
		raw                  []byte
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(&id, &raw, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	return decodeRecord(id, raw, createdAt, updatedAt)
}

func scanRecords(rows pgx.Rows) ([]map[string]interface{}, error) {
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (map[string]interface{}, error) {
		return scanRecord(row)
	})
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []map[string]interface{}{}
	}
	return records, nil
}

func decodeRecord(id string, raw []byte, createdAt, updatedAt time.Time) (map[string]interface{}, error) {
	record := map[string]interface{}{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", id, err)
		}
	}
	record[interfaces.FieldID] = id
	record[interfaces.FieldCreatedAt] = createdAt.UTC()
	record[interfaces.FieldUpdatedAt] = updatedAt.UTC()
	return record, nil
}
