package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/asocial/asocial-backend/internal/db/interfaces"
	"github.com/asocial/asocial-backend/internal/db/query"
	"github.com/google/uuid"
)

// Repository implements the Repository interface for in-memory storage
type Repository struct {
	db        *Database
	schema    *interfaces.Schema
	builder   *query.Builder
	tableName string
}

// NewRepository creates a new in-memory repository
func NewRepository(db *Database, schema *interfaces.Schema) *Repository {
	return &Repository{
		db:        db,
		schema:    schema,
		builder:   query.NewBuilder(schema),
		tableName: schema.TableName,
	}
}

// GetByID retrieves a single record by its ID
func (r *Repository) GetByID(ctx context.Context, id interfaces.ID) (map[string]interface{}, error) {
	defer r.db.gate(ctx)()

	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	record, exists := r.db.tables[r.tableName][id.String()]
	if !exists {
		return nil, interfaces.ErrNotFound
	}

	return copyRecord(record), nil
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
// Without an explicit order, records come back in insertion order.
func (r *Repository) FindMany(ctx context.Context, q *interfaces.Query) (*interfaces.ResultPage, error) {
	defer r.db.gate(ctx)()

	if q == nil {
		q = &interfaces.Query{}
	}

	r.db.mu.RLock()
	records := r.matchLocked(q.Where)
	r.db.mu.RUnlock()

	total := int64(len(records))

	records = r.builder.ApplySort(records, q.OrderBy)

	offset := 0
	if q.Offset != nil {
		offset = *q.Offset
	}
	pageSize := len(records)
	if q.Limit != nil {
		pageSize = *q.Limit
	}

	records = r.builder.ApplyPagination(records, q.Limit, q.Offset)

	if len(q.Select) > 0 {
		projected := make([]map[string]interface{}, 0, len(records))
		for _, record := range records {
			projected = append(projected, r.builder.Project(record, q.Select))
		}
		records = projected
	}

	page := 1
	if pageSize > 0 {
		page = (offset / pageSize) + 1
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
	defer r.db.gate(ctx)()

	if err := r.builder.ValidateData(data); err != nil {
		return nil, err
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	record, err := r.createLocked(data)
	if err != nil {
		return nil, err
	}
	return copyRecord(record), nil
}

// Update modifies an existing record by ID
func (r *Repository) Update(ctx context.Context, id interfaces.ID, data map[string]interface{}) (map[string]interface{}, error) {
	defer r.db.gate(ctx)()

	if err := r.builder.ValidatePatch(data); err != nil {
		return nil, err
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	updated, err := r.updateLocked(id.String(), data)
	if err != nil {
		return nil, err
	}
	return copyRecord(updated), nil
}

// UpdateMany sets data on every matching record. Either all records are
// updated or none are.
func (r *Repository) UpdateMany(ctx context.Context, where *interfaces.Filters, data map[string]interface{}) (int64, error) {
	defer r.db.gate(ctx)()

	if err := r.builder.ValidatePatch(data); err != nil {
		return 0, err
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	table := r.tableLocked()
	staged := make(map[string]map[string]interface{}, len(table))
	for id, record := range table {
		staged[id] = record
	}

	now := time.Now().UTC()
	var matched []string
	for id, record := range table {
		if !r.builder.MatchesFilters(record, where) {
			continue
		}
		staged[id] = applyPatch(record, data, now)
		matched = append(matched, id)
	}

	for _, id := range matched {
		if err := r.validateUniqueConstraints(staged, staged[id], id); err != nil {
			return 0, err
		}
	}

	for _, id := range matched {
		table[id] = staged[id]
	}

	return int64(len(matched)), nil
}

// Upsert inserts or updates based on unique field constraints. The lookup and
// the write happen under one lock.
func (r *Repository) Upsert(ctx context.Context, uniqueFields map[string]interface{}, data map[string]interface{}) (map[string]interface{}, error) {
	defer r.db.gate(ctx)()

	where := &interfaces.Filters{
		Conditions: make([]interfaces.Filter, 0, len(uniqueFields)),
	}
	for field, value := range uniqueFields {
		where.Conditions = append(where.Conditions, interfaces.Eq(field, value))
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if existing := r.matchLocked(where); len(existing) > 0 {
		if err := r.builder.ValidatePatch(data); err != nil {
			return nil, err
		}
		updated, err := r.updateLocked(existing[0][interfaces.FieldID].(string), data)
		if err != nil {
			return nil, err
		}
		return copyRecord(updated), nil
	}

	createData := make(map[string]interface{}, len(data)+len(uniqueFields))
	for k, v := range data {
		createData[k] = v
	}
	for k, v := range uniqueFields {
		createData[k] = v
	}
	if err := r.builder.ValidateData(createData); err != nil {
		return nil, err
	}

	record, err := r.createLocked(createData)
	if err != nil {
		return nil, err
	}
	return copyRecord(record), nil
}

// Delete removes a record by ID
func (r *Repository) Delete(ctx context.Context, id interfaces.ID) error {
	defer r.db.gate(ctx)()

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	table := r.tableLocked()
	if _, exists := table[id.String()]; !exists {
		return interfaces.ErrNotFound
	}

	delete(table, id.String())
	return nil
}

// DeleteMany removes every record matching where
func (r *Repository) DeleteMany(ctx context.Context, where *interfaces.Filters) (int64, error) {
	defer r.db.gate(ctx)()

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	table := r.tableLocked()
	var deleted int64
	for id, record := range table {
		if r.builder.MatchesFilters(record, where) {
			delete(table, id)
			deleted++
		}
	}
	return deleted, nil
}

// Count returns the number of records matching the query
func (r *Repository) Count(ctx context.Context, q *interfaces.Query) (int64, error) {
	defer r.db.gate(ctx)()

	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if q == nil || q.Where == nil {
		return int64(len(r.db.tables[r.tableName])), nil
	}

	var count int64
	for _, record := range r.db.tables[r.tableName] {
		if r.builder.MatchesFilters(record, q.Where) {
			count++
		}
	}
	return count, nil
}

// GroupCount counts matching records per distinct value of field, largest
// group first, ties broken by key
func (r *Repository) GroupCount(ctx context.Context, field string, q *interfaces.Query) ([]interfaces.GroupCount, error) {
	defer r.db.gate(ctx)()

	var where *interfaces.Filters
	if q != nil {
		where = q.Where
	}

	r.db.mu.RLock()
	counts := make(map[string]int64)
	for _, record := range r.db.tables[r.tableName] {
		if !r.builder.MatchesFilters(record, where) {
			continue
		}
		value, exists := record[field]
		if !exists || value == nil {
			continue
		}
		counts[fmt.Sprint(value)]++
	}
	r.db.mu.RUnlock()

	groups := make([]interfaces.GroupCount, 0, len(counts))
	for key, count := range counts {
		groups = append(groups, interfaces.GroupCount{Key: key, Count: count})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].Key < groups[j].Key
	})

	if q != nil {
		groups = applyGroupPagination(groups, q.Limit, q.Offset)
	}
	return groups, nil
}

// GetSchema returns the schema for this repository
func (r *Repository) GetSchema() *interfaces.Schema {
	return r.schema
}

// Helpers below expect r.db.mu to be held by the caller.

func (r *Repository) tableLocked() map[string]map[string]interface{} {
	table, exists := r.db.tables[r.tableName]
	if !exists {
		table = make(map[string]map[string]interface{})
		r.db.tables[r.tableName] = table
	}
	return table
}

// matchLocked returns copies of the matching records ordered by ID
func (r *Repository) matchLocked(where *interfaces.Filters) []map[string]interface{} {
	table := r.db.tables[r.tableName]
	records := make([]map[string]interface{}, 0, len(table))
	for _, record := range table {
		if r.builder.MatchesFilters(record, where) {
			records = append(records, copyRecord(record))
		}
	}
	// IDs are UUIDv7, so ID order is insertion order
	sort.Slice(records, func(i, j int) bool {
		return records[i][interfaces.FieldID].(string) < records[j][interfaces.FieldID].(string)
	})
	return records
}

func (r *Repository) createLocked(data map[string]interface{}) (map[string]interface{}, error) {
	record := make(map[string]interface{}, len(data)+3)
	for k, v := range data {
		record[k] = v
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, &interfaces.DatabaseError{Op: "generate id", Err: err}
	}
	record[interfaces.FieldID] = id.String()

	now := time.Now().UTC()
	record[interfaces.FieldCreatedAt] = now
	record[interfaces.FieldUpdatedAt] = now

	for fieldName, fieldSchema := range r.schema.Fields {
		if _, exists := record[fieldName]; !exists && fieldSchema.DefaultValue != nil {
			record[fieldName] = fieldSchema.DefaultValue
		}
	}

	table := r.tableLocked()
	if err := r.validateUniqueConstraints(table, record, ""); err != nil {
		return nil, err
	}

	table[id.String()] = record
	return record, nil
}

func (r *Repository) updateLocked(id string, data map[string]interface{}) (map[string]interface{}, error) {
	table := r.tableLocked()
	existing, exists := table[id]
	if !exists {
		return nil, interfaces.ErrNotFound
	}

	updated := applyPatch(existing, data, time.Now().UTC())

	if err := r.validateUniqueConstraints(table, updated, id); err != nil {
		return nil, err
	}

	table[id] = updated
	return updated, nil
}

func (r *Repository) validateUniqueConstraints(table map[string]map[string]interface{}, record map[string]interface{}, excludeID string) error {
	for fieldName, fieldSchema := range r.schema.Fields {
		if !fieldSchema.Unique {
			continue
		}

		value, exists := record[fieldName]
		if !exists || value == nil {
			continue
		}

		for id, existing := range table {
			if id == excludeID {
				continue
			}
			if existingValue, exists := existing[fieldName]; exists && query.Equal(existingValue, value) {
				return fmt.Errorf("%w: field '%s' value '%v'", interfaces.ErrUniqueConstraint, fieldName, value)
			}
		}
	}

	for _, index := range r.schema.Indexes {
		if !index.Unique {
			continue
		}

		for id, existing := range table {
			if id == excludeID {
				continue
			}

			match := true
			for _, column := range index.Columns {
				if !query.Equal(existing[column], record[column]) {
					match = false
					break
				}
			}
			if match {
				return fmt.Errorf("%w: unique index '%s'", interfaces.ErrUniqueConstraint, index.Name)
			}
		}
	}

	return nil
}

func applyPatch(existing, data map[string]interface{}, now time.Time) map[string]interface{} {
	updated := copyRecord(existing)
	for k, v := range data {
		if k == interfaces.FieldID || k == interfaces.FieldCreatedAt {
			continue
		}
		updated[k] = v
	}
	updated[interfaces.FieldUpdatedAt] = now
	return updated
}

func applyGroupPagination(groups []interfaces.GroupCount, limit, offset *int) []interfaces.GroupCount {
	start := 0
	if offset != nil && *offset > 0 {
		start = *offset
	}
	if start >= len(groups) {
		return []interfaces.GroupCount{}
	}
	end := len(groups)
	if limit != nil && *limit >= 0 && start+*limit < end {
		end = start + *limit
	}
	return groups[start:end]
}

func copyRecord(record map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(record))
	for k, v := range record {
		result[k] = v
	}
	return result
}
