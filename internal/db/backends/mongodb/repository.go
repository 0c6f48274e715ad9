package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/asocial/asocial-backend/internal/db/interfaces"
	"github.com/asocial/asocial-backend/internal/db/query"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Repository implements the Repository interface on a MongoDB collection
type Repository struct {
	db      *mongo.Database
	schema  *interfaces.Schema
	builder *query.Builder
}

// NewRepository creates a repository bound to the schema's collection
func NewRepository(db *mongo.Database, schema *interfaces.Schema) *Repository {
	return &Repository{
		db:      db,
		schema:  schema,
		builder: query.NewBuilder(schema),
	}
}

func (r *Repository) collection() (*mongo.Collection, error) {
	if r.db == nil {
		return nil, interfaces.ErrDatabaseNotConnected
	}
	return r.db.Collection(r.schema.TableName), nil
}

// GetByID retrieves a single record by its ID
func (r *Repository) GetByID(ctx context.Context, id interfaces.ID) (map[string]interface{}, error) {
	coll, err := r.collection()
	if err != nil {
		return nil, err
	}

	oid, err := bson.ObjectIDFromHex(id.String())
	if err != nil {
		return nil, interfaces.ErrNotFound
	}

	var doc bson.M
	if err := coll.FindOne(ctx, bson.M{interfaces.FieldID: oid}).Decode(&doc); err != nil {
		return nil, r.wrap("find by id", err)
	}
	return normalizeDocument(doc), nil
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
	coll, err := r.collection()
	if err != nil {
		return nil, err
	}
	if q == nil {
		q = &interfaces.Query{}
	}

	filter := translateFilters(q.Where)

	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, r.wrap("count", err)
	}

	opts := options.Find().SetSort(sortDocument(q.OrderBy))
	offset := 0
	if q.Offset != nil && *q.Offset > 0 {
		offset = *q.Offset
		opts.SetSkip(int64(offset))
	}
	pageSize := int(total) - offset
	if pageSize < 0 {
		pageSize = 0
	}
	if q.Limit != nil && *q.Limit >= 0 {
		pageSize = *q.Limit
		if *q.Limit == 0 {
			return &interfaces.ResultPage{Data: []map[string]interface{}{}, Total: total, Page: 1}, nil
		}
		opts.SetLimit(int64(*q.Limit))
	}
	if len(q.Select) > 0 {
		projection := bson.M{}
		for _, field := range q.Select {
			projection[field] = 1
		}
		opts.SetProjection(projection)
	}

	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, r.wrap("find", err)
	}
	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, r.wrap("decode", err)
	}

	records := make([]map[string]interface{}, 0, len(docs))
	for _, doc := range docs {
		records = append(records, normalizeDocument(doc))
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
	coll, err := r.collection()
	if err != nil {
		return nil, err
	}
	if err := r.builder.ValidateData(data); err != nil {
		return nil, err
	}

	doc := bson.M{}
	for k, v := range data {
		if k == interfaces.FieldID || k == interfaces.FieldCreatedAt || k == interfaces.FieldUpdatedAt {
			continue
		}
		doc[k] = v
	}
	for fieldName, fieldSchema := range r.schema.Fields {
		if _, exists := doc[fieldName]; !exists && fieldSchema.DefaultValue != nil {
			doc[fieldName] = fieldSchema.DefaultValue
		}
	}

	ts := now()
	doc[interfaces.FieldID] = bson.NewObjectID()
	doc[interfaces.FieldCreatedAt] = ts
	doc[interfaces.FieldUpdatedAt] = ts

	if _, err := coll.InsertOne(ctx, doc); err != nil {
		return nil, r.wrap("insert", err)
	}
	return normalizeDocument(doc), nil
}

// Update modifies an existing record by ID
func (r *Repository) Update(ctx context.Context, id interfaces.ID, data map[string]interface{}) (map[string]interface{}, error) {
	coll, err := r.collection()
	if err != nil {
		return nil, err
	}
	if err := r.builder.ValidatePatch(data); err != nil {
		return nil, err
	}

	oid, err := bson.ObjectIDFromHex(id.String())
	if err != nil {
		return nil, interfaces.ErrNotFound
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc bson.M
	err = coll.FindOneAndUpdate(ctx, bson.M{interfaces.FieldID: oid}, bson.M{"$set": setDocument(data)}, opts).Decode(&doc)
	if err != nil {
		return nil, r.wrap("update", err)
	}
	return normalizeDocument(doc), nil
}

// UpdateMany sets data on every matching record
func (r *Repository) UpdateMany(ctx context.Context, where *interfaces.Filters, data map[string]interface{}) (int64, error) {
	coll, err := r.collection()
	if err != nil {
		return 0, err
	}
	if err := r.builder.ValidatePatch(data); err != nil {
		return 0, err
	}

	result, err := coll.UpdateMany(ctx, translateFilters(where), bson.M{"$set": setDocument(data)})
	if err != nil {
		return 0, r.wrap("update many", err)
	}
	return result.MatchedCount, nil
}

// Upsert inserts or updates based on unique field constraints
func (r *Repository) Upsert(ctx context.Context, uniqueFields map[string]interface{}, data map[string]interface{}) (map[string]interface{}, error) {
	coll, err := r.collection()
	if err != nil {
		return nil, err
	}
	if err := r.builder.ValidatePatch(data); err != nil {
		return nil, err
	}

	filter := bson.M{}
	for field, value := range uniqueFields {
		filter[field] = storedValue(field, value)
	}

	set := setDocument(data)
	for field, value := range uniqueFields {
		if field != interfaces.FieldID {
			set[field] = value
		}
	}
	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{interfaces.FieldCreatedAt: set[interfaces.FieldUpdatedAt]},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After).SetUpsert(true)
	var doc bson.M
	if err := coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return nil, r.wrap("upsert", err)
	}
	return normalizeDocument(doc), nil
}

// Delete removes a record by ID
func (r *Repository) Delete(ctx context.Context, id interfaces.ID) error {
	coll, err := r.collection()
	if err != nil {
		return err
	}

	oid, err := bson.ObjectIDFromHex(id.String())
	if err != nil {
		return interfaces.ErrNotFound
	}

	result, err := coll.DeleteOne(ctx, bson.M{interfaces.FieldID: oid})
	if err != nil {
		return r.wrap("delete", err)
	}
	if result.DeletedCount == 0 {
		return interfaces.ErrNotFound
	}
	return nil
}

// DeleteMany removes every record matching where
func (r *Repository) DeleteMany(ctx context.Context, where *interfaces.Filters) (int64, error) {
	coll, err := r.collection()
	if err != nil {
		return 0, err
	}

	result, err := coll.DeleteMany(ctx, translateFilters(where))
	if err != nil {
		return 0, r.wrap("delete many", err)
	}
	return result.DeletedCount, nil
}

// Count returns the number of records matching the query
func (r *Repository) Count(ctx context.Context, q *interfaces.Query) (int64, error) {
	coll, err := r.collection()
	if err != nil {
		return 0, err
	}

	var where *interfaces.Filters
	if q != nil {
		where = q.Where
	}
	count, err := coll.CountDocuments(ctx, translateFilters(where))
	if err != nil {
		return 0, r.wrap("count", err)
	}
	return count, nil
}

// GroupCount counts matching records per distinct value of field, largest
// group first, ties broken by key
func (r *Repository) GroupCount(ctx context.Context, field string, q *interfaces.Query) ([]interfaces.GroupCount, error) {
	coll, err := r.collection()
	if err != nil {
		return nil, err
	}

	var where *interfaces.Filters
	if q != nil {
		where = q.Where
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: translateFilters(where)}},
		{{Key: "$match", Value: bson.M{field: bson.M{"$exists": true, "$ne": nil}}}},
		{{Key: "$group", Value: bson.M{"_id": "$" + field, "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}
	if q != nil && q.Offset != nil && *q.Offset > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$skip", Value: int64(*q.Offset)}})
	}
	if q != nil && q.Limit != nil && *q.Limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: int64(*q.Limit)}})
	}

	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, r.wrap("aggregate", err)
	}

	var rows []struct {
		Key   interface{} `bson:"_id"`
		Count int64       `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, r.wrap("decode", err)
	}

	groups := make([]interfaces.GroupCount, 0, len(rows))
	for _, row := range rows {
		groups = append(groups, interfaces.GroupCount{
			Key:   fmt.Sprint(normalizeValue(row.Key)),
			Count: row.Count,
		})
	}
	return groups, nil
}

// GetSchema returns the schema for this repository
func (r *Repository) GetSchema() *interfaces.Schema {
	return r.schema
}

func (r *Repository) wrap(op string, err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return interfaces.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %s", interfaces.ErrUniqueConstraint, r.schema.TableName)
	}
	return &interfaces.DatabaseError{Op: "mongo " + op + " " + r.schema.TableName, Err: err}
}

func setDocument(data map[string]interface{}) bson.M {
	set := bson.M{}
	for k, v := range data {
		if k == interfaces.FieldID || k == interfaces.FieldCreatedAt {
			continue
		}
		set[k] = v
	}
	set[interfaces.FieldUpdatedAt] = now()
	return set
}

func sortDocument(orderBy []interfaces.OrderBy) bson.D {
	sort := bson.D{}
	hasID := false
	for _, order := range orderBy {
		direction := 1
		if order.Direction == "desc" || order.Direction == "DESC" {
			direction = -1
		}
		if order.Field == interfaces.FieldID {
			hasID = true
		}
		sort = append(sort, bson.E{Key: order.Field, Value: direction})
	}
	if !hasID {
		sort = append(sort, bson.E{Key: interfaces.FieldID, Value: 1})
	}
	return sort
}

// now is truncated to the millisecond precision BSON dates keep
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func normalizeDocument(doc bson.M) map[string]interface{} {
	record := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		record[k] = normalizeValue(v)
	}
	return record
}

func normalizeValue(value interface{}) interface{} {
	switch v := value.(type) {
	case bson.ObjectID:
		return v.Hex()
	case bson.DateTime:
		return v.Time().UTC()
	case time.Time:
		return v.UTC()
	case int32:
		return int64(v)
	case bson.M:
		return normalizeDocument(v)
	case bson.D:
		m := make(map[string]interface{}, len(v))
		for _, e := range v {
			m[e.Key] = normalizeValue(e.Value)
		}
		return m
	case bson.A:
		out := make([]interface{}, 0, len(v))
		for _, item := range v {
			out = append(out, normalizeValue(item))
		}
		return out
	}
	return value
}
