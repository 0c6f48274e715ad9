package mongodb

import (
	"testing"

	"github.com/asocial/asocial-backend/internal/db/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestTranslateFiltersEmpty(t *testing.T) {
	assert.Equal(t, bson.M{}, translateFilters(nil))
	assert.Equal(t, bson.M{}, translateFilters(&interfaces.Filters{}))
}

func TestTranslateFiltersSingleCondition(t *testing.T) {
	got := translateFilters(interfaces.Where(interfaces.Eq("email", "a@x.io")))
	assert.Equal(t, bson.M{"email": "a@x.io"}, got)
}

func TestTranslateFiltersConvertsObjectIDs(t *testing.T) {
	oid := bson.NewObjectID()

	got := translateFilters(interfaces.Where(interfaces.Eq(interfaces.FieldID, oid.Hex())))
	assert.Equal(t, bson.M{interfaces.FieldID: oid}, got)

	// post_id is stored as a plain string
	got = translateFilters(interfaces.Where(interfaces.Eq("post_id", oid.Hex())))
	assert.Equal(t, bson.M{"post_id": oid.Hex()}, got)

	// not hex, left alone
	got = translateFilters(interfaces.Where(interfaces.Eq(interfaces.FieldID, "nope")))
	assert.Equal(t, bson.M{interfaces.FieldID: "nope"}, got)
}

func TestTranslateFiltersOperators(t *testing.T) {
	insensitive := false

	tests := []struct {
		name string
		op   *interfaces.FilterOperator
		want bson.M
	}{
		{"null", &interfaces.FilterOperator{IsNull: true}, bson.M{"f": nil}},
		{"not null", &interfaces.FilterOperator{IsNotNull: true}, bson.M{"f": bson.M{"$exists": true, "$ne": nil}}},
		{"ne", &interfaces.FilterOperator{Ne: 3}, bson.M{"f": bson.M{"$exists": true, "$ne": 3}}},
		{"gte", &interfaces.FilterOperator{Gte: 3}, bson.M{"f": bson.M{"$gte": 3}}},
		{"in", &interfaces.FilterOperator{In: []interface{}{"a", "b"}}, bson.M{"f": bson.M{"$in": bson.A{"a", "b"}}}},
		{"not in", &interfaces.FilterOperator{NotIn: []interface{}{"a"}}, bson.M{"f": bson.M{"$exists": true, "$nin": bson.A{"a"}}}},
		{"like", &interfaces.FilterOperator{Like: "%a.b%"}, bson.M{"f": bson.Regex{Pattern: `a\.b`}}},
		{"like insensitive", &interfaces.FilterOperator{Like: "%ab%", CaseSensitive: &insensitive}, bson.M{"f": bson.Regex{Pattern: "ab", Options: "i"}}},
		{"not like", &interfaces.FilterOperator{NotLike: "ab"}, bson.M{"f": bson.M{"$exists": true, "$not": bson.Regex{Pattern: "ab"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateFilters(interfaces.Where(interfaces.Filter{Field: "f", Operator: tt.op}))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTranslateFiltersNested(t *testing.T) {
	filters := &interfaces.Filters{
		Conditions: []interfaces.Filter{interfaces.Eq("a", 1)},
		OR: []*interfaces.Filters{
			interfaces.Where(interfaces.Eq("b", 2)),
			interfaces.Where(interfaces.Eq("c", 3)),
		},
	}

	got := translateFilters(filters)
	and, ok := got["$and"].(bson.A)
	require.True(t, ok)
	require.Len(t, and, 2)
	assert.Equal(t, bson.M{"a": 1}, and[0])
	assert.Equal(t, bson.M{"$or": bson.A{bson.M{"b": 2}, bson.M{"c": 3}}}, and[1])
}

func TestSortDocumentAppendsIDTieBreak(t *testing.T) {
	got := sortDocument([]interfaces.OrderBy{{Field: "createdAt", Direction: "desc"}})
	assert.Equal(t, bson.D{{Key: "createdAt", Value: -1}, {Key: interfaces.FieldID, Value: 1}}, got)

	got = sortDocument([]interfaces.OrderBy{{Field: interfaces.FieldID, Direction: "desc"}})
	assert.Equal(t, bson.D{{Key: interfaces.FieldID, Value: -1}}, got)
}

func TestNormalizeValue(t *testing.T) {
	oid := bson.NewObjectID()
	doc := bson.M{
		"_id":   oid,
		"count": int32(4),
		"tags":  bson.A{"x", int32(1)},
		"meta":  bson.D{{Key: "k", Value: oid}},
	}

	got := normalizeDocument(doc)
	assert.Equal(t, oid.Hex(), got["_id"])
	assert.Equal(t, int64(4), got["count"])
	assert.Equal(t, []interface{}{"x", int64(1)}, got["tags"])
	assert.Equal(t, map[string]interface{}{"k": oid.Hex()}, got["meta"])
}
