package postgres

import (
	"testing"
	"time"

	"github.com/asocial/asocial-backend/internal/db/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhereEmpty(t *testing.T) {
	b := &sqlBuilder{}
	clause, err := b.where(nil)
	require.NoError(t, err)
	assert.Equal(t, "TRUE", clause)
	assert.Empty(t, b.args)
}

func TestWhereDocumentEquality(t *testing.T) {
	b := &sqlBuilder{}
	clause, err := b.where(interfaces.Where(interfaces.Eq("email", "a@x.io")))
	require.NoError(t, err)
	assert.Equal(t, "(doc @> $1::jsonb)", clause)
	assert.Equal(t, []interface{}{`{"email":"a@x.io"}`}, b.args)
}

func TestWhereSystemColumns(t *testing.T) {
	b := &sqlBuilder{}
	clause, err := b.where(interfaces.Where(
		interfaces.Eq(interfaces.FieldID, "abc"),
		interfaces.Filter{Field: interfaces.FieldCreatedAt, Operator: &interfaces.FilterOperator{IsNotNull: true}},
	))
	require.NoError(t, err)
	assert.Equal(t, "(id = $1 AND created_at IS NOT NULL)", clause)
	assert.Equal(t, []interface{}{"abc"}, b.args)
}

func TestWhereOperators(t *testing.T) {
	insensitive := false
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name   string
		op     *interfaces.FilterOperator
		clause string
		args   []interface{}
	}{
		{"null", &interfaces.FilterOperator{IsNull: true}, "((doc->'f' IS NULL OR doc->'f' = 'null'::jsonb))", nil},
		{"ne", &interfaces.FilterOperator{Ne: "x"}, "((doc->'f' IS NOT NULL AND NOT doc @> $1::jsonb))", []interface{}{`{"f":"x"}`}},
		{"gt number", &interfaces.FilterOperator{Gt: 3}, "((doc->>'f')::numeric > $1)", []interface{}{3}},
		{"lte time", &interfaces.FilterOperator{Lte: ts}, "((doc->>'f')::timestamptz <= $1)", []interface{}{ts}},
		{"gte string", &interfaces.FilterOperator{Gte: "m"}, "(doc->>'f' >= $1)", []interface{}{"m"}},
		{"in", &interfaces.FilterOperator{In: []interface{}{"a", "b"}}, "((doc @> $1::jsonb OR doc @> $2::jsonb))", []interface{}{`{"f":"a"}`, `{"f":"b"}`}},
		{"like", &interfaces.FilterOperator{Like: "%a_b%"}, "((jsonb_typeof(doc->'f') = 'string' AND doc->>'f' LIKE $1))", []interface{}{`%a\_b%`}},
		{"ilike", &interfaces.FilterOperator{Like: "ab", CaseSensitive: &insensitive}, "((jsonb_typeof(doc->'f') = 'string' AND doc->>'f' ILIKE $1))", []interface{}{"%ab%"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &sqlBuilder{}
			clause, err := b.where(interfaces.Where(interfaces.Filter{Field: "f", Operator: tt.op}))
			require.NoError(t, err)
			assert.Equal(t, tt.clause, clause)
			assert.Equal(t, tt.args, b.args)
		})
	}
}

func TestWhereNestedOr(t *testing.T) {
	b := &sqlBuilder{}
	clause, err := b.where(&interfaces.Filters{
		Conditions: []interfaces.Filter{interfaces.Eq("a", 1)},
		OR: []*interfaces.Filters{
			interfaces.Where(interfaces.Eq("b", 2)),
			interfaces.Where(interfaces.Eq("c", 3)),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "(doc @> $1::jsonb AND ((doc @> $2::jsonb) OR (doc @> $3::jsonb)))", clause)
	assert.Len(t, b.args, 3)
}

func TestWhereQuotesFieldNames(t *testing.T) {
	b := &sqlBuilder{}
	clause, err := b.where(interfaces.Where(interfaces.Filter{Field: "o'brien", Operator: &interfaces.FilterOperator{IsNotNull: true}}))
	require.NoError(t, err)
	assert.Equal(t, "((doc->'o''brien' IS NOT NULL AND doc->'o''brien' <> 'null'::jsonb))", clause)
}

func TestOrderBy(t *testing.T) {
	assert.Equal(t, "ORDER BY id ASC", orderBy(nil))
	assert.Equal(t,
		"ORDER BY created_at DESC, id DESC",
		orderBy([]interfaces.OrderBy{{Field: interfaces.FieldCreatedAt, Direction: "desc"}, {Field: interfaces.FieldID, Direction: "desc"}}),
	)
	assert.Equal(t, "ORDER BY doc->'username' ASC, id ASC", orderBy([]interfaces.OrderBy{{Field: "username", Direction: "asc"}}))
}

func TestSchemaDDL(t *testing.T) {
	schema := &interfaces.Schema{
		TableName: "likes",
		Fields: map[string]interfaces.FieldSchema{
			"post_id": {Type: "string"},
			"email":   {Type: "string"},
		},
		Indexes: []interfaces.Index{{Name: "uniq_likes_post_email", Columns: []string{"post_id", "email"}, Unique: true}},
	}

	stmts := schemaDDL(schema)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], `CREATE TABLE IF NOT EXISTS "likes"`)
	assert.Equal(t, `CREATE UNIQUE INDEX IF NOT EXISTS "uniq_likes_post_email" ON "likes" ((doc->>'post_id'), (doc->>'email'))`, stmts[1])
}
