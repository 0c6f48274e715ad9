// Package dbtest provides conformance tests for interfaces.Database implementations
package dbtest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/asocial/asocial-backend/internal/db/interfaces"
	"github.com/asocial/asocial-backend/internal/db/query"
)

// DatabaseFactory returns a connected Database. Collections used by the suite
// are migrated and emptied before every test.
type DatabaseFactory func(t *testing.T) interfaces.Database

// ItemSchema is a collection with a unique field and a nullable number
var ItemSchema = &interfaces.Schema{
	TableName: "conformance_items",
	Fields: map[string]interfaces.FieldSchema{
		"name":  {Type: "string", Unique: true},
		"group": {Type: "string", Nullable: true},
		"rank":  {Type: "int", Nullable: true},
	},
}

// PairSchema is a collection with a composite unique index
var PairSchema = &interfaces.Schema{
	TableName: "conformance_pairs",
	Fields: map[string]interfaces.FieldSchema{
		"left":  {Type: "string"},
		"right": {Type: "string"},
	},
	Indexes: []interfaces.Index{
		{Name: "uniq_conformance_pairs_left_right", Columns: []string{"left", "right"}, Unique: true},
	},
}

// Schemas returns every schema the suite touches
func Schemas() []*interfaces.Schema {
	return []*interfaces.Schema{ItemSchema, PairSchema}
}

// RunConformanceTests runs all conformance tests against a Database implementation
func RunConformanceTests(t *testing.T, factory DatabaseFactory) {
	tests := []struct {
		name string
		test func(t *testing.T, db interfaces.Database)
	}{
		{"CreateGetDelete", testCreateGetDelete},
		{"GetUnknownID", testGetUnknownID},
		{"UniqueField", testUniqueField},
		{"UniqueIndex", testUniqueIndex},
		{"Validation", testValidation},
		{"UpdateIsStrict", testUpdateIsStrict},
		{"UpdateUniqueConflict", testUpdateUniqueConflict},
		{"UpdateMany", testUpdateMany},
		{"Upsert", testUpsert},
		{"DeleteMany", testDeleteMany},
		{"Filters", testFilters},
		{"SortAndPaginate", testSortAndPaginate},
		{"InsertionOrder", testInsertionOrder},
		{"Select", testSelect},
		{"GroupCount", testGroupCount},
		{"TransactionCommit", testTransactionCommit},
		{"TransactionRollback", testTransactionRollback},
		{"Health", testHealth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := fresh(t, factory)
			tt.test(t, db)
		})
	}
}

func fresh(t *testing.T, factory DatabaseFactory) interfaces.Database {
	t.Helper()
	ctx := context.Background()

	db := factory(t)
	if err := db.Migrate(ctx, Schemas()); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	for _, schema := range Schemas() {
		if _, err := db.Repository(schema).DeleteMany(ctx, nil); err != nil {
			t.Fatalf("DeleteMany on %s failed: %v", schema.TableName, err)
		}
	}
	return db
}

func mustCreate(t *testing.T, repo interfaces.Repository, data map[string]interface{}) map[string]interface{} {
	t.Helper()
	record, err := repo.Create(context.Background(), data)
	if err != nil {
		t.Fatalf("Create(%v) failed: %v", data, err)
	}
	return record
}

func idOf(t *testing.T, record map[string]interface{}) interfaces.StringID {
	t.Helper()
	id, ok := record[interfaces.FieldID].(string)
	if !ok || id == "" {
		t.Fatalf("record has no string %s: %v", interfaces.FieldID, record)
	}
	return interfaces.StringID(id)
}

func names(records []map[string]interface{}) []string {
	out := make([]string, 0, len(records))
	for _, record := range records {
		name, _ := record["name"].(string)
		out = append(out, name)
	}
	return out
}

func assertNames(t *testing.T, got []map[string]interface{}, want ...string) {
	t.Helper()
	gotNames := names(got)
	if len(gotNames) != len(want) {
		t.Fatalf("Expected %v, got %v", want, gotNames)
	}
	for i := range want {
		if gotNames[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, gotNames)
		}
	}
}

func testCreateGetDelete(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	repo := db.Repository(ItemSchema)

	before := time.Now().Add(-time.Second)
	created := mustCreate(t, repo, map[string]interface{}{"name": "alpha", "rank": 3})
	id := idOf(t, created)

	createdAt, ok := created[interfaces.FieldCreatedAt].(time.Time)
	if !ok || createdAt.Before(before) {
		t.Fatalf("Expected createdAt to be set, got %v", created[interfaces.FieldCreatedAt])
	}
	if _, ok := created[interfaces.FieldUpdatedAt].(time.Time); !ok {
		t.Fatalf("Expected updatedAt to be set, got %v", created[interfaces.FieldUpdatedAt])
	}

	got, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got["name"] != "alpha" || !query.Equal(got["rank"], 3) {
		t.Fatalf("Unexpected record %v", got)
	}

	if err := repo.Delete(ctx, id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := repo.GetByID(ctx, id); !errors.Is(err, interfaces.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.Delete(ctx, id); !errors.Is(err, interfaces.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound deleting twice, got %v", err)
	}
}

func testGetUnknownID(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	repo := db.Repository(ItemSchema)

	for _, id := range []string{"not-an-id", "0190a3c2-7d1e-7c4e-9a5b-3f2d1e0c9b8a", "65f0c0ffee0000000000beef"} {
		if _, err := repo.GetByID(ctx, interfaces.StringID(id)); !errors.Is(err, interfaces.ErrNotFound) {
			t.Fatalf("GetByID(%q): expected ErrNotFound, got %v", id, err)
		}
	}
	if _, err := repo.FindOne(ctx, &interfaces.Query{Where: interfaces.Where(interfaces.Eq("name", "ghost"))}); !errors.Is(err, interfaces.ErrNotFound) {
		t.Fatalf("FindOne: expected ErrNotFound, got %v", err)
	}
}

func testUniqueField(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	repo := db.Repository(ItemSchema)

	mustCreate(t, repo, map[string]interface{}{"name": "alpha", "group": "first"})
	_, err := repo.Create(ctx, map[string]interface{}{"name": "alpha", "group": "second"})
	if !errors.Is(err, interfaces.ErrUniqueConstraint) {
		t.Fatalf("Expected ErrUniqueConstraint, got %v", err)
	}

	count, err := repo.Count(ctx, nil)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("Expected 1 record, got %d", count)
	}
	stored, err := repo.FindOne(ctx, &interfaces.Query{Where: interfaces.Where(interfaces.Eq("name", "alpha"))})
	if err != nil {
		t.Fatalf("FindOne failed: %v", err)
	}
	if stored["group"] != "first" {
		t.Fatalf("Expected first record unchanged, got %v", stored)
	}
}

func testUniqueIndex(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	repo := db.Repository(PairSchema)

	mustCreate(t, repo, map[string]interface{}{"left": "a", "right": "b"})
	mustCreate(t, repo, map[string]interface{}{"left": "a", "right": "c"})
	mustCreate(t, repo, map[string]interface{}{"left": "b", "right": "b"})

	_, err := repo.Create(ctx, map[string]interface{}{"left": "a", "right": "b"})
	if !errors.Is(err, interfaces.ErrUniqueConstraint) {
		t.Fatalf("Expected ErrUniqueConstraint, got %v", err)
	}
}

func testValidation(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	repo := db.Repository(ItemSchema)

	if _, err := repo.Create(ctx, map[string]interface{}{"group": "orphan"}); !errors.Is(err, interfaces.ErrValidation) {
		t.Fatalf("Expected ErrValidation for missing name, got %v", err)
	}
	if _, err := repo.Create(ctx, map[string]interface{}{"name": 42}); !errors.Is(err, interfaces.ErrValidation) {
		t.Fatalf("Expected ErrValidation for wrong type, got %v", err)
	}

	created := mustCreate(t, repo, map[string]interface{}{"name": "alpha"})
	if _, err := repo.Update(ctx, idOf(t, created), map[string]interface{}{"name": nil}); !errors.Is(err, interfaces.ErrValidation) {
		t.Fatalf("Expected ErrValidation nulling a required field, got %v", err)
	}
}

func testUpdateIsStrict(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	repo := db.Repository(ItemSchema)

	created := mustCreate(t, repo, map[string]interface{}{"name": "alpha", "group": "g"})
	id := idOf(t, created)

	updated, err := repo.Update(ctx, id, map[string]interface{}{"rank": 7})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated["name"] != "alpha" || updated["group"] != "g" || !query.Equal(updated["rank"], 7) {
		t.Fatalf("Expected patch semantics, got %v", updated)
	}
	if updated[interfaces.FieldID] != string(id) {
		t.Fatalf("Expected ID to be preserved, got %v", updated[interfaces.FieldID])
	}
	createdAt := created[interfaces.FieldCreatedAt].(time.Time)
	if !updated[interfaces.FieldCreatedAt].(time.Time).Equal(createdAt) {
		t.Fatalf("Expected createdAt preserved, got %v", updated[interfaces.FieldCreatedAt])
	}
	if updated[interfaces.FieldUpdatedAt].(time.Time).Before(createdAt) {
		t.Fatalf("Expected updatedAt to advance, got %v", updated[interfaces.FieldUpdatedAt])
	}

	for _, unknown := range []string{"missing", "0190a3c2-7d1e-7c4e-9a5b-3f2d1e0c9b8a", "65f0c0ffee0000000000beef"} {
		if _, err := repo.Update(ctx, interfaces.StringID(unknown), map[string]interface{}{"rank": 1}); !errors.Is(err, interfaces.ErrNotFound) {
			t.Fatalf("Update(%q): expected ErrNotFound, got %v", unknown, err)
		}
	}

	count, err := repo.Count(ctx, nil)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("Expected strict update to create nothing, got %d records", count)
	}
}

func testUpdateUniqueConflict(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	repo := db.Repository(ItemSchema)

	mustCreate(t, repo, map[string]interface{}{"name": "alpha"})
	beta := mustCreate(t, repo, map[string]interface{}{"name": "beta"})

	if _, err := repo.Update(ctx, idOf(t, beta), map[string]interface{}{"name": "alpha"}); !errors.Is(err, interfaces.ErrUniqueConstraint) {
		t.Fatalf("Expected ErrUniqueConstraint, got %v", err)
	}
	if _, err := repo.Update(ctx, idOf(t, beta), map[string]interface{}{"name": "beta"}); err != nil {
		t.Fatalf("Updating to own value should succeed: %v", err)
	}

	stored, err := repo.GetByID(ctx, idOf(t, beta))
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored["name"] != "beta" {
		t.Fatalf("Expected name unchanged, got %v", stored["name"])
	}
}

func testUpdateMany(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	repo := db.Repository(ItemSchema)

	mustCreate(t, repo, map[string]interface{}{"name": "a", "group": "x"})
	mustCreate(t, repo, map[string]interface{}{"name": "b", "group": "x"})
	mustCreate(t, repo, map[string]interface{}{"name": "c", "group": "y"})

	n, err := repo.UpdateMany(ctx, interfaces.Where(interfaces.Eq("group", "x")), map[string]interface{}{"rank": 9})
	if err != nil {
		t.Fatalf("UpdateMany failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("Expected 2 matched, got %d", n)
	}

	count, err := repo.Count(ctx, &interfaces.Query{Where: interfaces.Where(interfaces.Eq("rank", 9))})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("Expected 2 updated records, got %d", count)
	}

	n, err = repo.UpdateMany(ctx, interfaces.Where(interfaces.Eq("group", "none")), map[string]interface{}{"rank": 1})
	if err != nil {
		t.Fatalf("UpdateMany failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("Expected 0 matched, got %d", n)
	}
}

func testUpsert(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	repo := db.Repository(ItemSchema)

	first, err := repo.Upsert(ctx, map[string]interface{}{"name": "alpha"}, map[string]interface{}{"rank": 1})
	if err != nil {
		t.Fatalf("Upsert insert failed: %v", err)
	}
	second, err := repo.Upsert(ctx, map[string]interface{}{"name": "alpha"}, map[string]interface{}{"rank": 2})
	if err != nil {
		t.Fatalf("Upsert update failed: %v", err)
	}

	if idOf(t, first) != idOf(t, second) {
		t.Fatalf("Expected the same record, got %v and %v", first[interfaces.FieldID], second[interfaces.FieldID])
	}
	if !query.Equal(second["rank"], 2) {
		t.Fatalf("Expected rank 2, got %v", second["rank"])
	}
	count, err := repo.Count(ctx, nil)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("Expected 1 record, got %d", count)
	}
}

func testDeleteMany(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	repo := db.Repository(ItemSchema)

	mustCreate(t, repo, map[string]interface{}{"name": "a", "group": "x"})
	mustCreate(t, repo, map[string]interface{}{"name": "b", "group": "x"})
	mustCreate(t, repo, map[string]interface{}{"name": "c", "group": "y"})

	n, err := repo.DeleteMany(ctx, interfaces.Where(interfaces.Eq("group", "x")))
	if err != nil {
		t.Fatalf("DeleteMany failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("Expected 2 deleted, got %d", n)
	}

	result, err := repo.FindMany(ctx, nil)
	if err != nil {
		t.Fatalf("FindMany failed: %v", err)
	}
	assertNames(t, result.Data, "c")
}

func testFilters(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	repo := db.Repository(ItemSchema)

	mustCreate(t, repo, map[string]interface{}{"name": "Apple", "group": "fruit", "rank": 1})
	mustCreate(t, repo, map[string]interface{}{"name": "banana", "group": "fruit", "rank": 5})
	mustCreate(t, repo, map[string]interface{}{"name": "carrot", "group": "veg", "rank": 3})
	mustCreate(t, repo, map[string]interface{}{"name": "dill"})

	insensitive := false
	tests := []struct {
		name  string
		where *interfaces.Filters
		want  []string
	}{
		{"eq", interfaces.Where(interfaces.Eq("group", "fruit")), []string{"Apple", "banana"}},
		{"gt", interfaces.Where(interfaces.Filter{Field: "rank", Operator: &interfaces.FilterOperator{Gt: 1}}), []string{"banana", "carrot"}},
		{"lte", interfaces.Where(interfaces.Filter{Field: "rank", Operator: &interfaces.FilterOperator{Lte: 3}}), []string{"Apple", "carrot"}},
		{"in", interfaces.Where(interfaces.Filter{Field: "name", Operator: &interfaces.FilterOperator{In: []interface{}{"dill", "carrot"}}}), []string{"carrot", "dill"}},
		{"ne", interfaces.Where(interfaces.Filter{Field: "group", Operator: &interfaces.FilterOperator{Ne: "fruit"}}), []string{"carrot"}},
		{"null", interfaces.Where(interfaces.Filter{Field: "group", Operator: &interfaces.FilterOperator{IsNull: true}}), []string{"dill"}},
		{"like", interfaces.Where(interfaces.Filter{Field: "name", Operator: &interfaces.FilterOperator{Like: "%an%"}}), []string{"banana"}},
		{"like insensitive", interfaces.Where(interfaces.Filter{Field: "name", Operator: &interfaces.FilterOperator{Like: "%app%", CaseSensitive: &insensitive}}), []string{"Apple"}},
		{"or", &interfaces.Filters{OR: []*interfaces.Filters{
			interfaces.Where(interfaces.Eq("name", "dill")),
			interfaces.Where(interfaces.Eq("group", "veg")),
		}}, []string{"carrot", "dill"}},
		{"and", &interfaces.Filters{AND: []*interfaces.Filters{
			interfaces.Where(interfaces.Eq("group", "fruit")),
			interfaces.Where(interfaces.Filter{Field: "rank", Operator: &interfaces.FilterOperator{Gte: 2}}),
		}}, []string{"banana"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := repo.FindMany(ctx, &interfaces.Query{
				Where:   tt.where,
				OrderBy: []interfaces.OrderBy{{Field: "name", Direction: "asc"}},
			})
			if err != nil {
				t.Fatalf("FindMany failed: %v", err)
			}
			assertNames(t, result.Data, tt.want...)
			if result.Total != int64(len(tt.want)) {
				t.Fatalf("Expected total %d, got %d", len(tt.want), result.Total)
			}
		})
	}
}

func testSortAndPaginate(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	repo := db.Repository(ItemSchema)

	for i, name := range []string{"a", "b", "c", "d", "e"} {
		mustCreate(t, repo, map[string]interface{}{"name": name, "rank": i % 2})
	}

	// rank desc, ties by name desc
	limit, offset := 2, 1
	result, err := repo.FindMany(ctx, &interfaces.Query{
		OrderBy: []interfaces.OrderBy{{Field: "rank", Direction: "desc"}, {Field: "name", Direction: "desc"}},
		Limit:   &limit,
		Offset:  &offset,
	})
	if err != nil {
		t.Fatalf("FindMany failed: %v", err)
	}
	assertNames(t, result.Data, "b", "e")
	if result.Total != 5 {
		t.Fatalf("Expected total 5, got %d", result.Total)
	}

	offset = 10
	result, err = repo.FindMany(ctx, &interfaces.Query{Limit: &limit, Offset: &offset})
	if err != nil {
		t.Fatalf("FindMany failed: %v", err)
	}
	if len(result.Data) != 0 || result.Total != 5 {
		t.Fatalf("Expected empty page with total 5, got %d records, total %d", len(result.Data), result.Total)
	}
}

func testInsertionOrder(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	repo := db.Repository(ItemSchema)

	for _, name := range []string{"z", "m", "a", "q"} {
		mustCreate(t, repo, map[string]interface{}{"name": name, "rank": 1})
	}

	result, err := repo.FindMany(ctx, nil)
	if err != nil {
		t.Fatalf("FindMany failed: %v", err)
	}
	assertNames(t, result.Data, "z", "m", "a", "q")

	// Equal sort keys fall back to insertion order
	result, err = repo.FindMany(ctx, &interfaces.Query{OrderBy: []interfaces.OrderBy{{Field: "rank", Direction: "desc"}}})
	if err != nil {
		t.Fatalf("FindMany failed: %v", err)
	}
	assertNames(t, result.Data, "z", "m", "a", "q")

	result, err = repo.FindMany(ctx, &interfaces.Query{OrderBy: []interfaces.OrderBy{{Field: interfaces.FieldID, Direction: "desc"}}})
	if err != nil {
		t.Fatalf("FindMany failed: %v", err)
	}
	assertNames(t, result.Data, "q", "a", "m", "z")
}

func testSelect(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	repo := db.Repository(ItemSchema)

	created := mustCreate(t, repo, map[string]interface{}{"name": "alpha", "group": "g", "rank": 2})

	result, err := repo.FindMany(ctx, &interfaces.Query{Select: []string{"name"}})
	if err != nil {
		t.Fatalf("FindMany failed: %v", err)
	}
	if len(result.Data) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(result.Data))
	}
	record := result.Data[0]
	if record["name"] != "alpha" || record[interfaces.FieldID] != created[interfaces.FieldID] {
		t.Fatalf("Expected name and id, got %v", record)
	}
	if _, exists := record["group"]; exists {
		t.Fatalf("Expected group to be projected out, got %v", record)
	}
}

func testGroupCount(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	repo := db.Repository(ItemSchema)

	data := []map[string]interface{}{
		{"name": "1", "group": "b"},
		{"name": "2", "group": "a"},
		{"name": "3", "group": "c"},
		{"name": "4", "group": "c"},
		{"name": "5", "group": "b"},
		{"name": "6", "group": "c"},
		{"name": "7"},
	}
	for _, d := range data {
		mustCreate(t, repo, d)
	}

	groups, err := repo.GroupCount(ctx, "group", nil)
	if err != nil {
		t.Fatalf("GroupCount failed: %v", err)
	}
	want := []interfaces.GroupCount{{Key: "c", Count: 3}, {Key: "b", Count: 2}, {Key: "a", Count: 1}}
	if len(groups) != len(want) {
		t.Fatalf("Expected %v, got %v", want, groups)
	}
	for i := range want {
		if groups[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, groups)
		}
	}

	limit := 2
	groups, err = repo.GroupCount(ctx, "group", &interfaces.Query{
		Where: interfaces.Where(interfaces.Filter{Field: "group", Operator: &interfaces.FilterOperator{Ne: "c"}}),
		Limit: &limit,
	})
	if err != nil {
		t.Fatalf("GroupCount failed: %v", err)
	}
	if len(groups) != 2 || groups[0].Key != "b" || groups[1].Key != "a" {
		t.Fatalf("Expected [b a], got %v", groups)
	}
}

func testTransactionCommit(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	items := db.Repository(ItemSchema)
	pairs := db.Repository(PairSchema)

	err := db.Transaction(ctx, func(ctx context.Context, tx interfaces.Transaction) error {
		if _, err := items.Create(ctx, map[string]interface{}{"name": "tx"}); err != nil {
			return err
		}
		_, err := pairs.Create(ctx, map[string]interface{}{"left": "tx", "right": "tx"})
		return err
	})
	if err != nil {
		t.Fatalf("Transaction should succeed: %v", err)
	}

	for _, repo := range []interfaces.Repository{items, pairs} {
		count, err := repo.Count(ctx, nil)
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if count != 1 {
			t.Fatalf("Expected 1 record in %s, got %d", repo.GetSchema().TableName, count)
		}
	}
}

func testTransactionRollback(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	items := db.Repository(ItemSchema)

	existing := mustCreate(t, items, map[string]interface{}{"name": "keep", "rank": 1})

	errBoom := errors.New("boom")
	err := db.Transaction(ctx, func(ctx context.Context, tx interfaces.Transaction) error {
		if _, err := items.Create(ctx, map[string]interface{}{"name": "rollback"}); err != nil {
			return err
		}
		if _, err := items.Update(ctx, idOf(t, existing), map[string]interface{}{"rank": 2}); err != nil {
			return err
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("Expected transaction error to propagate, got %v", err)
	}

	count, err := items.Count(ctx, nil)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("Expected 1 record after rollback, got %d", count)
	}
	stored, err := items.GetByID(ctx, idOf(t, existing))
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !query.Equal(stored["rank"], 1) {
		t.Fatalf("Expected rank restored to 1, got %v", stored["rank"])
	}
}

func testHealth(t *testing.T, db interfaces.Database) {
	if !db.IsHealthy(context.Background()) {
		t.Fatal("Database should be healthy")
	}
}
