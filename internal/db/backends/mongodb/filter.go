package mongodb

import (
	"regexp"
	"strings"

	"github.com/asocial/asocial-backend/internal/db/interfaces"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// translateFilters converts store filters into a MongoDB query document.
// Negative operators never match a missing field.
func translateFilters(filters *interfaces.Filters) bson.M {
	if filters == nil {
		return bson.M{}
	}

	var clauses bson.A
	for _, condition := range filters.Conditions {
		clauses = append(clauses, translateCondition(condition))
	}
	for _, and := range filters.AND {
		clauses = append(clauses, translateFilters(and))
	}
	if len(filters.OR) > 0 {
		var or bson.A
		for _, branch := range filters.OR {
			or = append(or, translateFilters(branch))
		}
		clauses = append(clauses, bson.M{"$or": or})
	}

	switch len(clauses) {
	case 0:
		return bson.M{}
	case 1:
		return clauses[0].(bson.M)
	}
	return bson.M{"$and": clauses}
}

func translateCondition(condition interfaces.Filter) bson.M {
	field := condition.Field

	if condition.Operator == nil {
		return bson.M{field: storedValue(field, condition.Value)}
	}

	op := condition.Operator
	switch {
	case op.IsNull:
		return bson.M{field: nil}
	case op.IsNotNull:
		return bson.M{field: bson.M{"$exists": true, "$ne": nil}}
	case op.Eq != nil:
		return bson.M{field: storedValue(field, op.Eq)}
	case op.Ne != nil:
		return bson.M{field: bson.M{"$exists": true, "$ne": storedValue(field, op.Ne)}}
	case op.Gt != nil:
		return bson.M{field: bson.M{"$gt": storedValue(field, op.Gt)}}
	case op.Gte != nil:
		return bson.M{field: bson.M{"$gte": storedValue(field, op.Gte)}}
	case op.Lt != nil:
		return bson.M{field: bson.M{"$lt": storedValue(field, op.Lt)}}
	case op.Lte != nil:
		return bson.M{field: bson.M{"$lte": storedValue(field, op.Lte)}}
	case len(op.In) > 0:
		return bson.M{field: bson.M{"$in": storedValues(field, op.In)}}
	case len(op.NotIn) > 0:
		return bson.M{field: bson.M{"$exists": true, "$nin": storedValues(field, op.NotIn)}}
	case op.Like != "":
		return bson.M{field: likeRegex(op.Like, op.CaseSensitive)}
	case op.NotLike != "":
		return bson.M{field: bson.M{"$exists": true, "$not": likeRegex(op.NotLike, op.CaseSensitive)}}
	}
	return bson.M{}
}

func likeRegex(pattern string, caseSensitive *bool) bson.Regex {
	pattern = strings.ReplaceAll(pattern, "%", "")
	regex := bson.Regex{Pattern: regexp.QuoteMeta(pattern)}
	if caseSensitive != nil && !*caseSensitive {
		regex.Options = "i"
	}
	return regex
}

// storedValue converts hex ID strings into ObjectIDs when filtering on _id
func storedValue(field string, value interface{}) interface{} {
	if field != interfaces.FieldID {
		return value
	}
	if s, ok := value.(string); ok {
		if oid, err := bson.ObjectIDFromHex(s); err == nil {
			return oid
		}
	}
	return value
}

func storedValues(field string, values []interface{}) bson.A {
	out := make(bson.A, 0, len(values))
	for _, value := range values {
		out = append(out, storedValue(field, value))
	}
	return out
}
