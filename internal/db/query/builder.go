package query

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/asocial/asocial-backend/internal/db/interfaces"
)

// Builder evaluates queries against in-process records
type Builder struct {
	schema *interfaces.Schema
}

// NewBuilder creates a new query builder for a schema
func NewBuilder(schema *interfaces.Schema) *Builder {
	return &Builder{schema: schema}
}

// MatchesFilters checks if a record matches the given filters
func (b *Builder) MatchesFilters(record map[string]interface{}, filters *interfaces.Filters) bool {
	if filters == nil {
		return true
	}

	for _, andFilter := range filters.AND {
		if !b.MatchesFilters(record, andFilter) {
			return false
		}
	}

	if len(filters.OR) > 0 {
		hasMatch := false
		for _, orFilter := range filters.OR {
			if b.MatchesFilters(record, orFilter) {
				hasMatch = true
				break
			}
		}
		if !hasMatch {
			return false
		}
	}

	for _, condition := range filters.Conditions {
		if !b.matchesCondition(record, condition) {
			return false
		}
	}

	return true
}

func (b *Builder) matchesCondition(record map[string]interface{}, condition interfaces.Filter) bool {
	fieldValue, exists := record[condition.Field]

	// Simple equality
	if condition.Operator == nil {
		if !exists && condition.Value == nil {
			return true
		}
		return Equal(fieldValue, condition.Value)
	}

	op := condition.Operator

	if op.IsNull {
		return fieldValue == nil || !exists
	}
	if op.IsNotNull {
		return fieldValue != nil && exists
	}

	// A missing field only matches null checks
	if !exists {
		return false
	}

	if op.Eq != nil {
		return Equal(fieldValue, op.Eq)
	}
	if op.Ne != nil {
		return !Equal(fieldValue, op.Ne)
	}

	if op.Gt != nil {
		return Compare(fieldValue, op.Gt) > 0
	}
	if op.Gte != nil {
		return Compare(fieldValue, op.Gte) >= 0
	}
	if op.Lt != nil {
		return Compare(fieldValue, op.Lt) < 0
	}
	if op.Lte != nil {
		return Compare(fieldValue, op.Lte) <= 0
	}

	if len(op.In) > 0 {
		for _, val := range op.In {
			if Equal(fieldValue, val) {
				return true
			}
		}
		return false
	}
	if len(op.NotIn) > 0 {
		for _, val := range op.NotIn {
			if Equal(fieldValue, val) {
				return false
			}
		}
		return true
	}

	if op.Like != "" {
		strValue, ok := fieldValue.(string)
		if !ok {
			return false
		}
		return containsPattern(strValue, op.Like, op.CaseSensitive)
	}
	if op.NotLike != "" {
		strValue, ok := fieldValue.(string)
		if !ok {
			return true
		}
		return !containsPattern(strValue, op.NotLike, op.CaseSensitive)
	}

	return true
}

func containsPattern(value, pattern string, caseSensitive *bool) bool {
	pattern = strings.ReplaceAll(pattern, "%", "")
	if caseSensitive != nil && !*caseSensitive {
		value = strings.ToLower(value)
		pattern = strings.ToLower(pattern)
	}
	return strings.Contains(value, pattern)
}

// Equal reports whether two stored values are equal. Numbers compare by value
// regardless of their Go type.
func Equal(a, other interface{}) bool {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(other); ok {
			return af == bf
		}
		return false
	}
	if at, ok := a.(time.Time); ok {
		if bt, ok := other.(time.Time); ok {
			return at.Equal(bt)
		}
		return false
	}
	return reflect.DeepEqual(a, other)
}

// Compare orders two stored values. nil sorts before everything; values of
// unrelated types compare equal.
func Compare(a, other interface{}) int {
	switch {
	case a == nil && other == nil:
		return 0
	case a == nil:
		return -1
	case other == nil:
		return 1
	}

	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(other); ok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			}
			return 0
		}
		return 0
	}

	switch av := a.(type) {
	case string:
		if bv, ok := other.(string); ok {
			return strings.Compare(av, bv)
		}
	case time.Time:
		if bv, ok := other.(time.Time); ok {
			return av.Compare(bv)
		}
	case bool:
		if bv, ok := other.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			}
			return 1
		}
	}
	return 0
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// ApplySort sorts records according to the OrderBy list. Records that
// compare equal on every key keep their input order.
func (b *Builder) ApplySort(records []map[string]interface{}, orderBy []interfaces.OrderBy) []map[string]interface{} {
	if len(orderBy) == 0 {
		return records
	}

	sorted := make([]map[string]interface{}, len(records))
	copy(sorted, records)

	sort.SliceStable(sorted, func(i, j int) bool {
		for _, order := range orderBy {
			cmp := Compare(sorted[i][order.Field], sorted[j][order.Field])
			if cmp == 0 {
				continue
			}
			if strings.EqualFold(order.Direction, "desc") {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})

	return sorted
}

// ApplyPagination applies limit and offset to the records
func (b *Builder) ApplyPagination(records []map[string]interface{}, limit, offset *int) []map[string]interface{} {
	start := 0
	if offset != nil && *offset > 0 {
		start = *offset
	}

	if start >= len(records) {
		return []map[string]interface{}{}
	}

	end := len(records)
	if limit != nil && *limit >= 0 {
		end = start + *limit
		if end > len(records) {
			end = len(records)
		}
	}

	return records[start:end]
}

// Project keeps only the selected fields of a record. The ID is always kept.
func (b *Builder) Project(record map[string]interface{}, fields []string) map[string]interface{} {
	if len(fields) == 0 {
		return record
	}
	projected := map[string]interface{}{
		interfaces.FieldID: record[interfaces.FieldID],
	}
	for _, field := range fields {
		if value, exists := record[field]; exists {
			projected[field] = value
		}
	}
	return projected
}

// ValidateData validates a new record against the schema
func (b *Builder) ValidateData(data map[string]interface{}) error {
	for fieldName, fieldSchema := range b.schema.Fields {
		if isSystemField(fieldName) {
			continue
		}

		value, exists := data[fieldName]

		if !fieldSchema.Nullable && (!exists || value == nil) && fieldSchema.DefaultValue == nil {
			return fmt.Errorf("%w: field '%s' is required", interfaces.ErrValidation, fieldName)
		}

		if exists && value != nil {
			if err := b.validateFieldType(fieldName, value, fieldSchema.Type); err != nil {
				return err
			}
		}
	}

	return nil
}

// ValidatePatch validates a partial update against the schema
func (b *Builder) ValidatePatch(data map[string]interface{}) error {
	for fieldName, value := range data {
		fieldSchema, known := b.schema.Fields[fieldName]
		if !known || isSystemField(fieldName) {
			continue
		}
		if value == nil {
			if !fieldSchema.Nullable {
				return fmt.Errorf("%w: field '%s' cannot be null", interfaces.ErrValidation, fieldName)
			}
			continue
		}
		if err := b.validateFieldType(fieldName, value, fieldSchema.Type); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) validateFieldType(fieldName string, value interface{}, expectedType string) error {
	ok := true
	switch expectedType {
	case "string":
		_, ok = value.(string)
	case "int", "int64", "float64":
		_, ok = toFloat(value)
	case "bool":
		_, ok = value.(bool)
	case "time":
		switch value.(type) {
		case string, time.Time:
		default:
			ok = false
		}
	}
	if !ok {
		return fmt.Errorf("%w: field '%s' must be a %s", interfaces.ErrValidation, fieldName, expectedType)
	}
	return nil
}

func isSystemField(name string) bool {
	return name == interfaces.FieldID || name == interfaces.FieldCreatedAt || name == interfaces.FieldUpdatedAt
}
