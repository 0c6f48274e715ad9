package postgres

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/asocial/asocial-backend/internal/db/interfaces"
)

// systemColumns maps system fields onto their dedicated table columns
var systemColumns = map[string]string{
	interfaces.FieldID:        "id",
	interfaces.FieldCreatedAt: "created_at",
	interfaces.FieldUpdatedAt: "updated_at",
}

// sqlBuilder accumulates positional arguments while rendering SQL fragments
type sqlBuilder struct {
	args []interface{}
}

func (b *sqlBuilder) arg(value interface{}) string {
	b.args = append(b.args, value)
	return fmt.Sprintf("$%d", len(b.args))
}

// jsonArg binds {field: value} as a jsonb containment operand
func (b *sqlBuilder) jsonArg(field string, value interface{}) (string, error) {
	raw, err := json.Marshal(map[string]interface{}{field: value})
	if err != nil {
		return "", fmt.Errorf("%w: field '%s': %v", interfaces.ErrInvalidQuery, field, err)
	}
	return b.arg(string(raw)) + "::jsonb", nil
}

// where renders filters as a boolean SQL expression. Empty filters render TRUE.
func (b *sqlBuilder) where(filters *interfaces.Filters) (string, error) {
	if filters == nil {
		return "TRUE", nil
	}

	var clauses []string
	for _, condition := range filters.Conditions {
		clause, err := b.condition(condition)
		if err != nil {
			return "", err
		}
		clauses = append(clauses, clause)
	}
	for _, and := range filters.AND {
		clause, err := b.where(and)
		if err != nil {
			return "", err
		}
		clauses = append(clauses, clause)
	}
	if len(filters.OR) > 0 {
		var branches []string
		for _, or := range filters.OR {
			clause, err := b.where(or)
			if err != nil {
				return "", err
			}
			branches = append(branches, clause)
		}
		clauses = append(clauses, "("+strings.Join(branches, " OR ")+")")
	}

	if len(clauses) == 0 {
		return "TRUE", nil
	}
	return "(" + strings.Join(clauses, " AND ") + ")", nil
}

func (b *sqlBuilder) condition(condition interfaces.Filter) (string, error) {
	if column, ok := systemColumns[condition.Field]; ok {
		return b.columnCondition(column, condition)
	}
	return b.docCondition(condition)
}

// columnCondition handles filters on the id and timestamp columns
func (b *sqlBuilder) columnCondition(column string, condition interfaces.Filter) (string, error) {
	if condition.Operator == nil {
		if condition.Value == nil {
			return column + " IS NULL", nil
		}
		return column + " = " + b.arg(condition.Value), nil
	}

	op := condition.Operator
	switch {
	case op.IsNull:
		return column + " IS NULL", nil
	case op.IsNotNull:
		return column + " IS NOT NULL", nil
	case op.Eq != nil:
		return column + " = " + b.arg(op.Eq), nil
	case op.Ne != nil:
		return column + " <> " + b.arg(op.Ne), nil
	case op.Gt != nil:
		return column + " > " + b.arg(op.Gt), nil
	case op.Gte != nil:
		return column + " >= " + b.arg(op.Gte), nil
	case op.Lt != nil:
		return column + " < " + b.arg(op.Lt), nil
	case op.Lte != nil:
		return column + " <= " + b.arg(op.Lte), nil
	case len(op.In) > 0:
		return column + " IN (" + b.list(op.In) + ")", nil
	case len(op.NotIn) > 0:
		return column + " NOT IN (" + b.list(op.NotIn) + ")", nil
	case op.Like != "":
		return column + "::text " + likeOperator(op.CaseSensitive) + " " + b.arg(likePattern(op.Like)), nil
	case op.NotLike != "":
		return "NOT (" + column + "::text " + likeOperator(op.CaseSensitive) + " " + b.arg(likePattern(op.NotLike)) + ")", nil
	}
	return "TRUE", nil
}

// docCondition handles filters on fields stored inside the jsonb document
func (b *sqlBuilder) docCondition(condition interfaces.Filter) (string, error) {
	field := condition.Field
	jsonPath := "doc->" + quoteLiteral(field)
	textPath := "doc->>" + quoteLiteral(field)
	present := "(" + jsonPath + " IS NOT NULL AND " + jsonPath + " <> 'null'::jsonb)"
	absent := "(" + jsonPath + " IS NULL OR " + jsonPath + " = 'null'::jsonb)"

	if condition.Operator == nil {
		if condition.Value == nil {
			return absent, nil
		}
		operand, err := b.jsonArg(field, condition.Value)
		if err != nil {
			return "", err
		}
		return "doc @> " + operand, nil
	}

	op := condition.Operator
	switch {
	case op.IsNull:
		return absent, nil
	case op.IsNotNull:
		return present, nil
	case op.Eq != nil:
		operand, err := b.jsonArg(field, op.Eq)
		if err != nil {
			return "", err
		}
		return "doc @> " + operand, nil
	case op.Ne != nil:
		operand, err := b.jsonArg(field, op.Ne)
		if err != nil {
			return "", err
		}
		return "(" + jsonPath + " IS NOT NULL AND NOT doc @> " + operand + ")", nil
	case op.Gt != nil:
		return b.compare(textPath, ">", op.Gt), nil
	case op.Gte != nil:
		return b.compare(textPath, ">=", op.Gte), nil
	case op.Lt != nil:
		return b.compare(textPath, "<", op.Lt), nil
	case op.Lte != nil:
		return b.compare(textPath, "<=", op.Lte), nil
	case len(op.In) > 0:
		return b.containsAny(field, op.In)
	case len(op.NotIn) > 0:
		matched, err := b.containsAny(field, op.NotIn)
		if err != nil {
			return "", err
		}
		return "(" + jsonPath + " IS NOT NULL AND NOT " + matched + ")", nil
	case op.Like != "":
		return "(jsonb_typeof(" + jsonPath + ") = 'string' AND " + textPath + " " + likeOperator(op.CaseSensitive) + " " + b.arg(likePattern(op.Like)) + ")", nil
	case op.NotLike != "":
		return "(" + jsonPath + " IS NOT NULL AND NOT (jsonb_typeof(" + jsonPath + ") = 'string' AND " + textPath + " " + likeOperator(op.CaseSensitive) + " " + b.arg(likePattern(op.NotLike)) + "))", nil
	}
	return "TRUE", nil
}

// compare casts the stored text to the operand's type before comparing
func (b *sqlBuilder) compare(textPath, operator string, value interface{}) string {
	switch value.(type) {
	case int, int32, int64, float32, float64:
		return "(" + textPath + ")::numeric " + operator + " " + b.arg(value)
	case time.Time:
		return "(" + textPath + ")::timestamptz " + operator + " " + b.arg(value)
	}
	return textPath + " " + operator + " " + b.arg(value)
}

func (b *sqlBuilder) containsAny(field string, values []interface{}) (string, error) {
	parts := make([]string, 0, len(values))
	for _, value := range values {
		operand, err := b.jsonArg(field, value)
		if err != nil {
			return "", err
		}
		parts = append(parts, "doc @> "+operand)
	}
	return "(" + strings.Join(parts, " OR ") + ")", nil
}

func (b *sqlBuilder) list(values []interface{}) string {
	placeholders := make([]string, 0, len(values))
	for _, value := range values {
		placeholders = append(placeholders, b.arg(value))
	}
	return strings.Join(placeholders, ", ")
}

// orderBy renders an ORDER BY clause. Rows equal on every key fall back to id order.
func orderBy(orders []interfaces.OrderBy) string {
	parts := make([]string, 0, len(orders)+1)
	hasID := false
	for _, order := range orders {
		direction := "ASC"
		if strings.EqualFold(order.Direction, "desc") {
			direction = "DESC"
		}
		column, ok := systemColumns[order.Field]
		if !ok {
			column = "doc->" + quoteLiteral(order.Field)
		}
		if column == "id" {
			hasID = true
		}
		parts = append(parts, column+" "+direction)
	}
	if !hasID {
		parts = append(parts, "id ASC")
	}
	return "ORDER BY " + strings.Join(parts, ", ")
}

// groupKey renders the expression GroupCount buckets on, plus its not-null guard
func groupKey(field string) (key, notNull string) {
	if column, ok := systemColumns[field]; ok {
		return column + "::text", column + " IS NOT NULL"
	}
	jsonPath := "doc->" + quoteLiteral(field)
	return "doc->>" + quoteLiteral(field), "(" + jsonPath + " IS NOT NULL AND " + jsonPath + " <> 'null'::jsonb)"
}

func likeOperator(caseSensitive *bool) string {
	if caseSensitive != nil && !*caseSensitive {
		return "ILIKE"
	}
	return "LIKE"
}

// likePattern turns a %-delimited pattern into a contains match with LIKE
// metacharacters escaped
func likePattern(pattern string) string {
	pattern = strings.ReplaceAll(pattern, "%", "")
	replacer := strings.NewReplacer(`\`, `\\`, `_`, `\_`)
	return "%" + replacer.Replace(pattern) + "%"
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
