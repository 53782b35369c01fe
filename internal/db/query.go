package db

import (
	"fmt"
	"regexp"
	"strings"
)

// Op is a filter comparison
type Op string

const (
	OpEq  Op = "=="
	OpNe  Op = "!="
	OpLt  Op = "<"
	OpLte Op = "<="
	OpGt  Op = ">"
	OpGte Op = ">="
)

var sqlOps = map[Op]string{
	OpEq:  "=",
	OpNe:  "!=",
	OpLt:  "<",
	OpLte: "<=",
	OpGt:  ">",
	OpGte: ">=",
}

// Filter restricts a query to documents whose field compares true against
// Value. A nil Value with OpEq matches a null or absent field.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Where builds a Filter
func Where(field string, op Op, value any) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

// Order sorts a query by a field
type Order struct {
	Field string
	Desc  bool
}

// Query selects and orders documents in a collection. Ties left after
// OrderBy are broken by store insertion order.
type Query struct {
	Filters []Filter
	OrderBy []Order
	Limit   int
}

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validField(name string) bool {
	return fieldPattern.MatchString(name)
}

// jsonPath returns the json_extract expression for field. Field names are
// validated identifiers, so they can be inlined.
func jsonPath(field string) string {
	return fmt.Sprintf("json_extract(data, '$.%s')", field)
}

// filterClause renders one filter as SQL, appending its argument
func filterClause(f Filter, args []any) (string, []any, error) {
	if !validField(f.Field) {
		return "", nil, fmt.Errorf("%w: field name %q", ErrInvalidQuery, f.Field)
	}
	op := f.Op
	if op == "" {
		op = OpEq
	}
	sqlOp, ok := sqlOps[op]
	if !ok {
		return "", nil, fmt.Errorf("%w: operator %q", ErrInvalidQuery, f.Op)
	}
	if f.Value == nil {
		switch op {
		case OpEq:
			return jsonPath(f.Field) + " IS NULL", args, nil
		case OpNe:
			return jsonPath(f.Field) + " IS NOT NULL", args, nil
		}
		return "", nil, fmt.Errorf("%w: nil value with %q", ErrInvalidQuery, op)
	}
	return fmt.Sprintf("%s %s ?", jsonPath(f.Field), sqlOp), append(args, normalize(f.Value, zeroTime)), nil
}

func buildQuery(collection string, q Query) (string, []any, error) {
	var sb strings.Builder
	args := []any{collection}

	sb.WriteString("SELECT id, seq, data FROM documents WHERE collection = ?")
	for _, f := range q.Filters {
		clause, next, err := filterClause(f, args)
		if err != nil {
			return "", nil, err
		}
		args = next
		sb.WriteString(" AND ")
		sb.WriteString(clause)
	}

	sb.WriteString(" ORDER BY ")
	for _, o := range q.OrderBy {
		if !validField(o.Field) {
			return "", nil, fmt.Errorf("%w: order field %q", ErrInvalidQuery, o.Field)
		}
		sb.WriteString(jsonPath(o.Field))
		if o.Desc {
			sb.WriteString(" DESC, ")
		} else {
			sb.WriteString(" ASC, ")
		}
	}
	sb.WriteString("seq ASC")

	if q.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, q.Limit)
	}
	return sb.String(), args, nil
}
