package orm

import (
	"fmt"
	"strings"
)

// Condition is one WHERE term. Conditions are immutable once appended
// and combined with AND in insertion order.
type Condition struct {
	Column   string
	Operator string
	Value    any
	Values   []any
}

// OrderClause is one ORDER BY term.
type OrderClause struct {
	Column    string
	Direction string
}

const (
	opEq        = "="
	opNe        = "!="
	opGt        = ">"
	opLt        = "<"
	opGe        = ">="
	opLe        = "<="
	opLike      = "like"
	opILike     = "ilike"
	opIn        = "in"
	opNotIn     = "not in"
	opIsNull    = "is null"
	opIsNotNull = "is not null"
)

var operators = map[string]string{
	"=":           opEq,
	"!=":          opNe,
	"<>":          opNe,
	">":           opGt,
	"<":           opLt,
	">=":          opGe,
	"<=":          opLe,
	"like":        opLike,
	"ilike":       opILike,
	"in":          opIn,
	"not in":      opNotIn,
	"is null":     opIsNull,
	"is not null": opIsNotNull,
}

func normalizeOperator(op string) (string, error) {
	normalized, ok := operators[strings.ToLower(op)]
	if !ok {
		return "", invalidOperator(op)
	}
	return normalized, nil
}

// render emits the SQL fragment for a condition, consuming placeholder
// numbers from n.
func (c Condition) render(n *int, args *[]any) string {
	switch c.Operator {
	case opIsNull:
		return c.Column + " IS NULL"
	case opIsNotNull:
		return c.Column + " IS NOT NULL"
	case opIn, opNotIn:
		if len(c.Values) == 0 {
			// Empty IN matches nothing; empty NOT IN matches everything.
			if c.Operator == opIn {
				return "1 = 0"
			}
			return "1 = 1"
		}
		holders := make([]string, len(c.Values))
		for i, v := range c.Values {
			*n++
			holders[i] = fmt.Sprintf("$%d", *n)
			*args = append(*args, v)
		}
		kw := "IN"
		if c.Operator == opNotIn {
			kw = "NOT IN"
		}
		return fmt.Sprintf("%s %s (%s)", c.Column, kw, strings.Join(holders, ", "))
	case opLike:
		*n++
		*args = append(*args, c.Value)
		return fmt.Sprintf("%s LIKE $%d", c.Column, *n)
	case opILike:
		*n++
		*args = append(*args, c.Value)
		return fmt.Sprintf("%s ILIKE $%d", c.Column, *n)
	default:
		*n++
		*args = append(*args, c.Value)
		return fmt.Sprintf("%s %s $%d", c.Column, c.Operator, *n)
	}
}

func renderConditions(conds []Condition, n *int, args *[]any) string {
	if len(conds) == 0 {
		return ""
	}
	parts := make([]string, len(conds))
	for i, c := range conds {
		parts[i] = c.render(n, args)
	}
	return " WHERE " + strings.Join(parts, " AND ")
}
