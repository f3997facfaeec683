package tableops

import (
	"fmt"
	"strings"

	"github.com/openspm/tableops/clause"
)

// Restriction is an immutable WHERE fragment. The zero value restricts nothing.
type Restriction struct {
	expr clause.Expression
}

// Where combines exprs with AND
func Where(exprs ...clause.Expression) Restriction {
	return Restriction{expr: clause.And(exprs...)}
}

// Raw builds a restriction from SQL text with '?' placeholders, one per value
func Raw(sql string, vars ...interface{}) (Restriction, error) {
	if n := strings.Count(sql, "?"); n != len(vars) {
		return Restriction{}, fmt.Errorf("%w: %q has %d placeholders, got %d values", ErrPlaceholderMismatch, sql, n, len(vars))
	}
	if strings.TrimSpace(sql) == "" {
		return Restriction{}, nil
	}
	return Restriction{expr: clause.Expr{SQL: sql, Vars: append([]interface{}(nil), vars...)}}, nil
}

// And returns a restriction matching both r and others
func (r Restriction) And(others ...Restriction) Restriction {
	exprs := []clause.Expression{r.expr}
	for _, other := range others {
		exprs = append(exprs, other.expr)
	}
	return Restriction{expr: clause.And(exprs...)}
}

// IsZero reports whether r restricts nothing
func (r Restriction) IsZero() bool {
	return r.expr == nil
}

// Expression returns the underlying expression, nil for the zero value
func (r Restriction) Expression() clause.Expression {
	return r.expr
}

func combine(restrictions []Restriction) Restriction {
	switch len(restrictions) {
	case 0:
		return Restriction{}
	case 1:
		return restrictions[0]
	}
	return restrictions[0].And(restrictions[1:]...)
}
