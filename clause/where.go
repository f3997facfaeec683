package clause

// Where where clause
type Where struct {
	Exprs []Expression
}

// Name where clause name
func (where Where) Name() string {
	return "WHERE"
}

// Build build where clause
func (where Where) Build(builder Builder) {
	buildExprs(where.Exprs, builder, " AND ")
}

func buildExprs(exprs []Expression, builder Builder, joinCond string) {
	for idx, expr := range exprs {
		if idx > 0 {
			builder.WriteString(joinCond)
		}

		// raw SQL keeps its own precedence next to siblings
		if _, raw := expr.(Expr); raw && len(exprs) > 1 {
			builder.WriteByte('(')
			expr.Build(builder)
			builder.WriteByte(')')
		} else {
			expr.Build(builder)
		}
	}
}

// And joins expressions with AND, nil expressions are skipped
func And(exprs ...Expression) Expression {
	exprs = compact(exprs)
	switch len(exprs) {
	case 0:
		return nil
	case 1:
		return exprs[0]
	}
	return AndConditions{Exprs: exprs}
}

type AndConditions struct {
	Exprs []Expression
}

func (and AndConditions) Build(builder Builder) {
	if len(and.Exprs) > 1 {
		builder.WriteByte('(')
		buildExprs(and.Exprs, builder, " AND ")
		builder.WriteByte(')')
	} else {
		buildExprs(and.Exprs, builder, " AND ")
	}
}

// Or joins expressions with OR, nil expressions are skipped
func Or(exprs ...Expression) Expression {
	exprs = compact(exprs)
	switch len(exprs) {
	case 0:
		return nil
	case 1:
		return exprs[0]
	}
	return OrConditions{Exprs: exprs}
}

type OrConditions struct {
	Exprs []Expression
}

func (or OrConditions) Build(builder Builder) {
	if len(or.Exprs) > 1 {
		builder.WriteByte('(')
		buildExprs(or.Exprs, builder, " OR ")
		builder.WriteByte(')')
	} else {
		buildExprs(or.Exprs, builder, " OR ")
	}
}

// Not negates every expression and joins them with AND
func Not(exprs ...Expression) Expression {
	exprs = compact(exprs)
	if len(exprs) == 0 {
		return nil
	}
	return NotConditions{Exprs: exprs}
}

type NotConditions struct {
	Exprs []Expression
}

func (not NotConditions) Build(builder Builder) {
	if len(not.Exprs) > 1 {
		builder.WriteByte('(')
	}

	for idx, c := range not.Exprs {
		if idx > 0 {
			builder.WriteString(" AND ")
		}

		if negationBuilder, ok := c.(NegationExpressionBuilder); ok {
			negationBuilder.NegationBuild(builder)
		} else {
			builder.WriteString("NOT (")
			c.Build(builder)
			builder.WriteByte(')')
		}
	}

	if len(not.Exprs) > 1 {
		builder.WriteByte(')')
	}
}

func compact(exprs []Expression) []Expression {
	result := exprs[:0:0]
	for _, expr := range exprs {
		if expr != nil {
			result = append(result, expr)
		}
	}
	return result
}
