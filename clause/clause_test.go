package clause_test

import (
	"strings"

	"github.com/openspm/tableops/clause"
)

type testBuilder struct {
	strings.Builder
	Vars []interface{}
}

func (b *testBuilder) WriteQuoted(field interface{}) {
	switch v := field.(type) {
	case clause.Column:
		if v.Raw {
			b.WriteString(v.Name)
			return
		}
		if v.Table != "" {
			b.WriteString("`" + v.Table + "`.")
		}
		b.WriteString("`" + v.Name + "`")
	case string:
		b.WriteString("`" + v + "`")
	}
}

func (b *testBuilder) AddVar(w clause.Writer, vars ...interface{}) {
	for idx, v := range vars {
		if idx > 0 {
			w.WriteByte(',')
		}
		if expr, ok := v.(clause.Expression); ok {
			expr.Build(b)
			continue
		}
		b.Vars = append(b.Vars, v)
		w.WriteByte('?')
	}
}

func build(expr clause.Expression) (string, []interface{}) {
	b := &testBuilder{}
	expr.Build(b)
	return b.String(), b.Vars
}
