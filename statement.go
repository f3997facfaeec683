package tableops

import (
	"fmt"
	"strings"

	"github.com/openspm/tableops/clause"
	"github.com/openspm/tableops/schema"
)

// Statement accumulates SQL text and its bound values for one execution
type Statement struct {
	DB     *DB
	Schema *schema.Schema

	// SQL Builder
	SQL  strings.Builder
	Vars []interface{}
}

func (db *DB) statement(s *schema.Schema) *Statement {
	return &Statement{DB: db, Schema: s}
}

// WriteString write string
func (stmt *Statement) WriteString(str string) (int, error) {
	return stmt.SQL.WriteString(str)
}

// WriteByte write byte
func (stmt *Statement) WriteByte(c byte) error {
	return stmt.SQL.WriteByte(c)
}

// WriteQuoted write quoted field
func (stmt *Statement) WriteQuoted(field interface{}) {
	stmt.QuoteTo(&stmt.SQL, field)
}

// QuoteTo write quoted value to writer. Plain names resolve through the
// schema, so a field name renders as its column name.
func (stmt *Statement) QuoteTo(writer clause.Writer, field interface{}) {
	switch v := field.(type) {
	case clause.Table:
		if v.Raw {
			writer.WriteString(v.Name)
		} else {
			stmt.DB.Dialector.QuoteTo(writer, v.Name)
		}
	case clause.Column:
		if v.Table != "" {
			stmt.DB.Dialector.QuoteTo(writer, v.Table)
			writer.WriteByte('.')
		}
		if v.Raw {
			writer.WriteString(v.Name)
		} else {
			stmt.DB.Dialector.QuoteTo(writer, stmt.columnName(v.Name))
		}
	case string:
		stmt.DB.Dialector.QuoteTo(writer, stmt.columnName(v))
	default:
		stmt.DB.Dialector.QuoteTo(writer, fmt.Sprint(field))
	}
}

func (stmt *Statement) columnName(name string) string {
	if stmt.Schema != nil {
		if field := stmt.Schema.LookUpField(name); field != nil {
			return field.DBName
		}
	}
	return name
}

// AddVar binds vars, writing the dialect's placeholder for each
func (stmt *Statement) AddVar(writer clause.Writer, vars ...interface{}) {
	for idx, v := range vars {
		if idx > 0 {
			writer.WriteByte(',')
		}

		switch v := v.(type) {
		case clause.Column, clause.Table:
			stmt.QuoteTo(writer, v)
		case clause.Expression:
			v.Build(stmt)
		case []interface{}:
			writer.WriteByte('(')
			stmt.AddVar(writer, v...)
			writer.WriteByte(')')
		default:
			stmt.Vars = append(stmt.Vars, v)
			stmt.DB.Dialector.BindVarTo(writer, len(stmt.Vars))
		}
	}
}

// AddClause renders expr into the statement
func (stmt *Statement) AddClause(expr clause.Expression) {
	if expr != nil {
		expr.Build(stmt)
	}
}
