package dialect

import (
	"errors"
	"strings"

	"modernc.org/sqlite"

	"github.com/openspm/tableops/clause"
	"github.com/openspm/tableops/logger"
	"github.com/openspm/tableops/schema"
)

// sqlite extended result codes
const (
	sqliteConstraint           = 19
	sqliteConstraintForeignKey = 787
	sqliteConstraintPrimaryKey = 1555
	sqliteConstraintUnique     = 2067
)

// SQLite talks to modernc.org/sqlite
type SQLite struct{}

func (SQLite) Name() string {
	return "sqlite"
}

func (SQLite) DriverName() string {
	return "sqlite"
}

func (SQLite) QuoteTo(writer clause.Writer, str string) {
	quoteTo(writer, str, '`', '`')
}

func (SQLite) BindVarTo(writer clause.Writer, _ int) {
	writer.WriteByte('?')
}

func (SQLite) IdentityStyle() schema.IdentityStyle {
	return schema.IdentityLastInsertID
}

func (SQLite) Explain(sql string, vars ...interface{}) string {
	return logger.ExplainSQL(sql, nil, `'`, vars...)
}

func (SQLite) TableExistsSQL() string {
	return "SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?"
}

func (SQLite) DataTypeOf(field *schema.Field) string {
	switch field.DataType {
	case schema.Bool:
		return "numeric"
	case schema.Int, schema.Uint:
		if soleIdentity(field) {
			// https://www.sqlite.org/autoinc.html
			return "integer PRIMARY KEY AUTOINCREMENT"
		}
		return "integer"
	case schema.Float:
		return "real"
	case schema.String:
		return "text"
	case schema.Time:
		return "datetime"
	case schema.Bytes:
		return "blob"
	}

	return string(field.DataType)
}

func (SQLite) Translate(err error) error {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}

	switch sqliteErr.Code() {
	case sqliteConstraintUnique, sqliteConstraintPrimaryKey:
		return duplicated(err)
	case sqliteConstraintForeignKey:
		return foreignKeyViolated(err)
	case sqliteConstraint:
		// connections without extended result codes only say which constraint in the message
		msg := sqliteErr.Error()
		switch {
		case strings.Contains(msg, "UNIQUE"), strings.Contains(msg, "PRIMARY KEY"):
			return duplicated(err)
		case strings.Contains(msg, "FOREIGN KEY"):
			return foreignKeyViolated(err)
		}
	}
	return err
}
