// Package dialect holds the Dialector of each supported database: how it
// quotes identifiers, numbers bind variables, types columns and reports
// constraint violations.
package dialect

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/openspm/tableops"
	"github.com/openspm/tableops/clause"
	"github.com/openspm/tableops/schema"
)

var dialectors = map[string]func() tableops.Dialector{
	"sqlite":    func() tableops.Dialector { return SQLite{} },
	"mysql":     func() tableops.Dialector { return MySQL{} },
	"postgres":  func() tableops.Dialector { return Postgres{} },
	"sqlserver": func() tableops.Dialector { return SQLServer{} },
}

// aliases accepted by New
var aliases = map[string]string{
	"sqlite3":    "sqlite",
	"postgresql": "postgres",
	"pgx":        "postgres",
	"mssql":      "sqlserver",
}

// New returns the dialector registered under name
func New(name string) (tableops.Dialector, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if alias, ok := aliases[name]; ok {
		name = alias
	}
	if fc, ok := dialectors[name]; ok {
		return fc(), nil
	}
	return nil, fmt.Errorf("unsupported dialect %q, expected one of %s", name, strings.Join(Names(), ", "))
}

// Names lists the registered dialect names
func Names() []string {
	names := make([]string, 0, len(dialectors))
	for name := range dialectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open opens a DB for the named dialect
func Open(name, dsn string, opts ...tableops.Option) (*tableops.DB, error) {
	dialector, err := New(name)
	if err != nil {
		return nil, err
	}
	return tableops.Open(dialector, dsn, opts...)
}

// quoteTo writes every dot-separated part of str between open and close,
// doubling close inside a part
func quoteTo(writer clause.Writer, str string, open, close byte) {
	for idx, part := range strings.Split(str, ".") {
		if idx > 0 {
			writer.WriteByte('.')
		}
		writer.WriteByte(open)
		for i := 0; i < len(part); i++ {
			if part[i] == close {
				writer.WriteByte(close)
			}
			writer.WriteByte(part[i])
		}
		writer.WriteByte(close)
	}
}

// isSmallInt reports whether field fits a 32-bit column
func isSmallInt(field *schema.Field) bool {
	switch field.IndirectFieldType.Kind() {
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Uint8, reflect.Uint16:
		return true
	}
	return false
}

// soleIdentity reports whether field is the table's single, database-assigned key
func soleIdentity(field *schema.Field) bool {
	return field.AutoIncrement && field.PrimaryKey && len(field.Schema.PrimaryFields) == 1
}

func duplicated(err error) error {
	return fmt.Errorf("%w: %w", tableops.ErrDuplicatedKey, err)
}

func foreignKeyViolated(err error) error {
	return fmt.Errorf("%w: %w", tableops.ErrForeignKeyViolated, err)
}
