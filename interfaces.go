package tableops

import (
	"context"
	"database/sql"

	"github.com/openspm/tableops/schema"
)

// Dialector renders SQL for one database and names the driver that talks to it
type Dialector interface {
	schema.Dialect
	DriverName() string
	DataTypeOf(*schema.Field) string
	// TableExistsSQL counts tables named by its single bind variable
	TableExistsSQL() string
	Explain(sql string, vars ...interface{}) string
}

// ErrorTranslator maps driver errors onto the package's sentinel errors
type ErrorTranslator interface {
	Translate(err error) error
}

// ConnPool db conns pool interface
type ConnPool interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Preparer is a ConnPool that can prepare statements
type Preparer interface {
	ConnPool
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// BeforeAddInterface is run on a record before it is inserted
type BeforeAddInterface interface {
	BeforeAdd(*DB) error
}

// BeforeUpdateInterface is run on a record before it is updated
type BeforeUpdateInterface interface {
	BeforeUpdate(*DB) error
}
