package dialect

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/openspm/tableops/clause"
	"github.com/openspm/tableops/logger"
	"github.com/openspm/tableops/schema"
)

// SQLSTATE codes, https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

var numericPlaceholder = regexp.MustCompile(`\$(\d+)`)

// Postgres talks to github.com/jackc/pgx/v5 through its database/sql driver
type Postgres struct{}

func (Postgres) Name() string {
	return "postgres"
}

func (Postgres) DriverName() string {
	return "pgx"
}

func (Postgres) QuoteTo(writer clause.Writer, str string) {
	quoteTo(writer, str, '"', '"')
}

func (Postgres) BindVarTo(writer clause.Writer, n int) {
	writer.WriteByte('$')
	writer.WriteString(strconv.Itoa(n))
}

func (Postgres) IdentityStyle() schema.IdentityStyle {
	return schema.IdentityReturning
}

func (Postgres) Explain(sql string, vars ...interface{}) string {
	return logger.ExplainSQL(sql, numericPlaceholder, `'`, vars...)
}

func (Postgres) TableExistsSQL() string {
	return "SELECT count(*) FROM information_schema.tables WHERE table_schema = CURRENT_SCHEMA() AND table_name = $1 AND table_type = 'BASE TABLE'"
}

func (Postgres) DataTypeOf(field *schema.Field) string {
	switch field.DataType {
	case schema.Bool:
		return "boolean"
	case schema.Int, schema.Uint:
		small := isSmallInt(field)
		if field.AutoIncrement {
			if small {
				return "serial"
			}
			return "bigserial"
		}
		if small {
			return "integer"
		}
		return "bigint"
	case schema.Float:
		if field.Precision > 0 {
			return fmt.Sprintf("numeric(%d, %d)", field.Precision, field.Scale)
		}
		return "double precision"
	case schema.String:
		if field.Size > 0 {
			return fmt.Sprintf("varchar(%d)", field.Size)
		}
		return "text"
	case schema.Time:
		return "timestamptz"
	case schema.Bytes:
		return "bytea"
	}

	return string(field.DataType)
}

func (Postgres) Translate(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgUniqueViolation:
		return duplicated(err)
	case pgForeignKeyViolation:
		return foreignKeyViolated(err)
	}
	return err
}
