package dialect

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	mssql "github.com/microsoft/go-mssqldb"

	"github.com/openspm/tableops/clause"
	"github.com/openspm/tableops/logger"
	"github.com/openspm/tableops/schema"
)

// sql server error numbers
const (
	mssqlConstraintViolation = 547
	mssqlUniqueIndex         = 2601
	mssqlUniqueConstraint    = 2627
	mssqlMaxNvarcharLength   = 4000
	mssqlDefaultKeyNvarchar  = 256
)

var atPlaceholder = regexp.MustCompile(`@p(\d+)`)

// SQLServer talks to github.com/microsoft/go-mssqldb
type SQLServer struct{}

func (SQLServer) Name() string {
	return "sqlserver"
}

func (SQLServer) DriverName() string {
	return "sqlserver"
}

func (SQLServer) QuoteTo(writer clause.Writer, str string) {
	quoteTo(writer, str, '[', ']')
}

func (SQLServer) BindVarTo(writer clause.Writer, n int) {
	writer.WriteString("@p")
	writer.WriteString(strconv.Itoa(n))
}

func (SQLServer) IdentityStyle() schema.IdentityStyle {
	return schema.IdentityOutput
}

func (SQLServer) Explain(sql string, vars ...interface{}) string {
	return logger.ExplainSQL(sql, atPlaceholder, `'`, vars...)
}

func (SQLServer) TableExistsSQL() string {
	return "SELECT count(*) FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_NAME = @p1 AND TABLE_TYPE = 'BASE TABLE'"
}

func (SQLServer) DataTypeOf(field *schema.Field) string {
	switch field.DataType {
	case schema.Bool:
		return "bit"
	case schema.Int, schema.Uint:
		sqlType := "bigint"
		if isSmallInt(field) {
			sqlType = "int"
		}
		if field.AutoIncrement {
			sqlType += " IDENTITY(1,1)"
		}
		return sqlType
	case schema.Float:
		if field.Precision > 0 {
			return fmt.Sprintf("decimal(%d, %d)", field.Precision, field.Scale)
		}
		return "float"
	case schema.String:
		size := field.Size
		if size == 0 && field.PrimaryKey {
			size = mssqlDefaultKeyNvarchar
		}
		if size > 0 && size <= mssqlMaxNvarcharLength {
			return fmt.Sprintf("nvarchar(%d)", size)
		}
		return "nvarchar(MAX)"
	case schema.Time:
		return "datetimeoffset"
	case schema.Bytes:
		return "varbinary(MAX)"
	}

	return string(field.DataType)
}

func (SQLServer) Translate(err error) error {
	var mssqlErr mssql.Error
	if !errors.As(err, &mssqlErr) {
		return err
	}

	switch mssqlErr.Number {
	case mssqlUniqueConstraint, mssqlUniqueIndex:
		return duplicated(err)
	case mssqlConstraintViolation:
		return foreignKeyViolated(err)
	}
	return err
}
