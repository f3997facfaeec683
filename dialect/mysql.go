package dialect

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/openspm/tableops/clause"
	"github.com/openspm/tableops/logger"
	"github.com/openspm/tableops/schema"
)

// mysql server error numbers
const (
	mysqlDupEntry          = 1062
	mysqlNoReferencedRow   = 1216
	mysqlRowIsReferenced   = 1217
	mysqlRowIsReferenced2  = 1451
	mysqlNoReferencedRow2  = 1452
	mysqlMaxVarcharLength  = 16383
	mysqlDefaultKeyVarchar = 191
)

// MySQL talks to github.com/go-sql-driver/mysql. DSNs need parseTime=true
// for time columns to scan back as time.Time.
type MySQL struct{}

func (MySQL) Name() string {
	return "mysql"
}

func (MySQL) DriverName() string {
	return "mysql"
}

func (MySQL) QuoteTo(writer clause.Writer, str string) {
	quoteTo(writer, str, '`', '`')
}

func (MySQL) BindVarTo(writer clause.Writer, _ int) {
	writer.WriteByte('?')
}

func (MySQL) IdentityStyle() schema.IdentityStyle {
	return schema.IdentityLastInsertID
}

func (MySQL) Explain(sql string, vars ...interface{}) string {
	return logger.ExplainSQL(sql, nil, `'`, vars...)
}

func (MySQL) TableExistsSQL() string {
	return "SELECT count(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ? AND table_type = 'BASE TABLE'"
}

func (MySQL) DataTypeOf(field *schema.Field) string {
	switch field.DataType {
	case schema.Bool:
		return "boolean"
	case schema.Int, schema.Uint:
		sqlType := "bigint"
		if isSmallInt(field) {
			sqlType = "int"
		}
		if field.DataType == schema.Uint {
			sqlType += " unsigned"
		}
		if field.AutoIncrement {
			sqlType += " AUTO_INCREMENT"
		}
		return sqlType
	case schema.Float:
		if field.Precision > 0 {
			return fmt.Sprintf("decimal(%d, %d)", field.Precision, field.Scale)
		}
		return "double"
	case schema.String:
		size := field.Size
		if size == 0 && (field.PrimaryKey || field.HasDefaultValue) {
			// keys and defaults need a bounded varchar
			size = mysqlDefaultKeyVarchar
		}
		if size > 0 && size <= mysqlMaxVarcharLength {
			return fmt.Sprintf("varchar(%d)", size)
		}
		return "longtext"
	case schema.Time:
		return "datetime(3)"
	case schema.Bytes:
		return "longblob"
	}

	return string(field.DataType)
}

func (MySQL) Translate(err error) error {
	var mysqlErr *mysql.MySQLError
	if !errors.As(err, &mysqlErr) {
		return err
	}

	switch mysqlErr.Number {
	case mysqlDupEntry:
		return duplicated(err)
	case mysqlNoReferencedRow, mysqlRowIsReferenced, mysqlRowIsReferenced2, mysqlNoReferencedRow2:
		return foreignKeyViolated(err)
	}
	return err
}
