package tableops

import (
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openspm/tableops/clause"
	"github.com/openspm/tableops/logger"
	"github.com/openspm/tableops/schema"
)

// numberedDialector quotes with double quotes and binds $n
type numberedDialector struct{}

func (numberedDialector) Name() string       { return "numbered" }
func (numberedDialector) DriverName() string { return "numbered" }

func (numberedDialector) QuoteTo(writer clause.Writer, str string) {
	writer.WriteByte('"')
	writer.WriteString(strings.ReplaceAll(str, `"`, `""`))
	writer.WriteByte('"')
}

func (numberedDialector) BindVarTo(writer clause.Writer, n int) {
	writer.WriteByte('$')
	writer.WriteString(strconv.Itoa(n))
}

func (numberedDialector) IdentityStyle() schema.IdentityStyle { return schema.IdentityReturning }
func (numberedDialector) DataTypeOf(*schema.Field) string     { return "text" }
func (numberedDialector) TableExistsSQL() string              { return "" }

func (numberedDialector) Explain(sql string, vars ...interface{}) string {
	return logger.ExplainSQL(sql, regexp.MustCompile(`\$(\d+)`), `'`, vars...)
}

type advisory struct {
	AdvisoryID int64  `db:"primaryKey;column:advisory_id"`
	Vendor     string `db:"column:vendor_name"`
	Score      float64
}

func newStatement(t *testing.T) *Statement {
	t.Helper()

	db := &DB{Config: &Config{NamingStrategy: schema.NamingStrategy{}}, Dialector: numberedDialector{}}
	db.cacheStore = defaultCacheStore
	s, err := db.Parse(&advisory{})
	require.NoError(t, err)
	return db.statement(s)
}

func TestStatementQuoteTo(t *testing.T) {
	stmt := newStatement(t)

	stmt.WriteQuoted("Vendor")
	stmt.WriteByte(',')
	stmt.WriteQuoted("SCORE")
	stmt.WriteByte(',')
	stmt.WriteQuoted("unknown")
	stmt.WriteByte(',')
	stmt.WriteQuoted(clause.Column{Table: "a", Name: "AdvisoryID"})
	stmt.WriteByte(',')
	stmt.WriteQuoted(clause.Column{Name: "max(score)", Raw: true})
	stmt.WriteByte(',')
	stmt.WriteQuoted(clause.Table{Name: `odd"name`})

	assert.Equal(t, `"vendor_name","Score","unknown","a"."advisory_id",max(score),"odd""name"`, stmt.SQL.String())
}

func TestStatementAddVar(t *testing.T) {
	stmt := newStatement(t)

	stmt.AddClause(clause.And(
		clause.Eq{Column: "Vendor", Value: "Oracle"},
		clause.IN{Column: "AdvisoryID", Values: []interface{}{7, 8, 9}},
		clause.Expr{SQL: "? < 10", Vars: []interface{}{clause.Column{Name: "Score"}}},
	))

	assert.Equal(t, `("vendor_name" = $1 AND "advisory_id" IN ($2,$3,$4) AND ("Score" < 10))`, stmt.SQL.String())
	assert.Equal(t, []interface{}{"Oracle", 7, 8, 9}, stmt.Vars)
	assert.Equal(t, `("vendor_name" = 'Oracle' AND "advisory_id" IN (7,8,9) AND ("Score" < 10))`,
		stmt.DB.Dialector.Explain(stmt.SQL.String(), stmt.Vars...))
}
