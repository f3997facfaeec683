package schema_test

import (
	"strconv"
	"time"

	"github.com/openspm/tableops/clause"
	"github.com/openspm/tableops/schema"
)

type backtickDialect struct{}

func (backtickDialect) Name() string { return "backtick" }

func (backtickDialect) QuoteTo(w clause.Writer, str string) {
	w.WriteByte('`')
	w.WriteString(str)
	w.WriteByte('`')
}

func (backtickDialect) BindVarTo(w clause.Writer, n int) { w.WriteByte('?') }

func (backtickDialect) IdentityStyle() schema.IdentityStyle { return schema.IdentityLastInsertID }

type dollarDialect struct{}

func (dollarDialect) Name() string { return "dollar" }

func (dollarDialect) QuoteTo(w clause.Writer, str string) {
	w.WriteByte('"')
	w.WriteString(str)
	w.WriteByte('"')
}

func (dollarDialect) BindVarTo(w clause.Writer, n int) {
	w.WriteByte('$')
	w.WriteString(strconv.Itoa(n))
}

func (dollarDialect) IdentityStyle() schema.IdentityStyle { return schema.IdentityReturning }

type Audit struct {
	CreatedOn time.Time
	CreatedBy string `db:"size:50;label:Created By"`
}

type Patch struct {
	PatchID    int64  `db:"primaryKey;autoIncrement;label:Patch #"`
	VendorID   int    `db:"required"`
	Title      string `db:"required;size:200"`
	Severity   int    `db:"default:3"`
	ReleasedOn *time.Time
	Notes      string `db:"column:Remarks"`
	Audit
	internal string
	Tags     []string
	Ignored  string `db:"-"`
}

type PatchProduct struct {
	PatchID   int64  `db:"primaryKey"`
	ProductID int64  `db:"primaryKey"`
	Arch      string `db:"size:10"`
}

type Link struct {
	PatchID   int64 `db:"primaryKey"`
	ProductID int64 `db:"primaryKey"`
}

type Vendor struct {
	ID   uint
	Name string
}

type legacyNotice struct {
	Body string
}

func (legacyNotice) TableName() string { return "tblNotice" }
