package schema

import (
	"strings"

	"github.com/openspm/tableops/clause"
)

// IdentityStyle is how a dialect hands back a database-assigned key
type IdentityStyle int

const (
	// IdentityLastInsertID reads sql.Result.LastInsertId
	IdentityLastInsertID IdentityStyle = iota
	// IdentityReturning appends RETURNING <column> to the INSERT
	IdentityReturning
	// IdentityOutput adds OUTPUT INSERTED.<column> before VALUES
	IdentityOutput
)

// Dialect renders identifiers and positional bind variables for one database
type Dialect interface {
	Name() string
	QuoteTo(clause.Writer, string)
	// BindVarTo writes the n-th (1-based) bind variable
	BindVarTo(writer clause.Writer, n int)
	IdentityStyle() IdentityStyle
}

// Templates are the precomputed statements for one model on one dialect.
// OrderBy and OrderByWhere are format strings: the WHERE fragment (when
// present) then the ORDER BY column list go into their %s verbs.
type Templates struct {
	Count        string
	OrderBy      string
	OrderByWhere string
	SelectByKey  string
	Insert       string
	Update       string
	Delete       string

	// InsertReturnsIdentity means Insert must be queried for the new key
	InsertReturnsIdentity bool
	// SelectColumns is the scan order of SelectByKey
	SelectColumns []*Field
}

// Templates returns the statements for dialect d, building them on first use
func (schema *Schema) Templates(d Dialect) *Templates {
	if v, ok := schema.templates.Load(d.Name()); ok {
		return v.(*Templates)
	}

	v, _ := schema.templates.LoadOrStore(d.Name(), schema.buildTemplates(d))
	return v.(*Templates)
}

func (schema *Schema) buildTemplates(d Dialect) *Templates {
	var (
		t     = &Templates{SelectColumns: schema.Fields}
		table = quote(d, schema.Table)
		keys  = quotedList(d, schema.PrimaryFields)
	)

	t.Count = "SELECT COUNT(*) FROM " + table
	if len(schema.PrimaryFields) > 0 {
		t.OrderBy = "SELECT " + escapeVerb(keys) + " FROM " + escapeVerb(table) + " ORDER BY %s"
		t.OrderByWhere = "SELECT " + escapeVerb(keys) + " FROM " + escapeVerb(table) + " WHERE %s ORDER BY %s"

		var b strings.Builder
		b.WriteString("SELECT ")
		b.WriteString(quotedList(d, schema.Fields))
		b.WriteString(" FROM ")
		b.WriteString(table)
		b.WriteString(" WHERE ")
		writeKeyConditions(&b, d, schema.PrimaryFields, 1)
		t.SelectByKey = b.String()
	}

	{
		var b strings.Builder
		b.WriteString("INSERT INTO ")
		b.WriteString(table)

		identity := schema.IdentityField
		style := d.IdentityStyle()
		if len(schema.InsertFields) == 0 {
			if identity != nil && style == IdentityOutput {
				b.WriteString(" OUTPUT INSERTED.")
				d.QuoteTo(&b, identity.DBName)
			}
			b.WriteString(" DEFAULT VALUES")
		} else {
			b.WriteString(" (")
			b.WriteString(quotedList(d, schema.InsertFields))
			b.WriteByte(')')
			if identity != nil && style == IdentityOutput {
				b.WriteString(" OUTPUT INSERTED.")
				d.QuoteTo(&b, identity.DBName)
			}
			b.WriteString(" VALUES (")
			for idx := range schema.InsertFields {
				if idx > 0 {
					b.WriteByte(',')
				}
				d.BindVarTo(&b, idx+1)
			}
			b.WriteByte(')')
		}

		if identity != nil && style == IdentityReturning {
			b.WriteString(" RETURNING ")
			d.QuoteTo(&b, identity.DBName)
		}
		t.Insert = b.String()
		t.InsertReturnsIdentity = identity != nil && style != IdentityLastInsertID
	}

	if len(schema.PrimaryFields) > 0 && len(schema.UpdateFields) > 0 {
		var b strings.Builder
		b.WriteString("UPDATE ")
		b.WriteString(table)
		b.WriteString(" SET ")
		for idx, field := range schema.UpdateFields {
			if idx > 0 {
				b.WriteByte(',')
			}
			d.QuoteTo(&b, field.DBName)
			b.WriteByte('=')
			d.BindVarTo(&b, idx+1)
		}
		b.WriteString(" WHERE ")
		writeKeyConditions(&b, d, schema.PrimaryFields, len(schema.UpdateFields)+1)
		t.Update = b.String()
	}

	if len(schema.PrimaryFields) > 0 {
		var b strings.Builder
		b.WriteString("DELETE FROM ")
		b.WriteString(table)
		b.WriteString(" WHERE ")
		writeKeyConditions(&b, d, schema.PrimaryFields, 1)
		t.Delete = b.String()
	}

	return t
}

func writeKeyConditions(b *strings.Builder, d Dialect, keys []*Field, firstVar int) {
	for idx, field := range keys {
		if idx > 0 {
			b.WriteString(" AND ")
		}
		d.QuoteTo(b, field.DBName)
		b.WriteString(" = ")
		d.BindVarTo(b, firstVar+idx)
	}
}

func quote(d Dialect, name string) string {
	var b strings.Builder
	d.QuoteTo(&b, name)
	return b.String()
}

func quotedList(d Dialect, fields []*Field) string {
	var b strings.Builder
	for idx, field := range fields {
		if idx > 0 {
			b.WriteByte(',')
		}
		d.QuoteTo(&b, field.DBName)
	}
	return b.String()
}

// identifiers may legally contain '%', which must survive Sprintf
func escapeVerb(s string) string {
	return strings.ReplaceAll(s, "%", "%%")
}
