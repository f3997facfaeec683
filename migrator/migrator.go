// Package migrator creates and drops the tables of model types from their
// reflected schema.
package migrator

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/openspm/tableops"
	"github.com/openspm/tableops/schema"
)

// Migrator migrator struct
type Migrator struct {
	DB *tableops.DB
}

// New returns a migrator running its statements on db
func New(db *tableops.DB) Migrator {
	return Migrator{DB: db}
}

func (m Migrator) quote(name string) string {
	var b strings.Builder
	m.DB.Dialector.QuoteTo(&b, name)
	return b.String()
}

// CreateTableSQL renders the CREATE TABLE statement of model
func (m Migrator) CreateTableSQL(model interface{}) (string, error) {
	s, err := m.DB.Parse(model)
	if err != nil {
		return "", err
	}

	var (
		columns     = make([]string, 0, len(s.Fields)+1)
		primaryKeys = make([]string, 0, len(s.PrimaryFields))
		inlineKey   bool
	)
	for _, field := range s.Fields {
		column, inline := m.columnDefinition(field)
		columns = append(columns, column)
		inlineKey = inlineKey || inline
	}

	if !inlineKey {
		for _, field := range s.PrimaryFields {
			primaryKeys = append(primaryKeys, m.quote(field.DBName))
		}
		if len(primaryKeys) > 0 {
			columns = append(columns, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(primaryKeys, ",")))
		}
	}

	return fmt.Sprintf("CREATE TABLE %s (%s)", m.quote(s.Table), strings.Join(columns, ",")), nil
}

// columnDefinition returns the column DDL and whether its type already
// declares the primary key
func (m Migrator) columnDefinition(field *schema.Field) (string, bool) {
	dataType := m.DB.Dialector.DataTypeOf(field)
	if strings.Contains(strings.ToUpper(dataType), "PRIMARY KEY") {
		return m.quote(field.DBName) + " " + dataType, true
	}

	var b strings.Builder
	b.WriteString(m.quote(field.DBName))
	b.WriteByte(' ')
	b.WriteString(dataType)
	if field.PrimaryKey || field.Required {
		b.WriteString(" NOT NULL")
	}
	if field.HasDefaultValue && field.DefaultValue != "" {
		b.WriteString(" DEFAULT ")
		b.WriteString(defaultValue(field))
	}
	return b.String(), false
}

// defaultValue quotes string defaults that are not already literals or calls
func defaultValue(field *schema.Field) string {
	value := field.DefaultValue
	if field.DataType != schema.String || strings.HasPrefix(value, "'") || strings.HasSuffix(value, ")") {
		return value
	}
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// CreateTable creates the table of every model, failures do not stop the rest
func (m Migrator) CreateTable(ctx context.Context, models ...interface{}) error {
	var errs error
	for _, model := range models {
		sql, err := m.CreateTableSQL(model)
		if err == nil {
			_, err = m.DB.Exec(ctx, sql)
		}
		errs = multierr.Append(errs, err)
	}
	return errs
}

// DropTable drops the table of every model when it exists
func (m Migrator) DropTable(ctx context.Context, models ...interface{}) error {
	var errs error
	for _, model := range models {
		s, err := m.DB.Parse(model)
		if err == nil {
			_, err = m.DB.Exec(ctx, "DROP TABLE IF EXISTS "+m.quote(s.Table))
		}
		errs = multierr.Append(errs, err)
	}
	return errs
}

// HasTable reports whether the table of model exists
func (m Migrator) HasTable(ctx context.Context, model interface{}) (bool, error) {
	s, err := m.DB.Parse(model)
	if err != nil {
		return false, err
	}

	count, err := m.DB.Count(ctx, m.DB.Dialector.TableExistsSQL(), s.Table)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// AutoMigrate creates the tables that do not exist yet
func (m Migrator) AutoMigrate(ctx context.Context, models ...interface{}) error {
	var errs error
	for _, model := range models {
		exists, err := m.HasTable(ctx, model)
		if err == nil && !exists {
			err = m.CreateTable(ctx, model)
		}
		errs = multierr.Append(errs, err)
	}
	return errs
}
