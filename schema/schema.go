package schema

import (
	"errors"
	"fmt"
	"go/ast"
	"reflect"
	"sync"
)

// ErrUnsupportedDataType unsupported data type
var ErrUnsupportedDataType = errors.New("unsupported data type")

// Schema is the reflected, read-only description of one model type
type Schema struct {
	Name                    string
	ModelType               reflect.Type
	Table                   string
	PrioritizedPrimaryField *Field
	IdentityField           *Field
	PrimaryFields           []*Field
	InsertFields            []*Field
	UpdateFields            []*Field
	Fields                  []*Field
	FieldsByName            map[string]*Field
	FieldsByDBName          map[string]*Field

	namer     Namer
	templates sync.Map
}

func (schema *Schema) String() string {
	if schema.ModelType.Name() == "" {
		return fmt.Sprintf("%s(%s)", schema.Name, schema.Table)
	}
	return fmt.Sprintf("%s.%s", schema.ModelType.PkgPath(), schema.ModelType.Name())
}

// LookUpField finds a field by column name or field name, ignoring case
func (schema *Schema) LookUpField(name string) *Field {
	folded := foldName(name)
	if field, ok := schema.FieldsByDBName[folded]; ok {
		return field
	}
	if field, ok := schema.FieldsByName[folded]; ok {
		return field
	}
	return nil
}

// HasPrimaryKey reports whether point lookups, updates and deletes are possible
func (schema *Schema) HasPrimaryKey() bool {
	return len(schema.PrimaryFields) > 0
}

// Parse get data type from dialector
func Parse(dest interface{}, cacheStore *sync.Map, namer Namer) (*Schema, error) {
	if dest == nil {
		return nil, fmt.Errorf("%w: %+v", ErrUnsupportedDataType, dest)
	}

	value := reflect.ValueOf(dest)
	if value.Kind() == reflect.Ptr && value.IsNil() {
		value = reflect.New(value.Type().Elem())
	}

	modelType := reflect.Indirect(value).Type()
	if modelType.Kind() == reflect.Interface {
		modelType = reflect.Indirect(value).Elem().Type()
	}

	for modelType.Kind() == reflect.Slice || modelType.Kind() == reflect.Array || modelType.Kind() == reflect.Ptr {
		modelType = modelType.Elem()
	}

	if modelType.Kind() != reflect.Struct {
		if modelType.PkgPath() == "" {
			return nil, fmt.Errorf("%w: %+v", ErrUnsupportedDataType, dest)
		}
		return nil, fmt.Errorf("%w: %s.%s", ErrUnsupportedDataType, modelType.PkgPath(), modelType.Name())
	}

	if v, ok := cacheStore.Load(modelType); ok {
		return v.(*Schema), nil
	}

	modelValue := reflect.New(modelType)
	tableName := namer.TableName(modelType.Name())
	if tabler, ok := modelValue.Interface().(Tabler); ok {
		tableName = tabler.TableName()
	}

	schema := &Schema{
		Name:           modelType.Name(),
		ModelType:      modelType,
		Table:          tableName,
		FieldsByName:   map[string]*Field{},
		FieldsByDBName: map[string]*Field{},
		namer:          namer,
	}

	fields, err := schema.parseFields(modelType, nil)
	if err != nil {
		return nil, err
	}
	schema.Fields = fields

	for _, field := range schema.Fields {
		if field.DBName == "" {
			field.DBName = namer.ColumnName(schema.Table, field.Name)
		}

		dbName := foldName(field.DBName)
		if _, ok := schema.FieldsByDBName[dbName]; ok {
			return nil, fmt.Errorf("duplicated column %s in %s", field.DBName, schema.Name)
		}
		schema.FieldsByDBName[dbName] = field

		if _, ok := schema.FieldsByName[foldName(field.Name)]; !ok {
			schema.FieldsByName[foldName(field.Name)] = field
		}

		if field.PrimaryKey {
			schema.PrimaryFields = append(schema.PrimaryFields, field)
		}
	}

	// a lone integer ID field is the key by convention
	if len(schema.PrimaryFields) == 0 {
		if f := schema.LookUpField("id"); f != nil {
			f.PrimaryKey = true
			if _, ok := f.TagSettings["AUTOINCREMENT"]; !ok && (f.DataType == Int || f.DataType == Uint) {
				f.AutoIncrement = true
			}
			schema.PrimaryFields = append(schema.PrimaryFields, f)
		}
	}

	if len(schema.PrimaryFields) > 0 {
		schema.PrioritizedPrimaryField = schema.PrimaryFields[0]
	}

	for _, field := range schema.Fields {
		if field.AutoIncrement {
			if schema.IdentityField == nil {
				schema.IdentityField = field
			}
		} else {
			schema.InsertFields = append(schema.InsertFields, field)
		}

		if !field.PrimaryKey {
			schema.UpdateFields = append(schema.UpdateFields, field)
		}
	}

	if v, loaded := cacheStore.LoadOrStore(modelType, schema); loaded {
		return v.(*Schema), nil
	}
	return schema, nil
}

// parseFields walks exported fields in declaration order, flattening
// anonymous embedded structs
func (schema *Schema) parseFields(modelType reflect.Type, parentIndex []int) ([]*Field, error) {
	var fields []*Field
	for i := 0; i < modelType.NumField(); i++ {
		fieldStruct := modelType.Field(i)
		fieldStruct.Index = append(append([]int{}, parentIndex...), fieldStruct.Index...)

		if fieldStruct.Anonymous && fieldStruct.Type.Kind() == reflect.Struct && !fieldStruct.Type.ConvertibleTo(TimeReflectType) {
			if fieldStruct.Tag.Get(TagKey) == "-" {
				continue
			}
			embedded, err := schema.parseFields(fieldStruct.Type, fieldStruct.Index)
			if err != nil {
				return nil, err
			}
			for _, ef := range embedded {
				ef.BindNames = append([]string{fieldStruct.Name}, ef.BindNames...)
			}
			fields = append(fields, embedded...)
			continue
		}

		if !ast.IsExported(fieldStruct.Name) {
			continue
		}

		field, err := schema.parseField(fieldStruct)
		if err != nil {
			return nil, err
		}
		if field != nil {
			fields = append(fields, field)
		}
	}
	return fields, nil
}
