package schema

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/jinzhu/now"

	"github.com/openspm/tableops/utils"
)

type DataType string

var TimeReflectType = reflect.TypeOf(time.Time{})

const (
	Bool   DataType = "bool"
	Int    DataType = "int"
	Uint   DataType = "uint"
	Float  DataType = "float"
	String DataType = "string"
	Time   DataType = "time"
	Bytes  DataType = "bytes"
)

// Field is the reflected metadata of one mapped column
type Field struct {
	Name              string
	DBName            string
	Label             string
	BindNames         []string
	DataType          DataType
	PrimaryKey        bool
	AutoIncrement     bool
	Required          bool
	Size              int
	Precision         int
	Scale             int
	HasDefaultValue   bool
	DefaultValue      string
	FieldType         reflect.Type
	IndirectFieldType reflect.Type
	StructField       reflect.StructField
	Tag               reflect.StructTag
	TagSettings       map[string]string
	Schema            *Schema

	// ReflectValueOf returns the addressable field value of a struct value
	ReflectValueOf func(reflect.Value) reflect.Value
	// ValueOf returns the field value and whether it is zero
	ValueOf func(reflect.Value) (value interface{}, zero bool)
	// Set assigns v to the field, converting between compatible kinds
	Set func(reflect.Value, interface{}) error
}

// parseField reads the tag settings of one struct field. It returns nil for
// ignored fields and for fields whose type cannot map to a column.
func (schema *Schema) parseField(fieldStruct reflect.StructField) (*Field, error) {
	field := &Field{
		Name:              fieldStruct.Name,
		Label:             fieldStruct.Name,
		BindNames:         []string{fieldStruct.Name},
		FieldType:         fieldStruct.Type,
		IndirectFieldType: fieldStruct.Type,
		StructField:       fieldStruct,
		Tag:               fieldStruct.Tag,
		TagSettings:       ParseTagSetting(fieldStruct.Tag.Get(TagKey), ";"),
		Schema:            schema,
	}

	if _, ok := field.TagSettings["-"]; ok {
		return nil, nil
	}

	for field.IndirectFieldType.Kind() == reflect.Ptr {
		field.IndirectFieldType = field.IndirectFieldType.Elem()
	}

	if dbName, ok := field.TagSettings["COLUMN"]; ok {
		field.DBName = dbName
	}

	if label, ok := field.TagSettings["LABEL"]; ok && label != "LABEL" {
		field.Label = label
	}

	if val, ok := field.TagSettings["PRIMARYKEY"]; ok && utils.CheckTruth(val) {
		field.PrimaryKey = true
	} else if val, ok := field.TagSettings["PRIMARY_KEY"]; ok && utils.CheckTruth(val) {
		field.PrimaryKey = true
	}

	if val, ok := field.TagSettings["AUTOINCREMENT"]; ok && utils.CheckTruth(val) {
		field.AutoIncrement = true
	} else if val, ok := field.TagSettings["IDENTITY"]; ok && utils.CheckTruth(val) {
		field.AutoIncrement = true
	}

	if val, ok := field.TagSettings["REQUIRED"]; ok && utils.CheckTruth(val) {
		field.Required = true
	} else if val, ok := field.TagSettings["NOT NULL"]; ok && utils.CheckTruth(val) {
		field.Required = true
	}

	if v, ok := field.TagSettings["DEFAULT"]; ok {
		field.HasDefaultValue = true
		field.DefaultValue = v
	}

	var err error
	if num, ok := field.TagSettings["SIZE"]; ok {
		if field.Size, err = strconv.Atoi(num); err != nil {
			return nil, fmt.Errorf("invalid size %q on field %s.%s: %w", num, schema.Name, field.Name, err)
		}
	}

	if p, ok := field.TagSettings["PRECISION"]; ok {
		if field.Precision, err = strconv.Atoi(p); err != nil {
			return nil, fmt.Errorf("invalid precision %q on field %s.%s: %w", p, schema.Name, field.Name, err)
		}
	}

	if s, ok := field.TagSettings["SCALE"]; ok {
		if field.Scale, err = strconv.Atoi(s); err != nil {
			return nil, fmt.Errorf("invalid scale %q on field %s.%s: %w", s, schema.Name, field.Name, err)
		}
	}

	field.DataType = dataTypeOf(field.IndirectFieldType)
	if field.DataType == "" {
		return nil, nil
	}

	if val, ok := field.TagSettings["TYPE"]; ok {
		field.DataType = DataType(strings.ToLower(val))
	}

	field.setupValuerAndSetter()
	return field, nil
}

func dataTypeOf(fieldType reflect.Type) DataType {
	fieldValue := reflect.New(fieldType)
	if fieldType.ConvertibleTo(TimeReflectType) {
		return Time
	}

	if valuer, ok := fieldValue.Interface().(driver.Valuer); ok {
		if v, err := valuer.Value(); err == nil && v != nil {
			if dt := dataTypeOf(reflect.TypeOf(v)); dt != "" {
				return dt
			}
		}
		if _, ok := fieldValue.Interface().(sql.Scanner); ok {
			return nullableDataType(fieldType)
		}
	}

	switch fieldType.Kind() {
	case reflect.Bool:
		return Bool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Uint
	case reflect.Float32, reflect.Float64:
		return Float
	case reflect.String:
		return String
	case reflect.Array, reflect.Slice:
		if fieldType.Elem().Kind() == reflect.Uint8 {
			return Bytes
		}
	}
	return ""
}

// sql.NullX wrappers report a nil driver value when unset, so read the
// data type off their first field instead
func nullableDataType(fieldType reflect.Type) DataType {
	if fieldType.Kind() == reflect.Struct && fieldType.NumField() > 0 {
		if dt := dataTypeOf(fieldType.Field(0).Type); dt != "" {
			return dt
		}
	}
	return String
}

// create valuer, setter when parse struct
func (field *Field) setupValuerAndSetter() {
	index := field.StructField.Index

	field.ReflectValueOf = func(value reflect.Value) reflect.Value {
		return reflect.Indirect(value).FieldByIndex(index)
	}

	field.ValueOf = func(value reflect.Value) (interface{}, bool) {
		fieldValue := field.ReflectValueOf(value)
		return fieldValue.Interface(), fieldValue.IsZero()
	}

	field.Set = func(value reflect.Value, v interface{}) error {
		if err := assign(field.ReflectValueOf(value), v); err != nil {
			return fmt.Errorf("failed to set value %#v to field %s: %w", v, field.Name, err)
		}
		return nil
	}
}

func assign(dst reflect.Value, v interface{}) error {
	if v == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}

	src := reflect.ValueOf(v)
	if src.Type().AssignableTo(dst.Type()) {
		dst.Set(src)
		return nil
	}

	if dst.Kind() == reflect.Ptr {
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		return assign(dst.Elem(), v)
	}

	if src.Kind() == reflect.Ptr {
		if src.IsNil() {
			dst.Set(reflect.Zero(dst.Type()))
			return nil
		}
		return assign(dst, src.Elem().Interface())
	}

	if dst.CanAddr() {
		if scanner, ok := dst.Addr().Interface().(sql.Scanner); ok {
			return scanner.Scan(v)
		}
	}

	if dst.Type().ConvertibleTo(TimeReflectType) {
		var s string
		switch data := v.(type) {
		case string:
			s = data
		case []byte:
			s = string(data)
		default:
			return fmt.Errorf("unsupported time source %T", v)
		}
		t, err := now.Parse(s)
		if err != nil {
			return err
		}
		dst.Set(reflect.ValueOf(t).Convert(dst.Type()))
		return nil
	}

	switch kind := dst.Kind(); {
	case isIntKind(kind):
		var n int64
		switch {
		case isIntKind(src.Kind()):
			n = src.Int()
		case isUintKind(src.Kind()):
			n = int64(src.Uint())
		case src.Kind() == reflect.Float32 || src.Kind() == reflect.Float64:
			n = int64(src.Float())
		case src.Kind() == reflect.String:
			parsed, err := strconv.ParseInt(strings.TrimSpace(src.String()), 0, 64)
			if err != nil {
				return err
			}
			n = parsed
		case src.Kind() == reflect.Bool:
			if src.Bool() {
				n = 1
			}
		default:
			return fmt.Errorf("unsupported source %T", v)
		}
		if dst.OverflowInt(n) {
			return fmt.Errorf("%d overflows %v", n, dst.Type())
		}
		dst.SetInt(n)
		return nil
	case isUintKind(kind):
		var n uint64
		switch {
		case isIntKind(src.Kind()):
			if src.Int() < 0 {
				return fmt.Errorf("%d overflows %v", src.Int(), dst.Type())
			}
			n = uint64(src.Int())
		case isUintKind(src.Kind()):
			n = src.Uint()
		case src.Kind() == reflect.String:
			parsed, err := strconv.ParseUint(strings.TrimSpace(src.String()), 0, 64)
			if err != nil {
				return err
			}
			n = parsed
		default:
			return fmt.Errorf("unsupported source %T", v)
		}
		if dst.OverflowUint(n) {
			return fmt.Errorf("%d overflows %v", n, dst.Type())
		}
		dst.SetUint(n)
		return nil
	case kind == reflect.Float32 || kind == reflect.Float64:
		switch {
		case isIntKind(src.Kind()):
			dst.SetFloat(float64(src.Int()))
		case isUintKind(src.Kind()):
			dst.SetFloat(float64(src.Uint()))
		case src.Kind() == reflect.Float32 || src.Kind() == reflect.Float64:
			dst.SetFloat(src.Float())
		case src.Kind() == reflect.String:
			f, err := strconv.ParseFloat(strings.TrimSpace(src.String()), 64)
			if err != nil {
				return err
			}
			dst.SetFloat(f)
		default:
			return fmt.Errorf("unsupported source %T", v)
		}
		return nil
	case kind == reflect.Bool:
		switch {
		case isIntKind(src.Kind()):
			dst.SetBool(src.Int() != 0)
		case src.Kind() == reflect.String:
			b, err := strconv.ParseBool(strings.TrimSpace(src.String()))
			if err != nil {
				return err
			}
			dst.SetBool(b)
		default:
			return fmt.Errorf("unsupported source %T", v)
		}
		return nil
	case kind == reflect.String:
		if b, ok := v.([]byte); ok {
			dst.SetString(string(b))
		} else {
			dst.SetString(utils.ToString(v))
		}
		return nil
	}

	if src.Type().ConvertibleTo(dst.Type()) {
		dst.Set(src.Convert(dst.Type()))
		return nil
	}
	return fmt.Errorf("unsupported source %T", v)
}
