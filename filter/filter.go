// Package filter turns list-view filter text into clause expressions.
//
// A filter value is one or more alternatives separated by '|', each one of:
//
//	null, !null        IS NULL, IS NOT NULL
//	a..b, a.., ..b     BETWEEN a AND b, >= a, <= b
//	>x >=x <x <=x      comparisons
//	!x, <>x            not equal
//	ab*c, ab%c         LIKE with '*' read as '%'
//	x                  LIKE %x% on string columns, = x elsewhere
//
// A date without a time on a time column covers the whole day.
package filter

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jinzhu/now"

	"github.com/openspm/tableops/clause"
	"github.com/openspm/tableops/schema"
)

var (
	// ErrUnknownField the filtered field does not exist on the model
	ErrUnknownField = errors.New("unknown filter field")
	// ErrInvalidValue the filter text cannot be read as the field's type
	ErrInvalidValue = errors.New("invalid filter value")
)

type term struct {
	field, value string
}

// Parse builds the AND of every field filter, fields in name order. Empty
// values are skipped; the result is nil when nothing filters.
func Parse(s *schema.Schema, filters map[string]string) (clause.Expression, error) {
	terms := make([]term, 0, len(filters))
	for name, value := range filters {
		terms = append(terms, term{field: name, value: value})
	}
	sort.Slice(terms, func(i, j int) bool { return terms[i].field < terms[j].field })
	return parseTerms(s, terms)
}

// ParseQuery parses "Field:value;Field:value" text, e.g. "Severity:>=3;Title:kb*"
func ParseQuery(s *schema.Schema, query string) (clause.Expression, error) {
	var terms []term
	for _, part := range strings.Split(query, ";") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		name, value, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("%w: %q is not Field:value", ErrInvalidValue, part)
		}
		terms = append(terms, term{field: strings.TrimSpace(name), value: value})
	}
	return parseTerms(s, terms)
}

func parseTerms(s *schema.Schema, terms []term) (clause.Expression, error) {
	exprs := make([]clause.Expression, 0, len(terms))
	for _, t := range terms {
		field := s.LookUpField(t.field)
		if field == nil {
			return nil, fmt.Errorf("%w: %s has no field %q", ErrUnknownField, s, t.field)
		}

		expr, err := parseField(field, t.value)
		if err != nil {
			return nil, err
		}
		if expr != nil {
			exprs = append(exprs, expr)
		}
	}
	return clause.And(exprs...), nil
}

func parseField(field *schema.Field, value string) (clause.Expression, error) {
	var alternatives []clause.Expression
	for _, text := range strings.Split(value, "|") {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		expr, err := parseAlternative(field, text)
		if err != nil {
			return nil, err
		}
		alternatives = append(alternatives, expr)
	}
	return clause.Or(alternatives...), nil
}

func parseAlternative(field *schema.Field, text string) (clause.Expression, error) {
	column := clause.Column{Name: field.DBName}

	switch strings.ToLower(text) {
	case "null":
		return clause.Eq{Column: column, Value: nil}, nil
	case "!null":
		return clause.Neq{Column: column, Value: nil}, nil
	}

	if lower, upper, ok := strings.Cut(text, ".."); ok {
		return parseRange(field, column, strings.TrimSpace(lower), strings.TrimSpace(upper))
	}

	for _, op := range []string{">=", "<=", "<>", ">", "<", "!"} {
		if !strings.HasPrefix(text, op) {
			continue
		}

		v, err := convert(field, strings.TrimSpace(text[len(op):]))
		if err != nil {
			return nil, err
		}
		switch op {
		case ">=":
			return clause.Gte{Column: column, Value: v}, nil
		case "<=":
			return clause.Lte{Column: column, Value: v}, nil
		case ">":
			return clause.Gt{Column: column, Value: v}, nil
		case "<":
			return clause.Lt{Column: column, Value: v}, nil
		default:
			return clause.Neq{Column: column, Value: v}, nil
		}
	}

	if strings.ContainsAny(text, "*%") {
		return clause.Like{Column: column, Value: strings.ReplaceAll(text, "*", "%")}, nil
	}

	if field.DataType == schema.String {
		return clause.Like{Column: column, Value: "%" + text + "%"}, nil
	}

	if field.DataType == schema.Time && isDate(text) {
		day, err := parseTime(field, text)
		if err != nil {
			return nil, err
		}
		return clause.Between{Column: column, Lower: now.With(day).BeginningOfDay(), Upper: now.With(day).EndOfDay()}, nil
	}

	v, err := convert(field, text)
	if err != nil {
		return nil, err
	}
	return clause.Eq{Column: column, Value: v}, nil
}

func parseRange(field *schema.Field, column clause.Column, lower, upper string) (clause.Expression, error) {
	var lowerValue, upperValue interface{}
	if lower != "" {
		v, err := convert(field, lower)
		if err != nil {
			return nil, err
		}
		lowerValue = v
	}

	if upper != "" {
		v, err := convert(field, upper)
		if err != nil {
			return nil, err
		}
		// a closing date includes its whole day
		if t, ok := v.(time.Time); ok && isDate(upper) {
			v = now.With(t).EndOfDay()
		}
		upperValue = v
	}

	switch {
	case lower != "" && upper != "":
		return clause.Between{Column: column, Lower: lowerValue, Upper: upperValue}, nil
	case lower != "":
		return clause.Gte{Column: column, Value: lowerValue}, nil
	case upper != "":
		return clause.Lte{Column: column, Value: upperValue}, nil
	}
	return nil, fmt.Errorf("%w: %s range has no bounds", ErrInvalidValue, field.Name)
}

// convert reads text as a value of the field's data type
func convert(field *schema.Field, text string) (interface{}, error) {
	var (
		v   interface{}
		err error
	)

	switch field.DataType {
	case schema.Int:
		v, err = strconv.ParseInt(text, 10, 64)
	case schema.Uint:
		v, err = strconv.ParseUint(text, 10, 64)
	case schema.Float:
		v, err = strconv.ParseFloat(text, 64)
	case schema.Bool:
		v, err = strconv.ParseBool(text)
	case schema.Time:
		return parseTime(field, text)
	default:
		return text, nil
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %s %q: %v", ErrInvalidValue, field.Name, text, err)
	}
	return v, nil
}

func parseTime(field *schema.Field, text string) (time.Time, error) {
	t, err := now.Parse(text)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s %q: %v", ErrInvalidValue, field.Name, text, err)
	}
	return t, nil
}

// isDate reports whether text is a date with no time of day
func isDate(text string) bool {
	_, err := time.Parse("2006-01-02", text)
	return err == nil
}
