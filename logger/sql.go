package logger

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

const tmFmtWithMS = "2006-01-02 15:04:05.999"

func isPrintable(s string) bool {
	for _, r := range s {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

// ExplainSQL inlines vars into sql for logging. With a nil numericPlaceholder
// every '?' is replaced in order; otherwise the first submatch of the pattern
// is read as a 1-based variable index ($1, @p1).
func ExplainSQL(sql string, numericPlaceholder *regexp.Regexp, escaper string, vars ...interface{}) string {
	formatted := make([]string, len(vars))
	for idx, v := range vars {
		formatted[idx] = explainVar(v, escaper)
	}

	if numericPlaceholder == nil {
		var (
			b      strings.Builder
			varIdx int
		)
		for _, r := range sql {
			if r == '?' && varIdx < len(formatted) {
				b.WriteString(formatted[varIdx])
				varIdx++
				continue
			}
			b.WriteRune(r)
		}
		return b.String()
	}

	return numericPlaceholder.ReplaceAllStringFunc(sql, func(m string) string {
		sub := numericPlaceholder.FindStringSubmatch(m)
		if len(sub) < 2 {
			return m
		}
		n, err := strconv.Atoi(sub[1])
		if err != nil || n < 1 || n > len(formatted) {
			return m
		}
		return formatted[n-1]
	})
}

func explainVar(v interface{}, escaper string) string {
	if valuer, ok := v.(driver.Valuer); ok {
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Ptr && rv.IsNil() {
			return "NULL"
		}
		v, _ = valuer.Value()
	}

	quote := func(s string) string {
		return escaper + strings.ReplaceAll(s, escaper, escaper+escaper) + escaper
	}

	switch v := v.(type) {
	case nil:
		return "NULL"
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		if v.IsZero() {
			return quote("0000-00-00 00:00:00")
		}
		return quote(v.Format(tmFmtWithMS))
	case *time.Time:
		if v == nil {
			return "NULL"
		}
		return explainVar(*v, escaper)
	case []byte:
		if s := string(v); isPrintable(s) {
			return quote(s)
		}
		return quote("<binary>")
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		return quote(v)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return "NULL"
		}
		return explainVar(rv.Elem().Interface(), escaper)
	}
	return quote(fmt.Sprint(v))
}
