package schema

import (
	"reflect"
	"strings"

	"golang.org/x/text/cases"
)

// TagKey is the struct tag holding column settings
const TagKey = "db"

// ParseTagSetting splits `primaryKey;size:20;label:Patch ID` into upper-cased
// keys and values. A backslash escapes the separator inside a value.
func ParseTagSetting(str string, sep string) map[string]string {
	settings := map[string]string{}
	names := strings.Split(str, sep)

	for i := 0; i < len(names); i++ {
		j := i
		if len(names[j]) > 0 {
			for {
				if names[j][len(names[j])-1] == '\\' {
					if i+1 < len(names) {
						i++
						names[j] = names[j][0:len(names[j])-1] + sep + names[i]
						names[i] = ""
					} else {
						names[j] = names[j][0 : len(names[j])-1]
						break
					}
				} else {
					break
				}
			}
		}

		values := strings.SplitN(names[j], ":", 2)
		k := strings.TrimSpace(strings.ToUpper(values[0]))
		if k == "" {
			continue
		}

		if len(values) >= 2 {
			settings[k] = strings.TrimSpace(values[1])
		} else {
			settings[k] = k
		}
	}

	return settings
}

// foldName folds a field or column name for case-insensitive lookups.
// A Caser holds state, so one is created per call.
func foldName(name string) string {
	return cases.Fold().String(name)
}

func isIntKind(kind reflect.Kind) bool {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUintKind(kind reflect.Kind) bool {
	switch kind {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}
