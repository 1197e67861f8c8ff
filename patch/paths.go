package patch

import (
	"reflect"
	"strings"
)

// Layout lists every JSON pointer a value of T can hold. Slice elements
// appear as "-" and map values as "*".
func Layout[T any]() []string {
	paths := []string{}
	walk(reflect.TypeFor[T](), "", map[reflect.Type]bool{}, &paths)
	return paths
}

func walk(typ reflect.Type, prefix string, seen map[reflect.Type]bool, paths *[]string) {
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	switch typ.Kind() {
	case reflect.Struct:
		if seen[typ] {
			return
		}
		seen[typ] = true
		defer delete(seen, typ)
		for i := range typ.NumField() {
			field := typ.Field(i)
			name := jsonName(field)
			if name == "" {
				continue
			}
			*paths = append(*paths, prefix+"/"+name)
			walk(field.Type, prefix+"/"+name, seen, paths)
		}
	case reflect.Slice, reflect.Array:
		*paths = append(*paths, prefix+"/-")
		walk(typ.Elem(), prefix+"/-", seen, paths)
	case reflect.Map:
		*paths = append(*paths, prefix+"/*")
		walk(typ.Elem(), prefix+"/*", seen, paths)
	}
}

// jsonName is the member name encoding/json would use, or "" for a field
// that is never encoded.
func jsonName(field reflect.StructField) string {
	if !field.IsExported() {
		return ""
	}
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return field.Name
	}
	return name
}

// Covers reports whether pointer names a path of T, either directly or
// through a wildcard segment.
func Covers[T any](pointer string) bool {
	return pathAllowed(pointer, AllowedSet(Layout[T]()...))
}
