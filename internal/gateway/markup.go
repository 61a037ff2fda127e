package gateway

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// MarshalMarkup serialises v into the processor's field-ordered markup
// under the given root tag. The serialisation contract:
//
//   - struct fields become nested tags in declaration order, named by the
//     `markup` tag or the lower-cased field name;
//   - slices become repeated elements tagged with the singular of the
//     field name ("items" producing one "item" per element);
//   - scalar values are entity-escaped text.
//
// Fields tagged `markup:"-"` and empty optional values (tag option
// "omitempty") are skipped.
func MarshalMarkup(root string, v interface{}) (string, error) {
	var b strings.Builder
	if err := encodeValue(&b, root, reflect.ValueOf(v), false); err != nil {
		return "", err
	}
	return b.String(), nil
}

func encodeValue(b *strings.Builder, tag string, v reflect.Value, omitempty bool) error {
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Struct:
		return encodeStruct(b, tag, v)

	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return nil
		}
		b.WriteString("<" + tag + ">")
		child := singular(tag)
		for i := 0; i < v.Len(); i++ {
			if err := encodeValue(b, child, v.Index(i), false); err != nil {
				return err
			}
		}
		b.WriteString("</" + tag + ">")
		return nil

	case reflect.String:
		s := v.String()
		if s == "" && omitempty {
			return nil
		}
		writeScalar(b, tag, s)
		return nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n := v.Int()
		if n == 0 && omitempty {
			return nil
		}
		writeScalar(b, tag, strconv.FormatInt(n, 10))
		return nil

	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if f == 0 && omitempty {
			return nil
		}
		writeScalar(b, tag, strconv.FormatFloat(f, 'f', 2, 64))
		return nil

	case reflect.Bool:
		writeScalar(b, tag, strconv.FormatBool(v.Bool()))
		return nil

	default:
		return fmt.Errorf("markup: unsupported kind %s for tag %q", v.Kind(), tag)
	}
}

func encodeStruct(b *strings.Builder, tag string, v reflect.Value) error {
	b.WriteString("<" + tag + ">")

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		name, omitempty := fieldTag(field)
		if name == "-" {
			continue
		}
		if err := encodeValue(b, name, v.Field(i), omitempty); err != nil {
			return err
		}
	}

	b.WriteString("</" + tag + ">")
	return nil
}

func fieldTag(field reflect.StructField) (name string, omitempty bool) {
	tag := field.Tag.Get("markup")
	if tag == "" {
		return strings.ToLower(field.Name), false
	}
	parts := strings.Split(tag, ",")
	name = parts[0]
	if name == "" {
		name = strings.ToLower(field.Name)
	}
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			omitempty = true
		}
	}
	return name, omitempty
}

// singular derives the repeated-element tag from a plural container tag:
// "items" gives "item", "documents" gives "document", anything else just
// drops a trailing "s".
func singular(tag string) string {
	if strings.HasSuffix(tag, "s") && len(tag) > 1 {
		return tag[:len(tag)-1]
	}
	return tag
}

func writeScalar(b *strings.Builder, tag, text string) {
	b.WriteString("<" + tag + ">")
	b.WriteString(escapeEntities(text))
	b.WriteString("</" + tag + ">")
}

var entityReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func escapeEntities(s string) string {
	return entityReplacer.Replace(s)
}
