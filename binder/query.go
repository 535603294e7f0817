package binder

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/dmitrymomot/meterkit/pkg/apperr"
)

// Query binds URL query parameters into the fields of the struct v points to.
// Fields are matched by their `query` tag; untagged fields are skipped.
// Supported kinds are string, bool and the integer kinds.
func Query() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
			return fmt.Errorf("%w: target must be a pointer to a struct", ErrFailedToParseQuery)
		}
		values := r.URL.Query()
		rv = rv.Elem()
		rt := rv.Type()

		for i := range rt.NumField() {
			f := rt.Field(i)
			name, _, _ := strings.Cut(f.Tag.Get("query"), ",")
			if name == "" || name == "-" || !f.IsExported() {
				continue
			}
			raw := strings.TrimSpace(values.Get(name))
			if raw == "" {
				continue
			}
			if err := setField(rv.Field(i), raw); err != nil {
				return errors.Join(apperr.ErrValidation, fmt.Errorf("%w: %s: %v", ErrFailedToParseQuery, name, err))
			}
		}
		return nil
	}
}

func setField(field reflect.Value, raw string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetUint(n)
	default:
		return fmt.Errorf("unsupported field kind %s", field.Kind())
	}
	return nil
}
