package configs

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

type validator struct {
	key string
}

func New(key string) *validator {
	return &validator{key: key}
}

// Validate checks the tagged fields of the struct i and of every struct
// nested in it. Supported tags: required, min=N, max=N and len=a:b.
func (v *validator) Validate(i any) error {
	return v.validate(reflect.ValueOf(i), "")
}

func (v *validator) validate(val reflect.Value, prefix string) error {
	if val.Kind() == reflect.Pointer {
		if val.IsNil() {
			return errors.New("nil value: " + prefix)
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return fmt.Errorf("cannot validate %s", val.Kind())
	}
	typ := val.Type()

	for i := range typ.NumField() {
		field := typ.Field(i)
		f := val.Field(i)
		name := prefix + field.Name

		if f.Kind() == reflect.Struct {
			if err := v.validate(f, name+"."); err != nil {
				return err
			}
			continue
		}

		tagSTR := field.Tag.Get(v.key)
		if tagSTR == "" {
			continue
		}

		for tag := range strings.SplitSeq(tagSTR, ",") {
			entity := strings.SplitN(tag, "=", 2)

			switch strings.ToLower(entity[0]) {
			case "required":
				if f.Kind() != reflect.Bool && f.IsZero() {
					return errors.New("required field is empty: " + name)
				}

			case "min", "max":
				if len(entity) != 2 {
					return errors.New("invalid " + entity[0] + " tag format in field: " + name)
				}
				value, ok := numeric(f)
				if !ok {
					continue
				}
				border, err := strconv.ParseFloat(entity[1], 64)
				if err != nil {
					return err
				}
				if entity[0] == "min" && value < border {
					return errors.New("field " + name + " less than min")
				}
				if entity[0] == "max" && value > border {
					return errors.New("field " + name + " greater than max")
				}

			case "len":
				if f.Kind() == reflect.Slice || f.Kind() == reflect.Array || f.Kind() == reflect.Map || f.Kind() == reflect.String {
					borders := strings.Split(entity[len(entity)-1], ":")
					if len(entity) != 2 || len(borders) != 2 {
						return errors.New("invalid len tag format in field: " + name)
					}
					min, err := strconv.Atoi(borders[0])
					if err != nil {
						return err
					}
					max, err := strconv.Atoi(borders[1])
					if err != nil {
						return err
					}
					if f.Len() < min || f.Len() > max {
						return errors.New("field " + name + " length not in range")
					}
				}

			default:
				return errors.New("unknown tag: " + entity[0] + " in field: " + name)
			}
		}
	}
	return nil
}

func numeric(f reflect.Value) (float64, bool) {
	switch f.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(f.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(f.Uint()), true
	case reflect.Float32, reflect.Float64:
		return f.Float(), true
	}
	return 0, false
}
