package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"wristwatch-be/internal/apperror"

	validatorv10 "github.com/go-playground/validator/v10"
)

var (
	instance *validatorv10.Validate
	once     sync.Once
)

// New returns a validator reporting fields by their json names.
func New() *validatorv10.Validate {
	v := validatorv10.New(validatorv10.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Default is the process-wide validator; validator caches struct metadata.
func Default() *validatorv10.Validate {
	once.Do(func() {
		instance = New()
	})
	return instance
}

// Struct validates s and converts failures to an apperror listing every
// offending field in declaration order.
func Struct(op string, s interface{}) error {
	err := Default().Struct(s)
	if err == nil {
		return nil
	}

	var ve validatorv10.ValidationErrors
	if !errors.As(err, &ve) {
		return apperror.Invalid(op, err.Error())
	}

	fields := make([]string, 0, len(ve))
	seen := make(map[string]bool, len(ve))
	for _, fe := range ve {
		name := fieldPath(fe)
		if seen[name] {
			continue
		}
		seen[name] = true
		fields = append(fields, name)
	}
	return apperror.Validation(op, fields...)
}

// fieldPath drops the top-level struct name from the namespace, so nested
// entries read like "items[1].quantity".
func fieldPath(fe validatorv10.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}
