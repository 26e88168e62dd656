// Package validation is the single place where request input rules live.
// Every entry point validates through Struct and gets a VALIDATION_ERROR
// with one message per failing field.
package validation

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mroshb/friend_calendar/pkg/errors"
)

const DateLayout = "2006-01-02"

var (
	clockRegex    = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
	colorRegex    = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
	usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		return clockRegex.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("color6", func(fl validator.FieldLevel) bool {
		return colorRegex.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRegex.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
		_, err := ParseDate(fl.Field().String())
		return err == nil
	})

	return v
}

// Struct validates s against its `validate` tags.
func Struct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to validate input")
	}

	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fieldPath(fe)] = message(fe)
	}
	return errors.Validation("invalid input", fields)
}

// Field builds a single-field VALIDATION_ERROR for rules that span fields.
func Field(name, msg string) error {
	return errors.Validation("invalid input", map[string]string{name: msg})
}

// ParseDate accepts a calendar date (2006-01-02) or an RFC 3339 timestamp
// and returns the calendar date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return DateOf(t, t.Location()), nil
}

// DateOf returns the calendar day of t in loc as midnight UTC.
func DateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// fieldPath drops the top level struct name: "CreateEventRequest.recurrence.interval" -> "recurrence.interval".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// jsonName lower-cases a Go field name the way the request bodies spell it.
func jsonName(field string) string {
	if field == "" {
		return field
	}
	field = strings.Replace(field, "ID", "Id", 1)
	return strings.ToLower(field[:1]) + field[1:]
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return "is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s items", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at most %s items", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "clock":
		return "must be a 24-hour time formatted HH:MM"
	case "len=0|clock":
		return "must be empty or a 24-hour time formatted HH:MM"
	case "excluded_with":
		return "cannot be combined with " + jsonName(fe.Param())
	case "color6":
		return "must be a hex color formatted #RRGGBB"
	case "date":
		return "must be a date formatted YYYY-MM-DD"
	case "email":
		return "must be a valid email address"
	case "username":
		return "may only contain letters, digits and underscores"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	default:
		return "is invalid"
	}
}
