package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/content-threads-api/internal/apperr"
)

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Validator checks primitive field constraints declared with `validate` tags
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new validator instance that reports fields by their
// json names
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return &Validator{validate: v}
}

// Check validates s and returns every violated constraint.
func (v *Validator) Check(s interface{}) []ValidationError {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []ValidationError{{Field: "", Message: err.Error()}}
	}

	out := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Message: describe(fe),
			Value:   fe.Value(),
		})
	}
	return out
}

// Struct validates s and converts the first violation into an InvalidInput
// failure, or InvalidEnum when the field is restricted to a fixed set.
func (v *Validator) Struct(s interface{}) error {
	errs := v.Check(s)
	if len(errs) == 0 {
		return nil
	}

	first := errs[0]
	name := apperr.InvalidInput
	if strings.Contains(first.Message, "must be one of") {
		name = apperr.InvalidEnum
	}
	return apperr.New(apperr.KindInvalidInput, name, fmt.Sprintf("%s: %s", first.Field, first.Message))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	}
	return fmt.Sprintf("failed %q constraint", fe.Tag())
}

// ParseObjectID parses a document id, failing InvalidId when malformed.
func ParseObjectID(s, field string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID, apperr.New(apperr.KindInvalidInput, apperr.InvalidID,
			fmt.Sprintf("%s: malformed id %q", field, s))
	}
	return id, nil
}

// ParseObjectIDs parses a non-empty id list, failing InvalidInput when the
// list is empty or any id is malformed.
func ParseObjectIDs(ids []string, field string) ([]primitive.ObjectID, error) {
	if len(ids) == 0 {
		return nil, apperr.New(apperr.KindInvalidInput, apperr.InvalidInput, field+": at least one id is required")
	}
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, s := range ids {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			return nil, apperr.New(apperr.KindInvalidInput, apperr.InvalidInput,
				fmt.Sprintf("%s: malformed id %q", field, s))
		}
		out = append(out, id)
	}
	return out, nil
}

// StripSpaces removes every whitespace rune from s.
func StripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
