package validation

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

const (
	// TagTrimString rejects strings with leading or trailing whitespace
	TagTrimString = "trimstring"
	// TagNotBlank rejects strings made only of whitespace
	TagNotBlank = "notblank"
	// TagSize bounds a string length to [SizeMin, SizeMax] characters
	TagSize = "size"

	SizeMin = 3
	SizeMax = 50
)

// Field error messages returned to API clients
const (
	MsgNotBlank   = "must not be null or empty"
	MsgSize       = "must be between 3 and 50 characters"
	MsgEmail      = "invalid email"
	MsgTrimString = "field cannot have blank spaces at the beginning or at end"
)

// FieldError is a single field-level violation
type FieldError struct {
	FieldName string `json:"fieldName"`
	Message   string `json:"message"`
}

// Errors lists every violation of a struct, field by field in declaration order
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, f := range e {
		parts = append(parts, f.FieldName+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// presenceTags are checked before the other rules of a field. When one fails,
// the field reports only that violation.
var presenceTags = []string{"required", TagNotBlank}

// Validator checks every rule of a field separately so a field reports all of
// its violations, not only the first. It satisfies gin's binding.StructValidator.
type Validator struct {
	validate *validator.Validate
	tagName  string
}

// New creates a Validator reading rules from `validate` tags.
func New() *Validator {
	return NewWithTag("validate")
}

// NewWithTag creates a Validator reading rules from the given struct tag,
// e.g. "binding" for gin.
func NewWithTag(tagName string) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.SetTagName(tagName)
	// Register only fails on duplicate or empty tags, which are constants here.
	_ = Register(v)
	return &Validator{validate: v, tagName: tagName}
}

// ValidateStruct validates obj for gin's binding.
func (v *Validator) ValidateStruct(obj any) error {
	return v.Struct(obj)
}

// Engine returns the underlying validator.
func (v *Validator) Engine() any {
	return v.validate
}

// Struct validates a struct or a pointer to one. Field violations come back as
// Errors. Other values pass.
func (v *Validator) Struct(obj any) error {
	val := reflect.ValueOf(obj)
	for val.Kind() == reflect.Pointer {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return nil
	}

	err := v.validate.Struct(val.Interface())
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	fields := v.collect(val)
	if len(fields) == 0 {
		// nested violations are not walked, report them as found
		return validationErrors
	}
	return fields
}

// collect runs the rules of every top-level field one by one
func (v *Validator) collect(val reflect.Value) Errors {
	var out Errors
	typ := val.Type()
	for i := range typ.NumField() {
		sf := typ.Field(i)
		tag := sf.Tag.Get(v.tagName)
		if !sf.IsExported() || tag == "" || tag == "-" {
			continue
		}
		name := jsonFieldName(sf)
		for _, msg := range v.fieldMessages(val.Field(i), strings.Split(tag, ",")) {
			out = append(out, FieldError{FieldName: name, Message: msg})
		}
	}
	return out
}

func (v *Validator) fieldMessages(field reflect.Value, rules []string) []string {
	if field.Kind() == reflect.Pointer {
		if field.IsNil() {
			if slices.Contains(rules, "required") {
				return []string{MsgNotBlank}
			}
			return nil
		}
		field = field.Elem()
	} else if slices.Contains(rules, "omitempty") && field.IsZero() {
		return nil
	}
	value := field.Interface()

	for _, rule := range rules {
		if slices.Contains(presenceTags, rule) {
			if msg, failed := v.check(value, rule); failed {
				return []string{msg}
			}
		}
	}

	var msgs []string
	for _, rule := range rules {
		if rule == "omitempty" || slices.Contains(presenceTags, rule) {
			continue
		}
		if msg, failed := v.check(value, rule); failed && !slices.Contains(msgs, msg) {
			msgs = append(msgs, msg)
		}
	}
	return msgs
}

func (v *Validator) check(value any, rule string) (string, bool) {
	var validationErrors validator.ValidationErrors
	if !errors.As(v.validate.Var(value, rule), &validationErrors) || len(validationErrors) == 0 {
		return "", false
	}
	return Message(validationErrors[0]), true
}

// Register installs the custom rules and JSON field naming on an existing validator,
// e.g. the engine behind gin's binding package.
func Register(v *validator.Validate) error {
	v.RegisterTagNameFunc(jsonFieldName)

	if err := v.RegisterValidation(TagTrimString, trimString); err != nil {
		return fmt.Errorf("register %s: %w", TagTrimString, err)
	}
	if err := v.RegisterValidation(TagNotBlank, validators.NotBlank); err != nil {
		return fmt.Errorf("register %s: %w", TagNotBlank, err)
	}
	v.RegisterAlias(TagSize, fmt.Sprintf("min=%d,max=%d", SizeMin, SizeMax))

	return nil
}

// trimString passes when the value has no leading or trailing whitespace.
// Non-string and absent values pass.
func trimString(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return true
	}
	value := field.String()
	return strings.TrimSpace(value) == value
}

// jsonFieldName reports fields by their JSON name so errors match the request payload
func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

// Fields converts validator errors into the per-field list returned to clients.
// It returns nil when err carries no field violations.
func Fields(err error) []FieldError {
	var errs Errors
	if errors.As(err, &errs) {
		return errs
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}

	fields := make([]FieldError, 0, len(validationErrors))
	for _, e := range validationErrors {
		fields = append(fields, FieldError{
			FieldName: e.Field(),
			Message:   Message(e),
		})
	}
	return fields
}

// Message returns the client-facing message for a single violation
func Message(e validator.FieldError) string {
	switch e.Tag() {
	case "required", TagNotBlank:
		return MsgNotBlank
	case TagSize, "min", "max":
		return MsgSize
	case "email":
		return MsgEmail
	case TagTrimString:
		return MsgTrimString
	default:
		if e.Param() != "" {
			return fmt.Sprintf("failed on the '%s=%s' rule", e.Tag(), e.Param())
		}
		return fmt.Sprintf("failed on the '%s' rule", e.Tag())
	}
}
