package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// SchemaError reports a single schema validation failure with the JSON path
// of the offending field and a human-readable reason.
type SchemaError struct {
	// FieldPath is the JSON path to the failing field,
	// e.g. "claims[2].outcome". Empty when the failure is not attributable
	// to a specific field.
	FieldPath string

	// Reason describes why validation failed.
	Reason string
}

// Error implements the error interface for SchemaError.
func (e *SchemaError) Error() string {
	if e.FieldPath == "" {
		return fmt.Sprintf("schema validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("schema validation failed at %s: %s", e.FieldPath, e.Reason)
}

// Validator checks candidate JSON documents against the
// LaborSentenceExtraction schema. Validation is pure: no network or disk
// access, and the input is never mutated beyond currency defaulting.
// A Validator is safe for concurrent use.
type Validator struct {
	vocab    *Vocabulary
	validate *validator.Validate
}

// NewValidator creates a Validator bound to the allowed-claim vocabulary.
// Claim types outside the vocabulary fail validation; the open question of
// mapping them to a catch-all category is deliberately not implemented.
func NewValidator(vocab *Vocabulary) (*Validator, error) {
	if vocab == nil {
		return nil, fmt.Errorf("vocabulary cannot be nil")
	}

	validate := validator.New()
	err := validate.RegisterValidation("claim_vocab", func(fl validator.FieldLevel) bool {
		return vocab.Contains(fl.Field().String())
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register claim vocabulary validation: %w", err)
	}

	return &Validator{vocab: vocab, validate: validate}, nil
}

// Validate decodes the candidate JSON into a LaborSentenceExtraction and
// checks it against the schema. Unknown extra fields are ignored for forward
// compatibility; missing optional fields default to nil. On failure the
// returned error is a *SchemaError carrying the field path.
func (v *Validator) Validate(data []byte) (*LaborSentenceExtraction, error) {
	var record LaborSentenceExtraction
	if err := json.Unmarshal(data, &record); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, &SchemaError{
				FieldPath: typeErr.Field,
				Reason:    fmt.Sprintf("expected %s, got JSON %s", typeErr.Type, typeErr.Value),
			}
		}
		return nil, &SchemaError{Reason: fmt.Sprintf("candidate is not a JSON object: %v", err)}
	}

	defaultCurrencies(&record)

	if err := v.validate.Struct(&record); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return nil, &SchemaError{
				FieldPath: jsonFieldPath(reflect.TypeOf(record), fe.Namespace()),
				Reason:    reasonForTag(fe),
			}
		}
		return nil, &SchemaError{Reason: err.Error()}
	}

	return &record, nil
}

// defaultCurrencies fills in the fixed BRL currency on Money values that
// omit it. Amounts are never defaulted: a nil amount stays nil.
func defaultCurrencies(record *LaborSentenceExtraction) {
	setBRL := func(m *Money) {
		if m != nil && m.Currency == "" {
			m.Currency = "BRL"
		}
	}
	setBRL(record.Custas)
	setBRL(record.ValorTotalDecisao)
	for i := range record.Claims {
		setBRL(record.Claims[i].RequestedValue)
		setBRL(record.Claims[i].AwardedValue)
	}
}

// reasonForTag translates a validator tag failure into a stable,
// human-readable reason string.
func reasonForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field is required"
	case "oneof":
		return fmt.Sprintf("value %q is not one of [%s]", fe.Value(), fe.Param())
	case "claim_vocab":
		return fmt.Sprintf("claim type %q is not in the allowed vocabulary", fe.Value())
	case "gte":
		return fmt.Sprintf("value %v must be >= %s", fe.Value(), fe.Param())
	case "eq":
		return fmt.Sprintf("value %q must equal %q", fe.Value(), fe.Param())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

// jsonFieldPath converts a validator namespace such as
// "LaborSentenceExtraction.Claims[2].Outcome" into the JSON path
// "claims[2].outcome" using the struct's json tags.
func jsonFieldPath(root reflect.Type, namespace string) string {
	segments := strings.Split(namespace, ".")
	if len(segments) < 2 {
		return ""
	}
	// Drop the root struct name.
	segments = segments[1:]

	t := root
	var parts []string
	for _, seg := range segments {
		name, index := splitIndex(seg)

		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if t.Kind() != reflect.Struct {
			parts = append(parts, strings.ToLower(seg))
			continue
		}

		field, ok := t.FieldByName(name)
		if !ok {
			parts = append(parts, strings.ToLower(seg))
			continue
		}

		jsonName := strings.Split(field.Tag.Get("json"), ",")[0]
		if jsonName == "" {
			jsonName = strings.ToLower(name)
		}
		parts = append(parts, jsonName+index)

		t = field.Type
		if index != "" {
			for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
				t = t.Elem()
			}
		}
	}

	return strings.Join(parts, ".")
}

// splitIndex separates a namespace segment into its field name and optional
// "[i]" index suffix.
func splitIndex(segment string) (name, index string) {
	if i := strings.Index(segment, "["); i != -1 {
		return segment[:i], segment[i:]
	}
	return segment, ""
}
