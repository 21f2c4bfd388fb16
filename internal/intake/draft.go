// Package intake models the client-entered intake draft that accompanies a
// call transcript, and the normalisers and validation applied to it.
package intake

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Draft is the structured case data collected alongside a transcript. Blank
// strings and nil numbers mean "not provided".
type Draft struct {
	ClientName            string   `json:"client_name"`
	DateOfBirth           string   `json:"date_of_birth"`
	PhoneNumber           string   `json:"phone_number"`
	Email                 string   `json:"email" validate:"omitempty,email"`
	IncidentDate          string   `json:"incident_date"`
	IncidentDescription   string   `json:"incident_description"`
	IncidentLocation      string   `json:"incident_location"`
	Injuries              string   `json:"injuries"`
	TreatmentProviders    []string `json:"treatment_providers"`
	InsuranceProvider     string   `json:"insurance_provider"`
	InsurancePolicyNumber string   `json:"insurance_policy_number"`
	Employer              string   `json:"employer"`
	DaysMissedWork        *int     `json:"days_missed_work,omitempty" validate:"omitempty,min=0"`
	PainLevel             *int     `json:"pain_level,omitempty" validate:"omitempty,min=0,max=10"`
	EstimatedValue        *int     `json:"estimated_value,omitempty" validate:"omitempty,min=0"`
	ClarificationNeeded   []string `json:"clarification_needed"`
}

// Submit-required fields, in the order they are reported.
var submitFields = []struct {
	name string
	get  func(Draft) string
}{
	{"client_name", func(d Draft) string { return d.ClientName }},
	{"email", func(d Draft) string { return d.Email }},
	{"incident_date", func(d Draft) string { return d.IncidentDate }},
	{"incident_description", func(d Draft) string { return d.IncidentDescription }},
}

var fieldDisplayNames = map[string]string{
	"client_name":          "Name",
	"date_of_birth":        "DOB",
	"email":                "Email",
	"incident_date":        "Incident date",
	"incident_description": "Description",
}

// MissingSubmitFields lists the required fields that are blank.
func MissingSubmitFields(d Draft) []string {
	var missing []string
	for _, f := range submitFields {
		if strings.TrimSpace(f.get(d)) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// FieldDisplayName returns the short label for a field key, or the key.
func FieldDisplayName(field string) string {
	if name, ok := fieldDisplayNames[field]; ok {
		return name
	}
	return field
}

// PainOrZero returns the intake pain level, or 0 when absent.
func (d Draft) PainOrZero() int {
	if d.PainLevel == nil {
		return 0
	}
	return *d.PainLevel
}

// HasDateOfBirth reports whether a non-blank date of birth was provided.
func (d Draft) HasDateOfBirth() bool {
	return strings.TrimSpace(d.DateOfBirth) != ""
}

// HasEstimatedValue reports whether a non-zero estimate was provided.
func (d Draft) HasEstimatedValue() bool {
	return d.EstimatedValue != nil && *d.EstimatedValue != 0
}

// ErrInvalidDraft is wrapped by every validation failure.
var ErrInvalidDraft = errors.New("invalid intake draft")

// FieldError is one failed rule, keyed by JSON field name.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// ValidationError collects field failures.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + " (" + f.Rule + ")"
	}
	return fmt.Sprintf("%v: %s", ErrInvalidDraft, strings.Join(parts, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidDraft }

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the base draft rules: a well-formed email when present,
// pain within 0-10 and non-negative counts.
func Validate(d Draft) error {
	return toValidationError(validate.Struct(d))
}

// ValidateForSubmit applies Validate plus the submit requirements: every
// MissingSubmitFields entry must be filled and the email must be valid.
func ValidateForSubmit(d Draft) error {
	var fields []FieldError
	for _, name := range MissingSubmitFields(d) {
		fields = append(fields, FieldError{Field: name, Rule: "required"})
	}

	var ve *ValidationError
	if err := Validate(d); errors.As(err, &ve) {
		for _, f := range ve.Fields {
			if !containsField(fields, f.Field) {
				fields = append(fields, f)
			}
		}
	}

	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

func containsField(fields []FieldError, name string) bool {
	for _, f := range fields {
		if f.Field == name {
			return true
		}
	}
	return false
}

func toValidationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidDraft, err)
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: fe.Field(), Rule: fe.Tag()})
	}
	return &ValidationError{Fields: fields}
}
