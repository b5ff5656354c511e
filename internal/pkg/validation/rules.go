package validation

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Validation rule patterns
var (
	// UUCMSPattern matches university student registration numbers such as UUCMS001.
	UUCMSPattern = `^[A-Z0-9]{4,20}$`

	// PhonePattern accepts an optional leading + and 10 to 15 digits.
	PhonePattern = `^\+?[0-9]{10,15}$`

	// SlotStartPattern matches whole hours between 09:00 and 15:00.
	SlotStartPattern = `^(09|1[0-5]):00$`

	// SubjectCodePattern matches course codes such as CS101.
	SubjectCodePattern = `^[A-Za-z]{2,6}[0-9]{2,4}$`

	PasswordMinLength = 6

	NameMinLength = 2
	NameMaxLength = 100
)

// CompiledPatterns caches compiled regex patterns
var CompiledPatterns = struct {
	UUCMS       *regexp.Regexp
	Phone       *regexp.Regexp
	SlotStart   *regexp.Regexp
	SubjectCode *regexp.Regexp
}{
	UUCMS:       regexp.MustCompile(UUCMSPattern),
	Phone:       regexp.MustCompile(PhonePattern),
	SlotStart:   regexp.MustCompile(SlotStartPattern),
	SubjectCode: regexp.MustCompile(SubjectCodePattern),
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator with the campus tags registered:
// uucms, phone, slot_start and subject_code.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = RegisterTags(validate)
	})
	return validate
}

// RegisterTags adds the campus-specific tags to v. Bootstrap calls it on gin's
// binding engine so request DTOs can use them too.
func RegisterTags(v *validator.Validate) error {
	tags := map[string]*regexp.Regexp{
		"uucms":        CompiledPatterns.UUCMS,
		"phone":        CompiledPatterns.Phone,
		"slot_start":   CompiledPatterns.SlotStart,
		"subject_code": CompiledPatterns.SubjectCode,
	}
	for tag, re := range tags {
		re := re
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return re.MatchString(fl.Field().String())
		}); err != nil {
			return fmt.Errorf("register %s: %w", tag, err)
		}
	}
	return nil
}

// IsOTP reports whether code is exactly length ASCII digits.
func IsOTP(code string, length int) bool {
	if len(code) != length {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// IsBlank reports whether s has no non-space characters.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// UniqueStrings trims values, drops blanks and keeps the first occurrence of each.
func UniqueStrings(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// StringValidation is a small builder for ad-hoc string checks
type StringValidation struct {
	Value    string
	MinLen   int
	MaxLen   int
	Required bool
	Pattern  *regexp.Regexp
}

// NewStringValidation creates a new string validation
func NewStringValidation(value string) *StringValidation {
	return &StringValidation{
		Value:    value,
		Required: true,
	}
}

// WithMinLength sets minimum length
func (v *StringValidation) WithMinLength(min int) *StringValidation {
	v.MinLen = min
	return v
}

// WithMaxLength sets maximum length
func (v *StringValidation) WithMaxLength(max int) *StringValidation {
	v.MaxLen = max
	return v
}

// WithPattern sets regex pattern
func (v *StringValidation) WithPattern(pattern *regexp.Regexp) *StringValidation {
	v.Pattern = pattern
	return v
}

// WithRequired sets if field is required
func (v *StringValidation) WithRequired(required bool) *StringValidation {
	v.Required = required
	return v
}

// Validate performs validation on the trimmed value
func (v *StringValidation) Validate() bool {
	value := strings.TrimSpace(v.Value)
	if v.Required && value == "" {
		return false
	}
	if !v.Required && value == "" {
		return true
	}
	if v.MinLen > 0 && len(value) < v.MinLen {
		return false
	}
	if v.MaxLen > 0 && len(value) > v.MaxLen {
		return false
	}
	if v.Pattern != nil && !v.Pattern.MatchString(value) {
		return false
	}
	return true
}
