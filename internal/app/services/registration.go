package services

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/yigit/campuskizuna/internal/app/models"
	"github.com/yigit/campuskizuna/internal/app/models/dto"
	"github.com/yigit/campuskizuna/internal/pkg/apperrors"
	"github.com/yigit/campuskizuna/internal/pkg/validation"
)

// Registration is the sign-up payload of one role. The concrete type is chosen
// by the role the session selected; each variant validates its own fields.
type Registration interface {
	Role() models.Role
	Identifier() string
	Secret() string
	Contact() string
	Validate() error
}

// StudentRegistration signs a student up with their university number
type StudentRegistration struct {
	UUCMS          string `validate:"required,uucms"`
	Password       string `validate:"required,min=6,max=72"`
	PersonalNumber string `validate:"required,phone"`
}

func (r StudentRegistration) Role() models.Role  { return models.RoleStudent }
func (r StudentRegistration) Identifier() string { return normalizeIdentifier(r.UUCMS) }
func (r StudentRegistration) Secret() string     { return r.Password }
func (r StudentRegistration) Contact() string    { return strings.TrimSpace(r.PersonalNumber) }
func (r StudentRegistration) Validate() error {
	r.UUCMS = strings.ToUpper(strings.TrimSpace(r.UUCMS))
	r.PersonalNumber = strings.TrimSpace(r.PersonalNumber)
	return validateRegistration(r)
}

// FacultyRegistration signs a faculty member up with a login handle
type FacultyRegistration struct {
	Handle   string `validate:"required,min=3,max=100"`
	Password string `validate:"required,min=6,max=72"`
}

func (r FacultyRegistration) Role() models.Role  { return models.RoleFaculty }
func (r FacultyRegistration) Identifier() string { return normalizeIdentifier(r.Handle) }
func (r FacultyRegistration) Secret() string     { return r.Password }
func (r FacultyRegistration) Contact() string    { return "" }
func (r FacultyRegistration) Validate() error {
	r.Handle = strings.TrimSpace(r.Handle)
	return validateRegistration(r)
}

// AdminRegistration signs an administrator up with a login handle
type AdminRegistration struct {
	Handle   string `validate:"required,min=3,max=100"`
	Password string `validate:"required,min=6,max=72"`
}

func (r AdminRegistration) Role() models.Role  { return models.RoleAdmin }
func (r AdminRegistration) Identifier() string { return normalizeIdentifier(r.Handle) }
func (r AdminRegistration) Secret() string     { return r.Password }
func (r AdminRegistration) Contact() string    { return "" }
func (r AdminRegistration) Validate() error {
	r.Handle = strings.TrimSpace(r.Handle)
	return validateRegistration(r)
}

// RegistrationFor builds the variant matching role from the wire request
func RegistrationFor(role models.Role, req *dto.RegisterRequest) (Registration, error) {
	switch role {
	case models.RoleStudent:
		return StudentRegistration{UUCMS: req.Identifier, Password: req.Password, PersonalNumber: req.PersonalNumber}, nil
	case models.RoleFaculty:
		return FacultyRegistration{Handle: req.Identifier, Password: req.Password}, nil
	case models.RoleAdmin:
		return AdminRegistration{Handle: req.Identifier, Password: req.Password}, nil
	}
	return nil, apperrors.NewValidationError("role", "no role selected")
}

// normalizeIdentifier is the stored form of a login identifier
func normalizeIdentifier(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

var registrationFields = map[string]string{
	"UUCMS":          "identifier",
	"Handle":         "identifier",
	"Password":       "password",
	"PersonalNumber": "personalNumber",
}

func validateRegistration(r Registration) error {
	err := validation.Validator().Struct(r)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		field := registrationFields[fe.StructField()]
		return apperrors.NewValidationError(field, registrationMessage(field, fe.Tag()))
	}
	return apperrors.NewValidationError("registration", err.Error())
}

func registrationMessage(field, tag string) string {
	switch tag {
	case "required":
		return field + " is required"
	case "min":
		if field == "password" {
			return "password must be at least 6 characters"
		}
		return field + " is too short"
	case "max":
		return field + " is too long"
	case "uucms":
		return "identifier must be a UUCMS number such as UUCMS004"
	case "phone":
		return "personal number must contain 10 to 15 digits"
	}
	return field + " is invalid"
}
