package usecase

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var nonDigits = regexp.MustCompile(`\D`)

func ValidateCreateLeadInput(input CreateLeadInput) []ValidationError {
	var errors []ValidationError

	name := strings.TrimSpace(input.Name)
	if name == "" {
		errors = append(errors, ValidationError{"name", "is required"})
	} else if len(name) > 200 {
		errors = append(errors, ValidationError{"name", "must not exceed 200 characters"})
	}

	if input.Phone != "" && !isValidPhoneNumber(input.Phone) {
		errors = append(errors, ValidationError{"phone", "must be a valid phone number"})
	}

	if input.Email != "" {
		if _, err := mail.ParseAddress(input.Email); err != nil {
			errors = append(errors, ValidationError{"email", "is invalid"})
		}
	}

	if input.CUIT != "" && !isValidCUIT(input.CUIT) {
		errors = append(errors, ValidationError{"cuit", "must have 11 digits"})
	}
	if input.DNI != "" && !isValidDNI(input.DNI) {
		errors = append(errors, ValidationError{"dni", "must have 7 or 8 digits"})
	}

	if input.Income < 0 {
		errors = append(errors, ValidationError{"income", "must not be negative"})
	}
	if input.DesiredAmount < 0 {
		errors = append(errors, ValidationError{"desired_amount", "must not be negative"})
	}

	return errors
}

func ValidateUpdateLeadInput(input UpdateLeadInput) []ValidationError {
	var errors []ValidationError

	if input.Name != nil && len(strings.TrimSpace(*input.Name)) > 200 {
		errors = append(errors, ValidationError{"name", "must not exceed 200 characters"})
	}
	if input.Phone != nil && *input.Phone != "" && !isValidPhoneNumber(*input.Phone) {
		errors = append(errors, ValidationError{"phone", "must be a valid phone number"})
	}
	if input.Email != nil && *input.Email != "" {
		if _, err := mail.ParseAddress(*input.Email); err != nil {
			errors = append(errors, ValidationError{"email", "is invalid"})
		}
	}
	if input.CUIT != nil && *input.CUIT != "" && !isValidCUIT(*input.CUIT) {
		errors = append(errors, ValidationError{"cuit", "must have 11 digits"})
	}
	if input.DNI != nil && *input.DNI != "" && !isValidDNI(*input.DNI) {
		errors = append(errors, ValidationError{"dni", "must have 7 or 8 digits"})
	}
	if input.Status != nil && !isValidLeadStatus(*input.Status) {
		errors = append(errors, ValidationError{"status", "is invalid"})
	}
	return errors
}

func validationFailure(errs []ValidationError) error {
	msg := "validation failed: "
	for i, e := range errs {
		if i > 0 {
			msg += ", "
		}
		msg += e.Field + " (" + e.Message + ")"
	}
	return &DomainError{Code: CodeValidation, Message: msg}
}

// isValidPhoneNumber aceita E.164 ou números locais de 8 a 15 dígitos.
func isValidPhoneNumber(phone string) bool {
	if entity.IsWhatsAppPhone(phone) {
		return true
	}
	cleaned := nonDigits.ReplaceAllString(phone, "")
	return len(cleaned) >= 8 && len(cleaned) <= 15
}

// NormalizePhone keeps a leading "+" and digits only.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}
	digits := nonDigits.ReplaceAllString(phone, "")
	if strings.HasPrefix(phone, "+") {
		return "+" + digits
	}
	return digits
}

func isValidCUIT(cuit string) bool {
	return len(nonDigits.ReplaceAllString(cuit, "")) == 11
}

func isValidDNI(dni string) bool {
	n := len(nonDigits.ReplaceAllString(dni, ""))
	return n == 7 || n == 8
}

func isValidLeadStatus(s entity.LeadStatus) bool {
	switch s {
	case entity.LeadStatusNew, entity.LeadStatusActive, entity.LeadStatusConverted,
		entity.LeadStatusLost, entity.LeadStatusArchived:
		return true
	}
	return false
}
