// Package validation provides input validation for registration forms.
package validation

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// MaxRequestSize is the maximum request body size (1MB)
const MaxRequestSize = 1 << 20 // 1MB

// MaxStringLength is the maximum length for string fields
const MaxStringLength = 500

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	// Nigerian mobile numbers: +234XXXXXXXXXX, 234XXXXXXXXXX, or 0XXXXXXXXXX
	phoneRegex = regexp.MustCompile(`^(\+?234[0-9]{10}|0[0-9]{10})$`)
	// National Identification Number: exactly 11 digits
	ninRegex = regexp.MustCompile(`^[0-9]{11}$`)
	// NUBAN bank account number: exactly 10 digits
	accountNumberRegex = regexp.MustCompile(`^[0-9]{10}$`)
	// CAC-style registration numbers, e.g. "RC123456" or "BN1234567"
	regNumberRegex = regexp.MustCompile(`^[A-Z]{2,3}[0-9]{4,10}$`)
)

// RequestSizeMiddleware limits request body size
func RequestSizeMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// IsValidEmail checks if a string is a plausible email address
func IsValidEmail(email string) bool {
	return emailRegex.MatchString(strings.TrimSpace(email))
}

// IsValidPhone checks if a string is a valid Nigerian mobile number
func IsValidPhone(phone string) bool {
	return phoneRegex.MatchString(normalizeDigits(phone))
}

// IsValidNIN checks if a string is a valid National Identification Number
func IsValidNIN(nin string) bool {
	return ninRegex.MatchString(strings.TrimSpace(nin))
}

// IsValidAccountNumber checks if a string is a valid 10-digit NUBAN account number
func IsValidAccountNumber(acct string) bool {
	return accountNumberRegex.MatchString(normalizeDigits(acct))
}

// IsValidRegNumber checks if a string looks like a corporate registration number
func IsValidRegNumber(reg string) bool {
	return regNumberRegex.MatchString(strings.ToUpper(strings.TrimSpace(reg)))
}

// normalizeDigits strips spaces and dashes commonly typed into numeric fields
func normalizeDigits(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "-", "")
	return s
}

// NormalizePhone converts a Nigerian number to canonical +234 form.
// Returns the input unchanged when it doesn't match a known shape.
func NormalizePhone(phone string) string {
	p := normalizeDigits(phone)
	switch {
	case strings.HasPrefix(p, "+234"):
		return p
	case strings.HasPrefix(p, "234"):
		return "+" + p
	case strings.HasPrefix(p, "0") && len(p) == 11:
		return "+234" + p[1:]
	}
	return phone
}

// SanitizeString removes dangerous characters and limits length.
// NUL bytes are stripped before truncating so the limit applies to
// the cleaned value.
func SanitizeString(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\x00", "")
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	return e[0].Field + ": " + e[0].Message
}

// Validate runs validators and collects their errors
func Validate(validators ...func() *ValidationError) ValidationErrors {
	var errs ValidationErrors
	for _, v := range validators {
		if err := v(); err != nil {
			errs = append(errs, *err)
		}
	}
	return errs
}

// Required checks if a field is non-empty
func Required(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if strings.TrimSpace(value) == "" {
			return &ValidationError{Field: field, Message: "is required"}
		}
		return nil
	}
}

// Email checks an email field
func Email(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if !IsValidEmail(value) {
			return &ValidationError{Field: field, Message: "must be a valid email address"}
		}
		return nil
	}
}

// Phone checks a Nigerian phone field
func Phone(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if !IsValidPhone(value) {
			return &ValidationError{Field: field, Message: "must be a valid Nigerian phone number"}
		}
		return nil
	}
}

// NIN checks a National Identification Number field
func NIN(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if !IsValidNIN(value) {
			return &ValidationError{Field: field, Message: "must be an 11-digit NIN"}
		}
		return nil
	}
}

// AccountNumber checks a bank account number field
func AccountNumber(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if !IsValidAccountNumber(value) {
			return &ValidationError{Field: field, Message: "must be a 10-digit account number"}
		}
		return nil
	}
}
