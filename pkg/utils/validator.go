package utils

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Conversational input arrives as free text typed by users in pt-BR
// locale conventions. "10.000" and "10,000" both mean ten thousand
// miles, "25,50" means a price of 25.50. All parsing of such text goes
// through this file so the rules stay in one place.

const (
	MinAirlineLen = 2
	MaxAirlineLen = 50

	MaxMileQuantity = 100_000_000

	MaxPricePerK = 1000.0

	MinPassengers = 1
	MaxPassengers = 20
)

// ValidateAirline checks a loyalty program name typed by the user.
func ValidateAirline(input string) (string, error) {
	name := strings.TrimSpace(input)
	if len(name) < MinAirlineLen || len(name) > MaxAirlineLen {
		return "", NewError(CodeInvalidParam,
			fmt.Sprintf("program name must be between %d and %d characters", MinAirlineLen, MaxAirlineLen))
	}
	return name, nil
}

// ValidateQuantity parses a mile quantity. Thousands separators in
// either locale ("10.000", "10,000") are stripped before parsing.
func ValidateQuantity(input string) (int64, error) {
	cleaned := strings.NewReplacer(".", "", ",", "").Replace(strings.TrimSpace(input))
	qty, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return 0, NewErrorWithErr(CodeInvalidParam, "quantity must be a whole number", err)
	}
	if qty <= 0 || qty > MaxMileQuantity {
		return 0, NewError(CodeQuantityRange,
			fmt.Sprintf("quantity must be between 1 and %d", MaxMileQuantity))
	}
	return qty, nil
}

// ValidatePrice parses a price per thousand miles. The decimal comma
// is normalized to a dot and any stray currency symbols are dropped.
// The result is rounded to two decimal places.
func ValidatePrice(input string) (float64, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(input), ",", ".")
	// A minus sign must fail here, stripping it below would silently
	// turn "-5" into a valid 5.00.
	if strings.Contains(normalized, "-") {
		return 0, NewError(CodeInvalidAmount, "price must be a positive number")
	}
	var b strings.Builder
	for _, r := range normalized {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	price, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0, NewErrorWithErr(CodeInvalidParam, "price must be a number", err)
	}
	if price <= 0 || price > MaxPricePerK {
		return 0, NewError(CodeInvalidAmount,
			fmt.Sprintf("price must be between 0 and %.0f", MaxPricePerK))
	}
	return math.Round(price*100) / 100, nil
}

// ValidateProposalValue parses a counter-offer price with the same
// rules as ValidatePrice, only the wording of the error differs.
func ValidateProposalValue(input string) (float64, error) {
	price, err := ValidatePrice(input)
	if err != nil {
		if appErr, ok := IsAppError(err); ok {
			return 0, NewError(appErr.Code, "offer "+appErr.Message)
		}
		return 0, err
	}
	return price, nil
}

// ValidatePassengers parses the passenger count for a buy ad.
func ValidatePassengers(input string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return 0, NewErrorWithErr(CodeInvalidParam, "passenger count must be a whole number", err)
	}
	if n < MinPassengers || n > MaxPassengers {
		return 0, NewError(CodeInvalidParam,
			fmt.Sprintf("passenger count must be between %d and %d", MinPassengers, MaxPassengers))
	}
	return n, nil
}

// ValidateCPF strips formatting from a brazilian CPF and checks the
// digit count. Punctuation as in "123.456.789-09" is accepted.
func ValidateCPF(input string) (string, error) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(input) {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	cpf := b.String()
	if len(cpf) != 11 {
		return "", NewError(CodeInvalidParam, "CPF must contain 11 digits")
	}
	return cpf, nil
}

// ValidateID validates an ID path or callback parameter.
func ValidateID(id string) (int64, error) {
	if id == "" {
		return 0, NewError(CodeInvalidParam, "ID cannot be empty")
	}

	idInt, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, NewError(CodeInvalidParam, "ID must be a valid integer")
	}

	if idInt <= 0 {
		return 0, NewError(CodeInvalidParam, "ID must be positive")
	}

	return idInt, nil
}

// ValidateStruct validates struct tags on webhook payloads
func ValidateStruct(obj interface{}) error {
	if err := binding.Validator.ValidateStruct(obj); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// formatValidationError formats validation error
func formatValidationError(err error) error {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		var messages []string
		for _, fieldError := range validationErrors {
			messages = append(messages, getFieldErrorMessage(fieldError))
		}
		return NewError(CodeInvalidParam, strings.Join(messages, "; "))
	}
	return NewErrorWithErr(CodeInvalidParam, "validation failed", err)
}

// getFieldErrorMessage gets field error message
func getFieldErrorMessage(fieldError validator.FieldError) string {
	field := fieldError.Field()
	tag := fieldError.Tag()
	param := fieldError.Param()

	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	default:
		return fmt.Sprintf("%s validation failed", field)
	}
}

// RegisterCustomValidators registers custom validators on gin's binding engine
func RegisterCustomValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	}
}
