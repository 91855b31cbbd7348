package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/segyhp/loan-engine/internal/config"
	"github.com/segyhp/loan-engine/internal/domain"
	customError "github.com/segyhp/loan-engine/pkg/errors"
)

// NewValidator builds the request validator. Loan bounds come from configuration.
func NewValidator(cfg config.BusinessConfig) (*validator.Validate, error) {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation("decimal_gt", decimalGreaterThan); err != nil {
		return nil, err
	}

	minAmount, err := decimal.NewFromString(cfg.MinLoanAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid minimum loan amount: %w", err)
	}
	maxAmount, err := decimal.NewFromString(cfg.MaxLoanAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid maximum loan amount: %w", err)
	}

	v.RegisterStructValidation(func(sl validator.StructLevel) {
		req := sl.Current().Interface().(domain.CreateLoanRequest)

		// non-positive values are already reported by the field tags
		if req.Amount.IsPositive() && (req.Amount.LessThan(minAmount) || req.Amount.GreaterThan(maxAmount)) {
			sl.ReportError(req.Amount, "amount", "Amount", "amount_range", "")
		}
		if req.Tenure > 0 && (req.Tenure < cfg.MinTenureMonths || req.Tenure > cfg.MaxTenureMonths) {
			sl.ReportError(req.Tenure, "tenure", "Tenure", "tenure_range", "")
		}
	}, domain.CreateLoanRequest{})

	return v, nil
}

func decimalGreaterThan(fl validator.FieldLevel) bool {
	value, ok := fl.Field().Interface().(decimal.Decimal)
	if !ok {
		return false
	}
	bound, err := decimal.NewFromString(fl.Param())
	if err != nil {
		return false
	}
	return value.GreaterThan(bound)
}

// validationError turns validator output into an INVALID_INPUT business error
// with one readable sentence per failed field.
func validationError(err error, cfg config.BusinessConfig) error {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return customError.WrapInvalidInput(err.Error())
	}

	messages := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		messages = append(messages, fieldMessage(fe, cfg))
	}
	return customError.WrapInvalidInput(strings.Join(messages, " "))
}

func fieldMessage(fe validator.FieldError, cfg config.BusinessConfig) string {
	switch fe.Tag() {
	case "amount_range":
		return fmt.Sprintf("Loan amount must be between %s and %s.", cfg.MinLoanAmount, cfg.MaxLoanAmount)
	case "tenure_range":
		return fmt.Sprintf("Loan tenure must be between %d and %d months.", cfg.MinTenureMonths, cfg.MaxTenureMonths)
	case "decimal_gt":
		if fe.Field() == "interest_rate" {
			return "Interest rate must be a positive value."
		}
		return fmt.Sprintf("%s must be greater than %s.", fe.Field(), fe.Param())
	case "required":
		return fmt.Sprintf("%s is required.", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address.", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters.", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters.", fe.Field(), fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters.", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation.", fe.Field(), fe.Tag())
	}
}
