package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerCustomValidations()
}

func registerCustomValidations() {
	// Withdrawal payout method
	validate.RegisterValidation("withdraw_method", func(fl validator.FieldLevel) bool {
		method := fl.Field().String()
		validMethods := []string{"paypal", "bank"}
		for _, m := range validMethods {
			if method == m {
				return true
			}
		}
		return false
	})

	// Commission type
	validate.RegisterValidation("commission_type", func(fl validator.FieldLevel) bool {
		ct := fl.Field().String()
		validTypes := []string{"signup", "booking", "recurring"}
		for _, t := range validTypes {
			if ct == t {
				return true
			}
		}
		return false
	})

	// Decimal amount string with at most 2 decimal places
	validate.RegisterValidation("amount", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		if err != nil {
			return false
		}
		return d.Exponent() >= -2
	})
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	errors := make(map[string]string)
	for _, err := range err.(validator.ValidationErrors) {
		field := err.Field()
		switch err.Tag() {
		case "required":
			errors[field] = "This field is required"
		case "min":
			errors[field] = "Value is too short (min: " + err.Param() + ")"
		case "max":
			errors[field] = "Value is too long (max: " + err.Param() + ")"
		case "uuid":
			errors[field] = "Invalid UUID format"
		case "withdraw_method":
			errors[field] = "Invalid method. Must be: paypal or bank"
		case "commission_type":
			errors[field] = "Invalid commission type. Must be: signup, booking, or recurring"
		case "amount":
			errors[field] = "Invalid amount. Must be a decimal with at most 2 decimal places"
		default:
			errors[field] = "Invalid value"
		}
	}

	return errors
}
