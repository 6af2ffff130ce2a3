package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
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
	// Worldcoin payment network validation
	validate.RegisterValidation("network", func(fl validator.FieldLevel) bool {
		network := fl.Field().String()
		validNetworks := []string{"optimism", "world-chain", ""}
		for _, n := range validNetworks {
			if network == n {
				return true
			}
		}
		return false
	})

	// Chart timeframe validation
	validate.RegisterValidation("timeframe", func(fl validator.FieldLevel) bool {
		tf := fl.Field().String()
		validTimeframes := []string{"auto", "1m", "5m", "15m", "30m", "1h", "4h", "1d", "1w", "1M"}
		for _, v := range validTimeframes {
			if tf == v {
				return true
			}
		}
		return false
	})

	// Prediction outcome validation
	validate.RegisterValidation("outcome", func(fl validator.FieldLevel) bool {
		outcome := fl.Field().String()
		validOutcomes := []string{"won", "lost", "ongoing"}
		for _, o := range validOutcomes {
			if outcome == o {
				return true
			}
		}
		return false
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
		case "email":
			errors[field] = "Invalid email format"
		case "min":
			errors[field] = "Value is too short (min: " + err.Param() + ")"
		case "max":
			errors[field] = "Value is too long (max: " + err.Param() + ")"
		case "network":
			errors[field] = "Invalid network. Must be: optimism or world-chain"
		case "timeframe":
			errors[field] = "Invalid timeframe. Must be: auto, 1m, 5m, 15m, 30m, 1h, 4h, 1d, 1w, or 1M"
		case "outcome":
			errors[field] = "Invalid outcome. Must be: won, lost, or ongoing"
		default:
			errors[field] = "Invalid value"
		}
	}

	return errors
}

// ValidateVar validates a single variable
func ValidateVar(field interface{}, tag string) error {
	return validate.Var(field, tag)
}
