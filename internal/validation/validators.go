package validation

import (
	"fmt"
	"strings"

	"github.com/ametnes/nesis-console/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	if err := Validate.RegisterValidation("resource_id", validateResourceID); err != nil {
		panic(fmt.Sprintf("failed to register resource_id validator: %v", err))
	}
}

// validateResourceID rejects blank ids and the literal "undefined" the
// browser sends when a route is built from a missing value.
func validateResourceID(fl validator.FieldLevel) bool {
	value := strings.TrimSpace(fl.Field().String())
	return value != "" && value != "undefined" && value != "null"
}

// ValidateResourceID validates a path id
func ValidateResourceID(id string) error {
	if err := Validate.Var(id, "resource_id"); err != nil {
		return fmt.Errorf("invalid id: %q", id)
	}
	return nil
}

// ValidateAzureTokenResult checks that the token result carries the fields needed for verification
func ValidateAzureTokenResult(result *models.AzureTokenResult) error {
	if result == nil {
		return fmt.Errorf("azure token result is missing")
	}
	if err := Validate.Struct(result); err != nil {
		return fmt.Errorf("invalid azure token result: %w", err)
	}
	return nil
}
