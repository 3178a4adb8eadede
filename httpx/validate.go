package httpx

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validate checks a payload against its `validate` struct tags.
func Validate(payload any) error {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	if err := validate.Struct(payload); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}
