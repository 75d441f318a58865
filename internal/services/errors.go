package services

import (
	"errors"
	"strings"
)

// ErrProductNotFound is returned when the requested product id does not exist.
var ErrProductNotFound = errors.New("product not found")

// ValidationError carries one message per violated product rule.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Errors, "; ")
}
