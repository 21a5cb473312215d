package util

import "fmt"

// WrapErr prefixes err with message, keeping it available to errors.Is and errors.As.
func WrapErr(message string, err error) error {
	return fmt.Errorf("%s; %w", message, err)
}
