package config

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)

func wrapLoadError(err error) error {
	return fmt.Errorf("%w: %w", ErrLoadConfig, err)
}

func invalidCategoryError(name string) error {
	return fmt.Errorf("%w: unknown weight category %q", ErrInvalidConfig, name)
}
