package tariff

import (
	"errors"
	"fmt"

	"energy-tariffs/internal/domain"
	"energy-tariffs/internal/storage"
)

// ErrNotImplemented is matched by every NotImplementedError.
var ErrNotImplemented = errors.New("not implemented")

// NotImplementedError names a country/direction pair without a cost formula.
type NotImplementedError struct {
	Country   string
	Direction domain.Direction
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("grid cost not implemented for country %q direction %s", e.Country, e.Direction)
}

// Is reports whether target is ErrNotImplemented.
func (e *NotImplementedError) Is(target error) bool {
	return target == ErrNotImplemented
}

// InvalidInputError names the offending field of a calculation input.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is reports whether target is storage.ErrInvalidInput.
func (e *InvalidInputError) Is(target error) bool {
	return target == storage.ErrInvalidInput
}
