package repositories

import (
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound is returned by repositories when a row does not exist. Decode
// paths map the driver's no-row condition to this sentinel instead of letting
// gorm.ErrRecordNotFound leak to services.
var ErrNotFound = errors.New("record not found")

// IsNotFoundError reports whether err represents a missing row from any
// repository implementation.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}
