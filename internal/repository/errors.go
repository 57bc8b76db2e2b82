package repository

import (
	"errors"
	"fmt"

	"github.com/CyrilCartoux/watch-pros-sub002/internal/apperr"
	"gorm.io/gorm"
)

// notFound maps a missing row to a not-found error and wraps anything else
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(what + " not found")
	}
	return fmt.Errorf("load %s: %w", what, err)
}
