package services

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrNoQuestions     = errors.New("no questions found")
	ErrValidation      = errors.New("validation failed")
	ErrConsistency     = errors.New("slug tree changed during update")
	ErrSlugConflict    = errors.New("slug already in use")
	ErrHasDependents   = errors.New("record still has dependents")
	ErrPaymentRequired = errors.New("enrollment required")
)

// dbError maps GORM errors onto the package sentinels, keeping what as context.
func dbError(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errors.Wrap(ErrNotFound, what)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return errors.Wrap(ErrSlugConflict, what)
	}
	return errors.Wrap(err, what)
}
