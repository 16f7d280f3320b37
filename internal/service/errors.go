package service

import (
	"errors"

	"futsal-club/internal/models"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrRateNotDefined   = errors.New("session rate not defined")
	ErrSheetNotFound    = errors.New("attendance sheet not found")
	ErrSheetFinalized   = errors.New("attendance sheet is finalized")
	ErrAlreadyFinalized = errors.New("attendance sheet already finalized")

	ErrInvalidState          = models.ErrInvalidState
	ErrDiscountExceedsAmount = models.ErrDiscountExceedsAmount
	ErrNegativeAmount        = models.ErrNegativeAmount
)
