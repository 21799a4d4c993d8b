// Package pdferr defines the error taxonomy shared by the edit and transform engines.
package pdferr

import (
	"errors"
	"fmt"
)

// Sentinel errors. Callers match them with errors.Is; the engines wrap them
// with page or operation context.
var (
	// ErrCorruptDocument means the input could not be parsed as a PDF
	ErrCorruptDocument = errors.New("corrupt document")

	// ErrPasswordProtected means the input is encrypted and cannot be opened
	ErrPasswordProtected = errors.New("document is password protected")

	// ErrPageIndexOutOfRange means a page index is outside [0, pageCount)
	ErrPageIndexOutOfRange = errors.New("page index out of range")

	// ErrInvalidCropDimensions means margins leave a zero or negative crop area
	ErrInvalidCropDimensions = errors.New("invalid crop dimensions")

	// ErrNothingToOrganize means the page order list is empty
	ErrNothingToOrganize = errors.New("nothing to organize")

	// ErrUnsupportedImageFormat means image bytes are neither PNG nor JPEG
	ErrUnsupportedImageFormat = errors.New("unsupported image format")

	// ErrBakeFailed means the document library failed while materializing edits
	ErrBakeFailed = errors.New("bake failed")
)

// PageError attaches a 0-indexed page to an error. Error() reports the page
// 1-indexed since the message is user-facing.
type PageError struct {
	Page int
	Err  error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page %d: %v", e.Page+1, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}

// NewPageError wraps err with the page it concerns
func NewPageError(page int, err error) error {
	return &PageError{Page: page, Err: err}
}

// PageOutOfRange reports an invalid page index against a page count
func PageOutOfRange(page, pageCount int) error {
	return fmt.Errorf("%w: index %d, document has %d pages", ErrPageIndexOutOfRange, page, pageCount)
}

// BakeError records which bake operation failed and preserves the library cause.
type BakeError struct {
	Op  string
	Err error
}

func (e *BakeError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrBakeFailed, e.Op, e.Err)
}

// Unwrap exposes both ErrBakeFailed and the original cause to errors.Is.
func (e *BakeError) Unwrap() []error {
	return []error{ErrBakeFailed, e.Err}
}

// Bake wraps a library error as a bake failure. Errors that already belong to
// the taxonomy are returned unchanged so validation failures keep their kind.
func Bake(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsValidation(err) {
		return err
	}
	var be *BakeError
	if errors.As(err, &be) {
		return err
	}
	return &BakeError{Op: op, Err: err}
}

// IsValidation reports whether err is an input validation failure that is
// detected before any bake attempt.
func IsValidation(err error) bool {
	return errors.Is(err, ErrPageIndexOutOfRange) ||
		errors.Is(err, ErrInvalidCropDimensions) ||
		errors.Is(err, ErrNothingToOrganize) ||
		errors.Is(err, ErrUnsupportedImageFormat)
}
