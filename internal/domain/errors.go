package domain

import (
	"errors"
	"fmt"
)

// Error classes. Concrete errors below match one of these through errors.Is.
var (
	ErrValidation      = errors.New("validation failed")
	ErrUpstream        = errors.New("upstream provider failed")
	ErrMediaProcessing = errors.New("media processing failed")

	// ErrStoreUnavailable means the record store could not be read or written.
	// Reads degrade to empty; writes must surface it.
	ErrStoreUnavailable = errors.New("record store unavailable")
)

// ValidationError is a rejected request input. Code is the short machine-readable form.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string        { return e.Message }
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

var (
	ErrMissingTerms          = &ValidationError{Code: "missing_terms", Message: "at least one search term is required"}
	ErrMissingPlaceID        = &ValidationError{Code: "missing_place_id", Message: "place_id is required"}
	ErrMissingFile           = &ValidationError{Code: "missing_file", Message: "a photo file is required"}
	ErrInvalidFileType       = &ValidationError{Code: "invalid_file_type", Message: "only image uploads are allowed"}
	ErrFileTooLarge          = &ValidationError{Code: "file_too_large", Message: "file exceeds the 12 MiB limit"}
	ErrMissingPhotoReference = &ValidationError{Code: "missing_photoreference", Message: "photoreference is required"}
)

// UpstreamError wraps any failure of a places provider call.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string        { return fmt.Sprintf("upstream %s: %v", e.Op, e.Err) }
func (e *UpstreamError) Unwrap() error        { return e.Err }
func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

// MediaProcessingError is a failed variant derivation. It never fails an upload.
type MediaProcessingError struct {
	Stage string // decode|encode|store
	Err   error
}

func (e *MediaProcessingError) Error() string        { return fmt.Sprintf("media %s: %v", e.Stage, e.Err) }
func (e *MediaProcessingError) Unwrap() error        { return e.Err }
func (e *MediaProcessingError) Is(target error) bool { return target == ErrMediaProcessing }
