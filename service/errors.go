package service

import (
	"fmt"
	"strings"
)

// ErrorKind classifies a failed pipeline for the caller.
type ErrorKind string

const (
	KindOCRFailure      ErrorKind = "ocr_failure"
	KindExtractionError ErrorKind = "extraction_error"
	KindTimeout         ErrorKind = "timeout"
)

// PipelineError is the single typed error returned for any failed
// analysis. It names the stage that failed and wraps the stage error,
// which for OCR carries the per-backend attempt list.
type PipelineError struct {
	Kind  ErrorKind
	Stage Stage
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline failed at %s stage (%s): %v", e.Stage, e.Kind, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// BackendAttempt records the outcome of trying one OCR backend,
// including backends skipped because their circuit was open.
type BackendAttempt struct {
	Backend string
	Err     error
}

// OCRError is returned when every configured backend was skipped or
// failed.
type OCRError struct {
	Attempts []BackendAttempt
}

func (e *OCRError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Backend, a.Err))
	}
	return "all OCR backends failed: " + strings.Join(parts, "; ")
}

// SchemaViolationError reports an extractor response that does not
// conform to the contract record schema. Field is the JSON pointer of
// the deepest failing location.
type SchemaViolationError struct {
	Field string
	Cause error
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("extracted contract violates schema at %q: %v", e.Field, e.Cause)
}

func (e *SchemaViolationError) Unwrap() error { return e.Cause }
