package codec

import "errors"

var (
	// ErrMalformedDocument is returned when the document is not valid JSON
	// or a filter entry is not an object.
	ErrMalformedDocument = errors.New("malformed pipeline document")

	// ErrMissingHeader is returned when the PipelineBuilder object is absent.
	ErrMissingHeader = errors.New("pipeline document has no PipelineBuilder object")

	// ErrInvalidHeader is returned when the PipelineBuilder object cannot be decoded.
	ErrInvalidHeader = errors.New("invalid PipelineBuilder object")

	// ErrInvalidFilterCount is returned when Number_Filters is missing or invalid.
	ErrInvalidFilterCount = errors.New("invalid filter count")
)
