package errors

import "errors"

// WithContext adds a single context field to an error.
// Existing context fields are preserved.
//
// If err is not an ArchiveError it is converted to one with CodeUnknown.
// Returns nil if err is nil.
//
// Example:
//
//	err = errors.WithContext(err, "path", hdr.Path)
//	err = errors.WithContext(err, "offset", off)
func WithContext(err error, key string, value interface{}) ArchiveError {
	return WithContextMap(err, map[string]interface{}{key: value})
}

// WithContextMap adds multiple context fields to an error. New fields
// override existing ones with the same key.
//
// If err is not an ArchiveError it is converted to one with CodeUnknown.
// Returns nil if err is nil.
func WithContextMap(err error, ctx map[string]interface{}) ArchiveError {
	if err == nil {
		return nil
	}

	var archiveErr ArchiveError
	if !errors.As(err, &archiveErr) {
		archiveErr = &archiveError{
			code:           CodeUnknown,
			classification: ClassificationPermanent,
			message:        err.Error(),
			cause:          err,
		}
	}

	merged := archiveErr.Context()
	if merged == nil {
		merged = make(map[string]interface{}, len(ctx))
	}
	for k, v := range ctx {
		merged[k] = v
	}

	return &archiveError{
		code:           archiveErr.Code(),
		classification: archiveErr.Classification(),
		message:        archiveErr.Message(),
		context:        merged,
		cause:          archiveErr.Unwrap(),
	}
}
