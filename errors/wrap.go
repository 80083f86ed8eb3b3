package errors

import (
	"errors"
	"fmt"
)

// Wrap wraps an error with a code and message while preserving the original
// error for errors.Is and errors.As.
//
// If err already contains an ArchiveError its classification is preserved,
// otherwise the default classification for code is used.
//
// Returns nil if err is nil.
//
// Example:
//
//	if _, err := io.ReadFull(r, blk[:]); err != nil {
//	    return errors.Wrap(err, errors.CodeIO, "failed to read block")
//	}
func Wrap(err error, code ErrorCode, message string) ArchiveError {
	return WrapWithContext(err, code, message, nil)
}

// Wrapf wraps an error with a formatted message.
//
// Returns nil if err is nil.
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) ArchiveError {
	if err == nil {
		return nil
	}
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// WrapWithContext wraps an error and attaches context metadata in a single
// operation. The context map is copied.
//
// Returns nil if err is nil.
//
// Example:
//
//	return errors.WrapWithContext(err, errors.CodeBadExtendedHeaderRecord, "invalid mtime record",
//	    map[string]interface{}{"key": "mtime", "value": v})
func WrapWithContext(err error, code ErrorCode, message string, ctx map[string]interface{}) ArchiveError {
	if err == nil {
		return nil
	}

	classification := getDefaultClassification(code)
	var archiveErr ArchiveError
	if errors.As(err, &archiveErr) {
		classification = archiveErr.Classification()
	}

	return &archiveError{
		code:           code,
		classification: classification,
		message:        message,
		context:        copyContext(ctx),
		cause:          err,
	}
}
