package errors

import "fmt"

// New creates a new ArchiveError with the given code and message.
// The classification is determined by the code's default mapping.
//
// Example:
//
//	err := errors.New(errors.CodeMalformedHeader, "header checksum mismatch")
func New(code ErrorCode, message string) ArchiveError {
	return &archiveError{
		code:           code,
		classification: getDefaultClassification(code),
		message:        message,
	}
}

// Newf creates a new ArchiveError with a formatted message.
//
// Example:
//
//	err := errors.Newf(errors.CodePathTooLong, "path of %d bytes does not fit a ustar header", len(p))
func Newf(code ErrorCode, format string, args ...interface{}) ArchiveError {
	return New(code, fmt.Sprintf(format, args...))
}
