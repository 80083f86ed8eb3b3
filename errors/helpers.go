package errors

import (
	stderrors "errors"
)

// Is reports whether any error in err's chain matches target.
// It is a convenience wrapper around the standard library errors.Is.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// It is a convenience wrapper around the standard library errors.As.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// GetCode extracts the ErrorCode from the outermost ArchiveError in err's
// chain. Returns CodeUnknown if err is nil or carries no ArchiveError.
//
// Example:
//
//	if errors.GetCode(err) == errors.CodeUnexpectedEnd {
//	    // truncated download, fetch again
//	}
func GetCode(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	var archiveErr ArchiveError
	if stderrors.As(err, &archiveErr) {
		return archiveErr.Code()
	}

	return CodeUnknown
}

// HasCode reports whether any ArchiveError in err's chain carries code.
// Unlike GetCode it looks past the outermost ArchiveError, so a wrapped
// MALFORMED_HEADER stays visible behind a SECURITY_VIOLATION or IO_ERROR.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		var archiveErr ArchiveError
		if !stderrors.As(err, &archiveErr) {
			return false
		}
		if archiveErr.Code() == code {
			return true
		}
		err = archiveErr.Unwrap()
	}
	return false
}

// GetClassification extracts the ErrorClassification from err.
// Returns ClassificationPermanent if err is nil or carries no ArchiveError.
func GetClassification(err error) ErrorClassification {
	if err == nil {
		return ClassificationPermanent
	}

	var archiveErr ArchiveError
	if stderrors.As(err, &archiveErr) {
		return archiveErr.Classification()
	}

	return ClassificationPermanent
}

// IsRetryable returns true if the error is classified as retryable.
// Returns false if err is nil or carries no ArchiveError.
func IsRetryable(err error) bool {
	return GetClassification(err).IsRetryable()
}
