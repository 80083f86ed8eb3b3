package errors

import "fmt"

// archiveError is the concrete implementation of ArchiveError.
// It is private to enforce construction through package functions.
type archiveError struct {
	code           ErrorCode
	classification ErrorClassification
	message        string
	context        map[string]interface{}
	cause          error
}

// Error returns "[CODE] message" or "[CODE] message: cause".
func (e *archiveError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.code, e.message)
}

// Code returns the error code.
func (e *archiveError) Code() ErrorCode {
	return e.code
}

// Classification returns the error classification.
func (e *archiveError) Classification() ErrorClassification {
	return e.classification
}

// Message returns the error message.
func (e *archiveError) Message() string {
	return e.message
}

// Context returns a copy of the context map, or nil when none is attached.
func (e *archiveError) Context() map[string]interface{} {
	return copyContext(e.context)
}

// Unwrap returns the wrapped error.
func (e *archiveError) Unwrap() error {
	return e.cause
}

func copyContext(src map[string]interface{}) map[string]interface{} {
	if src == nil {
		return nil
	}
	dst := make(map[string]interface{}, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
