package errors

// ArchiveError extends the standard error interface with the structured
// information every codec in this module reports.
//
// An ArchiveError carries a code identifying the failure kind, a
// classification for retry decisions, a human-readable message, optional
// context metadata (entry path, byte offset, record key) and the wrapped
// cause. It stays compatible with errors.Is, errors.As and errors.Unwrap.
type ArchiveError interface {
	error

	// Code returns the error code identifying the failure kind.
	Code() ErrorCode

	// Classification returns whether the error is retryable or permanent.
	Classification() ErrorClassification

	// Message returns the human-readable error message.
	Message() string

	// Context returns attached metadata as a read-only map.
	// Returns nil if no context has been attached.
	Context() map[string]interface{}

	// Unwrap returns the wrapped error, or nil.
	Unwrap() error
}
