package errors

// ErrorCode represents a specific error condition.
// Error codes are string-based for debuggability and natural JSON serialization.
type ErrorCode string

const (
	// Container format errors.

	// CodeMalformedHeader indicates a header block failed its checksum, carried
	// an unknown magic, an unterminated name field or an undecodable number.
	CodeMalformedHeader ErrorCode = "MALFORMED_HEADER"

	// CodeUnexpectedEnd indicates the stream ended inside a header chain or a
	// payload.
	CodeUnexpectedEnd ErrorCode = "UNEXPECTED_END_OF_ARCHIVE"

	// CodeBadExtendedHeaderRecord indicates a PAX record whose length prefix,
	// separator or value could not be parsed.
	CodeBadExtendedHeaderRecord ErrorCode = "BAD_EXTENDED_HEADER_RECORD"

	// CodePathTooLong indicates a path that does not fit the fixed header and
	// no extension mechanism is available to carry it.
	CodePathTooLong ErrorCode = "PATH_TOO_LONG"

	// CodeOutOfDeclaredSize indicates a payload write past the size declared in
	// the entry header.
	CodeOutOfDeclaredSize ErrorCode = "OUT_OF_DECLARED_SIZE"

	// CodeIncompletePayload indicates an entry was closed before its declared
	// size was written.
	CodeIncompletePayload ErrorCode = "INCOMPLETE_PAYLOAD"

	// CodeUnrepresentable indicates a header field value that the selected
	// dialect cannot encode.
	CodeUnrepresentable ErrorCode = "UNREPRESENTABLE_FIELD"

	// CodeUnsupportedFormat indicates a container or compression format this
	// module cannot read or write.
	CodeUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"

	// CodeDigestMismatch indicates content did not match its expected digest.
	CodeDigestMismatch ErrorCode = "DIGEST_MISMATCH"

	// Validation errors.

	// CodeInvalidInput indicates the provided input is invalid.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeInvalidState indicates an operation was called out of order, such
	// as writing payload with no open entry.
	CodeInvalidState ErrorCode = "INVALID_STATE"

	// CodeInvalidConfig indicates a configuration error prevents the operation.
	CodeInvalidConfig ErrorCode = "INVALID_CONFIGURATION"

	// CodeSecurityViolation indicates an archive entry breached an extraction
	// limit or escaped the extraction root.
	CodeSecurityViolation ErrorCode = "SECURITY_VIOLATION"

	// Resource errors.

	// CodeNotFound indicates a requested file or entry does not exist.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// Infrastructure errors.

	// CodeIO indicates the underlying byte stream failed.
	CodeIO ErrorCode = "IO_ERROR"

	// CodeCanceled indicates the operation's context was canceled.
	CodeCanceled ErrorCode = "CANCELED"

	// System errors.

	// CodeInternal indicates an internal error occurred.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeUnknown indicates an unknown or unclassified error occurred.
	CodeUnknown ErrorCode = "UNKNOWN"
)
