// Package errors provides the structured errors shared by every package in
// this module.
//
// Each error carries an ErrorCode naming the failure kind, an
// ErrorClassification for retry decisions, a message, optional context
// metadata and the wrapped cause. The package stays compatible with the
// standard library errors package (errors.Is, errors.As, errors.Unwrap).
//
// # Error Codes
//
// Container format failures:
//
//   - CodeMalformedHeader: checksum mismatch, unknown magic, bad number
//   - CodeUnexpectedEnd: stream ended inside a header chain or payload
//   - CodeBadExtendedHeaderRecord: unparsable PAX record
//   - CodePathTooLong: path cannot be carried by the chosen dialect
//   - CodeOutOfDeclaredSize, CodeIncompletePayload: payload size contract
//   - CodeUnrepresentable: header field outside the dialect's range
//
// Surrounding tooling adds CodeUnsupportedFormat, CodeDigestMismatch,
// CodeSecurityViolation, CodeInvalidConfig and the generic codes.
//
// # Classification
//
// Only CodeIO is retryable by default: the byte stream under an archive may
// be a network transport whose owner decides whether to retry. Format
// violations are permanent. Wrapping preserves the classification of the
// innermost ArchiveError.
//
// # Quick Start
//
//	err := errors.New(errors.CodeMalformedHeader, "header checksum mismatch")
//	err = errors.WithContext(err, "offset", 1024)
//
//	if errors.GetCode(err) == errors.CodeMalformedHeader {
//	    // reject the archive
//	}
package errors
