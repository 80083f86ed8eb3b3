package errors

// ErrorClassification indicates whether an error should trigger a retry.
type ErrorClassification string

const (
	// ClassificationRetryable indicates temporary failures that may succeed on
	// retry, such as a flaky transport under the block device.
	ClassificationRetryable ErrorClassification = "RETRYABLE"

	// ClassificationPermanent indicates failures that will not succeed on
	// retry. Every format violation is permanent.
	ClassificationPermanent ErrorClassification = "PERMANENT"
)

// IsRetryable returns true if the classification indicates retry should be attempted.
func (c ErrorClassification) IsRetryable() bool {
	return c == ClassificationRetryable
}

// defaultClassifications maps error codes to their default classification.
var defaultClassifications = map[ErrorCode]ErrorClassification{
	CodeIO: ClassificationRetryable,

	CodeMalformedHeader:         ClassificationPermanent,
	CodeUnexpectedEnd:           ClassificationPermanent,
	CodeBadExtendedHeaderRecord: ClassificationPermanent,
	CodePathTooLong:             ClassificationPermanent,
	CodeOutOfDeclaredSize:       ClassificationPermanent,
	CodeIncompletePayload:       ClassificationPermanent,
	CodeUnrepresentable:         ClassificationPermanent,
	CodeUnsupportedFormat:       ClassificationPermanent,
	CodeDigestMismatch:          ClassificationPermanent,
	CodeInvalidInput:            ClassificationPermanent,
	CodeInvalidState:            ClassificationPermanent,
	CodeInvalidConfig:           ClassificationPermanent,
	CodeSecurityViolation:       ClassificationPermanent,
	CodeNotFound:                ClassificationPermanent,
	CodeCanceled:                ClassificationPermanent,
	CodeInternal:                ClassificationPermanent,
	CodeUnknown:                 ClassificationPermanent,
}

// getDefaultClassification returns the default classification for an error code.
// Unknown codes are permanent.
func getDefaultClassification(code ErrorCode) ErrorClassification {
	if class, ok := defaultClassifications[code]; ok {
		return class
	}
	return ClassificationPermanent
}
