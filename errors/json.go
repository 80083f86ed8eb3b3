package errors

import (
	"encoding/json"
)

// ErrorResponse is the flat JSON form of an error, used by command line
// tools that report failures in machine-readable form.
//
// The wrapped error chain is excluded; Code, Message and Context carry the
// useful detail.
type ErrorResponse struct {
	// Code is the error code identifying the failure kind.
	Code string `json:"code"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Classification indicates whether the error is retryable or permanent.
	Classification string `json:"classification"`

	// Context contains optional metadata about the error.
	Context map[string]interface{} `json:"context,omitempty"`
}

// ToJSON converts any error to an ErrorResponse suitable for JSON serialization.
// Returns nil if err is nil.
//
// For ArchiveError instances the code, message, classification and context
// are extracted. Standard errors map to CodeUnknown with their Error() text.
//
// Example:
//
//	if err := cmd.Execute(); err != nil {
//	    _ = json.NewEncoder(os.Stderr).Encode(errors.ToJSON(err))
//	}
func ToJSON(err error) *ErrorResponse {
	if err == nil {
		return nil
	}

	message := err.Error()
	var context map[string]interface{}

	var archiveErr ArchiveError
	if As(err, &archiveErr) {
		message = archiveErr.Message()
		context = archiveErr.Context()
	}

	return &ErrorResponse{
		Code:           string(GetCode(err)),
		Message:        message,
		Classification: string(GetClassification(err)),
		Context:        context,
	}
}

// MarshalJSON implements json.Marshaler for archiveError.
func (e *archiveError) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(&ErrorResponse{
		Code:           string(e.code),
		Message:        e.message,
		Classification: string(e.classification),
		Context:        e.context,
	})
	if err != nil {
		return nil, &archiveError{
			code:           CodeInternal,
			classification: ClassificationPermanent,
			message:        "failed to marshal error response",
			cause:          err,
		}
	}
	return data, nil
}
