package llm

import "fmt"

// Reason classifies extraction failures.
type Reason string

const (
	// ReasonMalformedOutput covers unparseable or structurally wrong model
	// output. The only reason eligible for a repair retry.
	ReasonMalformedOutput Reason = "malformed_output"
	// ReasonInvalid means validation could not be satisfied even after the
	// repair attempt.
	ReasonInvalid       Reason = "validation_failed"
	ReasonQuotaExceeded Reason = "quota_exceeded"
	ReasonTimeout       Reason = "timeout"
	ReasonProvider      Reason = "provider_error"
)

// ExtractionError is a classified model extraction failure.
type ExtractionError struct {
	Reason  Reason
	Message string
	Err     error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction %s: %s: %v", e.Reason, e.Message, e.Err)
	}
	return fmt.Sprintf("extraction %s: %s", e.Reason, e.Message)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
