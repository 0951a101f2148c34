package domain

// Severity ranks a validation finding.
type Severity string

const (
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
)

// ValidationMessage is a single finding produced by the validator. Findings
// are data, never errors: a failed business rule is a reportable outcome.
type ValidationMessage struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
}

// HasErrors reports whether any message carries ERROR severity. The validator
// guarantees a non-empty message list, so callers never need to distinguish
// "empty" from "clean".
func HasErrors(messages []ValidationMessage) bool {
	for _, m := range messages {
		if m.Severity == SeverityError {
			return true
		}
	}
	return false
}
