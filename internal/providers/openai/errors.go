package openai

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoImage reports that the provider responded successfully but its response
// carried no usable image payload. This is an upstream contract violation, not
// a validation or transport failure.
var ErrNoImage = errors.New("image provider returned no image data")

// APIError is a provider-side rejection: a non-2xx response with whatever
// status, correlation id, and message the provider supplied.
type APIError struct {
	StatusCode int
	RequestID  string
	Message    string
}

// Error composes one descriptive user-facing string. When the message text
// looks like a content-safety rejection, retry guidance is appended. The
// classification is best-effort string matching; the provider does not send a
// structured code for safety blocks.
func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString("image provider error")
	switch {
	case e.StatusCode != 0 && e.RequestID != "":
		fmt.Fprintf(&b, " (status %d, request id %s)", e.StatusCode, e.RequestID)
	case e.StatusCode != 0:
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	case e.RequestID != "":
		fmt.Fprintf(&b, " (request id %s)", e.RequestID)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if looksLikeSafetyBlock(e.Message) {
		b.WriteString(". The request appears to have been blocked by the provider's safety system; try again with simpler wording")
		if e.RequestID != "" {
			fmt.Fprintf(&b, ", and cite request id %s if you contact the provider", e.RequestID)
		}
		b.WriteString(".")
	}
	return b.String()
}

func looksLikeSafetyBlock(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "safety") || strings.Contains(lower, "policy violation")
}
