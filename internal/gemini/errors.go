package gemini

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingAPIKey indicates an absent or placeholder credential.
	// Fatal to the call; never retried.
	ErrMissingAPIKey = errors.New("gemini: API key missing or placeholder, configure GEMINI_API_KEY")

	// ErrAllModelsExhausted indicates every rotation entry failed with
	// a quota error within one logical request.
	ErrAllModelsExhausted = errors.New("gemini: all models exceeded quota")

	// ErrNoResponseText indicates a successful HTTP exchange whose body
	// carried no text part. Treated as non-retryable.
	ErrNoResponseText = errors.New("gemini: no text found in API response")
)

// APIError is a backend-reported error from the top-level error field.
type APIError struct {
	Message string
	Status  string
	Code    int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini: API error %d %s: %s", e.Code, e.Status, e.Message)
}

// quotaSignatures are the substrings that mark a backend error as quota
// exhaustion. This is the sole signal driving model fallback and a
// brittle integration seam: update here if the backend's error format
// changes.
var quotaSignatures = []string{
	"quota",
	"resource_exhausted",
	"rate limit",
}

// IsQuotaError reports whether err carries a quota-exhaustion signature.
func IsQuotaError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	msg := strings.ToLower(apiErr.Message + " " + apiErr.Status)
	for _, sig := range quotaSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}
