package common

import "fmt"

// ProviderAnswer is the normalized result of one answer-provider call.
// Defined here to avoid import cycles between the provider packages.
type ProviderAnswer struct {
	Text         string
	Citations    []string
	InputTokens  int
	OutputTokens int
}

// AttemptStatus classifies the outcome of a single provider call so the
// retry policy can be a pure function over the result instead of control
// flow threaded through error handling.
type AttemptStatus int

const (
	// AttemptOK means the call produced a usable answer.
	AttemptOK AttemptStatus = iota
	// AttemptRetry means the call failed in a way worth retrying (rate
	// limit, 5xx, timeout, empty answer body).
	AttemptRetry
	// AttemptFatal means retrying cannot help (bad request, auth failure).
	AttemptFatal
)

// Attempt is the outcome of one provider call.
type Attempt struct {
	Answer *ProviderAnswer
	Status AttemptStatus
	Err    error
}

// OK wraps a successful answer.
func OK(answer *ProviderAnswer) Attempt {
	return Attempt{Answer: answer, Status: AttemptOK}
}

// Retryable wraps a transient failure.
func Retryable(err error) Attempt {
	return Attempt{Status: AttemptRetry, Err: err}
}

// Fatal wraps a failure that retrying cannot fix.
func Fatal(err error) Attempt {
	return Attempt{Status: AttemptFatal, Err: err}
}

// ClassifyStatus maps an HTTP status code to an attempt status. Rate limits
// and server errors are transient; bad requests and auth failures are fatal;
// anything else unexpected is retried on the same path as transient errors.
func ClassifyStatus(code int) AttemptStatus {
	switch code {
	case 400, 401, 403:
		return AttemptFatal
	default:
		return AttemptRetry
	}
}

// StatusError builds the error recorded for a non-200 provider response.
func StatusError(provider string, code int) error {
	return fmt.Errorf("%s API returned status %d", provider, code)
}
