package apicloud

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/utof/debtds/internal/core/domain"
)

// Outcome is the class of one API exchange.
type Outcome int

const (
	// OutcomeSuccess is a well-formed envelope with status 200.
	OutcomeSuccess Outcome = iota
	// OutcomePermanent is a well-formed envelope with another status. It is
	// cached as a negative result and never retried.
	OutcomePermanent
	// OutcomeRetryable is a transport error, a non-2xx reply or an
	// unreadable body. It is never cached.
	OutcomeRetryable
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomePermanent:
		return "permanent"
	case OutcomeRetryable:
		return "retryable"
	default:
		return "unknown"
	}
}

// StatusOK is the application-level success status.
const StatusOK = 200

// ErrMalformedResponse marks a reply whose body is not a readable envelope.
var ErrMalformedResponse = errors.New("malformed api response")

// PermanentError is an application-level failure reported by the API.
type PermanentError struct {
	Endpoint string
	Status   int
	Message  string
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("%s: api status %d: %s", e.Endpoint, e.Status, e.Message)
}

// RetryableError is a failure worth retrying on a later run.
type RetryableError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *RetryableError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: http %d: %v", e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Endpoint, e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err should leave the key uncached.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// IsPermanent reports whether err is an application-level failure.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// Inquiry carries account information attached to responses.
type Inquiry struct {
	Balance domain.FlexString `json:"balance"`
}

// Envelope is the part shared by every api-cloud response.
type Envelope struct {
	Status   domain.FlexString `json:"status"`
	ErrorMsg string            `json:"errormsg,omitempty"`
	Message  string            `json:"message,omitempty"`
	Inquiry  *Inquiry          `json:"inquiry,omitempty"`
}

// StatusCode returns the application status, or 0 when absent.
func (e Envelope) StatusCode() int {
	n, err := e.Status.Int()
	if err != nil {
		return 0
	}
	return n
}

// Balance returns the reported account balance, if any.
func (e Envelope) Balance() *float64 {
	if e.Inquiry == nil || e.Inquiry.Balance == "" {
		return nil
	}
	b, err := e.Inquiry.Balance.Float()
	if err != nil {
		slog.Warn("Could not parse balance from API response", "balance", e.Inquiry.Balance)
		return nil
	}
	return &b
}

// Classify sorts one HTTP exchange into an Outcome. The error is nil on
// success, *RetryableError or *PermanentError otherwise.
func Classify(endpoint string, statusCode int, body []byte, transportErr error) (Envelope, Outcome, error) {
	var env Envelope

	if transportErr != nil {
		return env, OutcomeRetryable, &RetryableError{Endpoint: endpoint, Err: transportErr}
	}
	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return env, OutcomeRetryable, &RetryableError{
			Endpoint:   endpoint,
			StatusCode: statusCode,
			Err:        fmt.Errorf("unexpected http status"),
		}
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return env, OutcomeRetryable, &RetryableError{
			Endpoint:   endpoint,
			StatusCode: statusCode,
			Err:        fmt.Errorf("%w: %v", ErrMalformedResponse, err),
		}
	}
	if env.Status == "" {
		return env, OutcomeRetryable, &RetryableError{
			Endpoint:   endpoint,
			StatusCode: statusCode,
			Err:        fmt.Errorf("%w: missing status", ErrMalformedResponse),
		}
	}

	if code := env.StatusCode(); code != StatusOK {
		msg := env.ErrorMsg
		if msg == "" {
			msg = env.Message
		}
		if msg == "" {
			msg = "Unknown API error"
		}
		return env, OutcomePermanent, &PermanentError{Endpoint: endpoint, Status: code, Message: msg}
	}
	return env, OutcomeSuccess, nil
}
