package sonarqube

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

var (
	// ErrUnauthorized is returned when authentication fails
	ErrUnauthorized = errors.New("sonarqube authentication failed")

	// ErrForbidden is returned when access is forbidden
	ErrForbidden = errors.New("sonarqube access forbidden")

	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("sonarqube resource not found")

	// ErrBadRequest is returned when the request is malformed
	ErrBadRequest = errors.New("sonarqube bad request")

	// ErrServerError is returned when SonarQube returns a server error
	ErrServerError = errors.New("sonarqube server error")

	// ErrTimeout is returned when a request times out
	ErrTimeout = errors.New("sonarqube request timeout")

	// ErrConnection is returned when the server cannot be reached
	ErrConnection = errors.New("sonarqube connection failed")
)

// APIError wraps SonarQube API errors with additional context
type APIError struct {
	StatusCode int
	Message    string
	URL        string
	Method     string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sonarqube api error: %s (status: %d, method: %s, url: %s): %v",
			e.Message, e.StatusCode, e.Method, e.URL, e.Err)
	}
	return fmt.Sprintf("sonarqube api error: %s (status: %d, method: %s, url: %s)",
		e.Message, e.StatusCode, e.Method, e.URL)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// maxErrorDetail bounds how much of an error response body is carried into
// the error message.
const maxErrorDetail = 200

// WrapStatusError converts a non-2xx response into a structured APIError
func WrapStatusError(statusCode int, body, method, url string) error {
	message := fmt.Sprintf("HTTP %d: %s", statusCode, http.StatusText(statusCode))
	if detail := strings.TrimSpace(body); detail != "" {
		if len(detail) > maxErrorDetail {
			detail = detail[:maxErrorDetail]
		}
		message += ": " + detail
	}

	return &APIError{
		StatusCode: statusCode,
		Message:    message,
		URL:        url,
		Method:     method,
		Err:        mapErrorType(statusCode),
	}
}

// WrapTransportError converts a transport-level failure into a structured
// APIError
func WrapTransportError(err error, method, url string) error {
	if err == nil {
		return nil
	}

	kind := ErrConnection
	if errors.Is(err, context.DeadlineExceeded) {
		kind = ErrTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		kind = ErrTimeout
	}

	return &APIError{
		Message: err.Error(),
		URL:     url,
		Method:  method,
		Err:     kind,
	}
}

// mapErrorType maps HTTP status codes to specific error types
func mapErrorType(statusCode int) error {
	switch statusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusRequestTimeout:
		return ErrTimeout
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return ErrServerError
	default:
		// No specific mapping; the status code still identifies the failure
		return nil
	}
}

// IsAuthError checks if an error is an authentication error
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrForbidden)
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsTimeoutError checks if an error is a timeout error
func IsTimeoutError(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsConnectionError checks if an error is a connection error
func IsConnectionError(err error) bool {
	return errors.Is(err, ErrConnection)
}
