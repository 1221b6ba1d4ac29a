package services

import (
	"fmt"
)

// MissingCredentialsError is returned before any request is made when the
// auth key id or secret is empty.
type MissingCredentialsError struct {
	AuthKeyID string
	AuthKey   string
}

func (e *MissingCredentialsError) Error() string {
	return fmt.Sprintf("lack of mandatory option: (%s, %s)", orUndefined(e.AuthKeyID), maskSecret(e.AuthKey))
}

// NetworkError is a transport level failure: DNS, refused connection, timeout.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("request to %s %s failed: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// HTTPStatusError is a non-2xx response. Body holds the raw response body.
type HTTPStatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected %d response from %s %s: %s", e.StatusCode, e.Method, e.URL, string(e.Body))
}

// DecodeError means a response body was not valid JSON for the expected shape.
type DecodeError struct {
	Method string
	URL    string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode response from %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// AuthenticationError is returned when the auth endpoint rejects the
// credentials. It unwraps to the underlying *HTTPStatusError.
type AuthenticationError struct {
	Err *HTTPStatusError
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// Decode stages reported by MalformedPayloadError.
const (
	StageContent = "content"
	StagePayload = "payload"
	StageBase64  = "base64"
	StageText    = "text"
	StageJSON    = "json"
)

// MalformedPayloadError is a data integrity failure while decoding the
// nested content of a telemetry record.
type MalformedPayloadError struct {
	Stage string
	Err   error
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("malformed payload (%s): %v", e.Stage, e.Err)
}

func (e *MalformedPayloadError) Unwrap() error {
	return e.Err
}

func orUndefined(s string) string {
	if s == "" {
		return "undefined"
	}
	return s
}

func maskSecret(s string) string {
	if s == "" {
		return "undefined"
	}
	return "********"
}
