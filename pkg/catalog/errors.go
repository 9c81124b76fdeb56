package catalog

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrMalformedResponse is wrapped by errors for bodies that cannot be decoded
// or that carry a failure code.
var ErrMalformedResponse = errors.New("malformed catalog response")

// ErrorClass represents a classification of catalog errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx responses.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx responses.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents transport errors and timeouts.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassMalformed represents undecodable or failed bodies.
	ErrorClassMalformed ErrorClass = "malformed"
)

// UpstreamError describes a failed catalog call.
type UpstreamError struct {
	Op         string
	StatusCode int
	Class      ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("catalog %s %s error (status %d): %s: %v",
			e.Op, e.Class, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("catalog %s %s error (status %d): %s",
		e.Op, e.Class, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Classify returns the class of a catalog error, or "" for foreign errors.
func Classify(err error) ErrorClass {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Class
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorClassNetwork
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ErrorClassNetwork
	}
	return ""
}

// classifyStatus maps a non-200 status code to an error class.
func classifyStatus(status int) ErrorClass {
	if status >= 400 && status < 500 {
		return ErrorClassClient
	}
	return ErrorClassServer
}
