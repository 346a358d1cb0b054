// Package errs holds the storefront's error kinds. Each kind knows the HTTP
// status it maps to, so handlers can pass service errors straight to
// ctx.Fail.
package errs

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ValidationError is raised before any store call when input is incomplete.
type ValidationError struct {
	Errors map[string]string
}

func Invalid(field, msg string) *ValidationError {
	return &ValidationError{Errors: map[string]string{field: msg}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Errors))
	for k := range e.Errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "validation failed: " + strings.Join(keys, ", ")
}

func (e *ValidationError) Fields() map[string]string { return e.Errors }

// RemoteWriteError wraps a failed store call.
type RemoteWriteError struct {
	Op  string
	Err error
}

func RemoteWrite(op string, err error) *RemoteWriteError {
	return &RemoteWriteError{Op: op, Err: err}
}

func (e *RemoteWriteError) Error() string   { return fmt.Sprintf("%s failed: %v", e.Op, e.Err) }
func (e *RemoteWriteError) Unwrap() error   { return e.Err }
func (e *RemoteWriteError) HTTPStatus() int { return http.StatusBadGateway }

// GatewayError is a payment that failed, was dismissed or timed out.
type GatewayError struct {
	Reason string
}

func (e *GatewayError) Error() string   { return "payment not completed: " + e.Reason }
func (e *GatewayError) HTTPStatus() int { return http.StatusPaymentRequired }

// StaleReferenceError means an id the caller holds no longer resolves.
type StaleReferenceError struct {
	Kind string
	ID   string
}

func Stale(kind, id string) *StaleReferenceError {
	return &StaleReferenceError{Kind: kind, ID: id}
}

func (e *StaleReferenceError) Error() string {
	return fmt.Sprintf("%s %s no longer exists", e.Kind, e.ID)
}

func (e *StaleReferenceError) HTTPStatus() int { return http.StatusConflict }

// Conflict is an operation that is valid in general but not in the
// entity's current state.
type Conflict string

func (e Conflict) Error() string   { return string(e) }
func (e Conflict) HTTPStatus() int { return http.StatusConflict }
