package model

import (
	"errors"
	"fmt"
)

// Kind is a stable category for programmatic error handling.
//
// Callers should branch on Kind/Code rather than matching error strings.
// Error() strings are human-readable and may evolve.
type Kind string

const (
	KindParse         Kind = "Parse"
	KindLoad          Kind = "Load"
	KindIntegrity     Kind = "Integrity"
	KindSerialization Kind = "Serialization"
	KindExecution     Kind = "Execution"
	KindVerification  Kind = "Verification"
)

// Code names the specific condition within a Kind.
type Code string

const (
	CodeInvalidHash      Code = "INVALID_HASH"
	CodeInvalidNumber    Code = "INVALID_NUMBER"
	CodeNotFound         Code = "NOT_FOUND"
	CodeCorruptStore     Code = "CORRUPT_STORE"
	CodeUnavailable      Code = "UNAVAILABLE"
	CodeKeyMismatch      Code = "KEY_MISMATCH"
	CodeInvalidKey       Code = "INVALID_KEY"
	CodeCapacityExceeded Code = "CAPACITY_EXCEEDED"
	CodeEncoding         Code = "ENCODING"
	CodeSetup            Code = "SETUP"
	CodeProve            Code = "PROVE"
	CodeDeadline         Code = "DEADLINE"
	CodeInvalidProof     Code = "INVALID_PROOF"
	CodeClaimMismatch    Code = "CLAIM_MISMATCH"
)

// Error is the structured error returned at every pipeline stage boundary.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewError returns a structured error without a cause.
func NewError(kind Kind, code Code, msg string) error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

// WrapError returns a structured error wrapping cause.
func WrapError(kind Kind, code Code, msg string, cause error) error {
	if cause == nil {
		return NewError(kind, code, msg)
	}
	return &Error{Kind: kind, Code: code, Message: msg, Cause: cause}
}

// IsKind reports whether err is (or wraps) an *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// KindOf returns the Kind of a structured error, or "" if err is not one.
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Kind
}

// CodeOf returns the Code of a structured error, or "" if err is not one.
func CodeOf(err error) Code {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Code
}

// Retryable reports whether err describes a transient condition that an outer
// orchestration layer may retry: an unavailable store source or an execution
// that ran out of time. Everything else is final.
func Retryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch {
	case e.Kind == KindLoad && e.Code == CodeUnavailable:
		return true
	case e.Kind == KindExecution && e.Code == CodeDeadline:
		return true
	default:
		return false
	}
}
