// Package jinerr defines jin's stable error taxonomy and exit codes.
//
// Every error the core returns to a CLI command should be one of these
// types (or wrap one via %w) so that cmd/ can map it to the correct exit
// code per spec.md §6.
package jinerr

import (
	"errors"
	"fmt"
)

// ExitCode mirrors the distinct-category-to-distinct-code mapping of spec.md §6.
type ExitCode int

const (
	ExitOK              ExitCode = 0
	ExitGeneric         ExitCode = 1
	ExitUsage           ExitCode = 2
	ExitValidation      ExitCode = 3
	ExitNotInitialized  ExitCode = 4
	ExitConflict        ExitCode = 5
	ExitDetached        ExitCode = 6
	ExitStoreOrIO       ExitCode = 7
)

// ValidationError reports a bad flag combination, invalid name, reserved
// word, or missing required context.
type ValidationError struct {
	Rule  string // the rule that was violated
	Input string // the offending input
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed (%s): %q", e.Rule, e.Input)
}

func (e *ValidationError) ExitCode() ExitCode { return ExitValidation }

// NotInitializedError reports a missing workspace or global store.
type NotInitializedError struct {
	What string
}

func (e *NotInitializedError) Error() string {
	return fmt.Sprintf("not initialized: %s", e.What)
}

func (e *NotInitializedError) ExitCode() ExitCode { return ExitNotInitialized }

// NotFoundError reports an absent mode/scope/project/layer/file.
type NotFoundError struct {
	Kind string // "mode", "scope", "project", "layer", "file"
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Name)
}

func (e *NotFoundError) ExitCode() ExitCode { return ExitGeneric }

// AlreadyExistsError reports a duplicate mode/scope creation.
type AlreadyExistsError struct {
	Kind string
	Name string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Kind, e.Name)
}

func (e *AlreadyExistsError) ExitCode() ExitCode { return ExitValidation }

// ConflictError reports a lost ref CAS or divergent remote history.
type ConflictError struct {
	Ref      string
	Expected string
	Actual   string
	Reason   string // e.g. "divergent-history"
}

func (e *ConflictError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("conflict on %s: %s", e.Ref, e.Reason)
	}
	return fmt.Sprintf("conflict on %s: expected %s, found %s", e.Ref, e.Expected, e.Actual)
}

func (e *ConflictError) ExitCode() ExitCode { return ExitConflict }

// DetachedWorkspaceError reports one of the three attachment-rule failures.
type DetachedWorkspaceError struct {
	Reason       string
	RecoveryHint string
}

func (e *DetachedWorkspaceError) Error() string {
	return fmt.Sprintf("workspace is detached: %s (%s)", e.Reason, e.RecoveryHint)
}

func (e *DetachedWorkspaceError) ExitCode() ExitCode { return ExitDetached }

// ParseError reports a codec failure for a specific file.
type ParseError struct {
	Format  string
	Path    string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s (%s): %s", e.Path, e.Format, e.Message)
}

func (e *ParseError) ExitCode() ExitCode { return ExitGeneric }

// UnsupportedForTomlNullError reports a Null value that cannot be encoded in TOML.
type UnsupportedForTomlNullError struct {
	Path string // dotted path to the offending null, for diagnostics
}

func (e *UnsupportedForTomlNullError) Error() string {
	return fmt.Sprintf("TOML cannot represent null at %q", e.Path)
}

func (e *UnsupportedForTomlNullError) ExitCode() ExitCode { return ExitGeneric }

// UnsupportedForIniNestingError reports a nested object below two levels
// deep, which INI's section/key model cannot represent.
type UnsupportedForIniNestingError struct {
	Path string
}

func (e *UnsupportedForIniNestingError) Error() string {
	return fmt.Sprintf("INI cannot represent nested object at %q", e.Path)
}

func (e *UnsupportedForIniNestingError) ExitCode() ExitCode { return ExitGeneric }

// StoreError wraps an underlying object/ref store I/O failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string  { return fmt.Sprintf("store error during %s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error  { return e.Err }
func (e *StoreError) ExitCode() ExitCode { return ExitStoreOrIO }

// TransportError wraps a remote connectivity/auth/not-found failure.
type TransportError struct {
	Kind string // "auth", "network", "not-found"
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error (%s): %v", e.Kind, e.Err)
}
func (e *TransportError) Unwrap() error  { return e.Err }
func (e *TransportError) ExitCode() ExitCode { return ExitStoreOrIO }

// Coder is implemented by every error type above so cmd/ can map errors to
// process exit codes without a type switch per call site.
type Coder interface {
	error
	ExitCode() ExitCode
}

// CodeOf returns the exit code for err, defaulting to ExitGeneric for plain errors.
func CodeOf(err error) ExitCode {
	if err == nil {
		return ExitOK
	}
	var c Coder
	if errors.As(err, &c) {
		return c.ExitCode()
	}
	return ExitGeneric
}
