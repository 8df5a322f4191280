// Package errs defines the typed error taxonomy shared by the snapshot
// pipeline. Callers branch on these types with errors.As rather than
// matching message strings.
package errs

import (
	"errors"
	"fmt"
	"time"
)

// ParseFailureKind classifies why a snapshot file could not be parsed.
type ParseFailureKind string

const (
	// Unreadable means the file bytes could not be opened as a workbook.
	Unreadable ParseFailureKind = "unreadable"
	// SchemaInvalid means the workbook opened but its header failed
	// schema validation.
	SchemaInvalid ParseFailureKind = "schema_invalid"
)

// ParseFailure reports a snapshot file that could not be turned into a
// table. Whether it aborts the run or just skips the file is the
// orchestrator's decision, not the parser's.
type ParseFailure struct {
	Kind   ParseFailureKind
	File   string
	Reason string
	Err    error
}

func (e *ParseFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s: %s: %s: %v", e.File, e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("parse %s: %s: %s", e.File, e.Kind, e.Reason)
}

func (e *ParseFailure) Unwrap() error { return e.Err }

// NewUnreadable wraps a workbook-open failure.
func NewUnreadable(file string, err error) *ParseFailure {
	return &ParseFailure{Kind: Unreadable, File: file, Reason: "cannot open workbook", Err: err}
}

// NewSchemaInvalid reports a header that failed validation.
func NewSchemaInvalid(file, reason string) *ParseFailure {
	return &ParseFailure{Kind: SchemaInvalid, File: file, Reason: reason}
}

// DateParseError means a filename matched the configured pattern but its
// captured substring is not a valid calendar date. Always fatal: it
// signals a misconfigured pattern or a look-alike filename, never a file
// to silently exclude.
type DateParseError struct {
	File     string
	Captured string
	Err      error
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("file %s: captured %q is not a valid date: %v", e.File, e.Captured, e.Err)
}

func (e *DateParseError) Unwrap() error { return e.Err }

// DuplicateDateError means two snapshot files resolved to the same date.
// Fatal unless the run explicitly allows duplicates, because ambiguous
// ordering corrupts first/last-observed provenance.
type DuplicateDateError struct {
	Date  time.Time
	Files []string
}

func (e *DuplicateDateError) Error() string {
	return fmt.Sprintf("duplicate snapshot date %s across files %v", e.Date.Format("2006-01-02"), e.Files)
}

// AuthError wraps a credential acquisition or authorization failure.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth: %s: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// FetchError wraps a remote listing or download failure that is not an
// authorization problem.
type FetchError struct {
	Remote string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.Remote, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.Remote, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsParseFailure reports whether err is a ParseFailure, returning it for
// inspection when so.
func IsParseFailure(err error) (*ParseFailure, bool) {
	var pf *ParseFailure
	if errors.As(err, &pf) {
		return pf, true
	}
	return nil, false
}

// IsAuth reports whether err is (or wraps) an AuthError.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}
