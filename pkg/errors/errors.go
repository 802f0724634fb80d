package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
	pkgerrors "github.com/pkg/errors"
)

// Kind classifies a failure surfaced by a run phase.
type Kind string

const (
	KindInvalidInput    Kind = "invalid_input"
	KindToolFailure     Kind = "tool_failure"
	KindSchemaError     Kind = "schema_error"
	KindIntegrityError  Kind = "integrity_error"
	KindReferentialDrop Kind = "referential_drop"
	KindMappingError    Kind = "mapping_error"
	KindCanceled        Kind = "canceled"
)

// Error is a classified failure. Class, Field and Object locate a mapping
// failure inside the rule that produced it.
type Error struct {
	Kind    Kind
	Message string
	LogPath string
	Class   string
	Field   string
	Object  string
	cause   error
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err. An already classified error keeps its kind.
func Wrap(kind Kind, err error, msg string) *Error {
	if err == nil {
		return nil
	}

	var existing *Error
	if stderrors.As(err, &existing) {
		if msg != "" {
			existing.Message = msg + ": " + existing.Message
		}
		return existing
	}

	return &Error{Kind: kind, Message: msg, cause: pkgerrors.WithStack(err)}
}

func Wrapf(kind Kind, err error, format string, args ...any) *Error {
	return Wrap(kind, err, fmt.Sprintf(format, args...))
}

func InvalidInput(format string, args ...any) *Error {
	return Newf(KindInvalidInput, format, args...)
}

func SchemaError(format string, args ...any) *Error {
	return Newf(KindSchemaError, format, args...)
}

func IntegrityError(format string, args ...any) *Error {
	return Newf(KindIntegrityError, format, args...)
}

func ReferentialDrop(format string, args ...any) *Error {
	return Newf(KindReferentialDrop, format, args...)
}

func MappingError(format string, args ...any) *Error {
	return Newf(KindMappingError, format, args...)
}

// ToolFailure records a non zero exit of an external tool together with the
// log it wrote.
func ToolFailure(operation string, exitCode int, logPath string, output string) *Error {
	msg := fmt.Sprintf("%s exited with status %d", operation, exitCode)
	if tail := lastLines(output, 20); tail != "" {
		msg += ":\n" + tail
	}
	return &Error{Kind: KindToolFailure, Message: msg, LogPath: logPath}
}

func (e *Error) Error() string {
	path := []string{}
	if e.Class != "" {
		path = append(path, fmt.Sprintf("class '%s'", e.Class))
	}
	if e.Object != "" {
		path = append(path, fmt.Sprintf("object '%s'", e.Object))
	}
	if e.Field != "" {
		path = append(path, fmt.Sprintf("field '%s'", e.Field))
	}

	msg := e.Message
	if e.cause != nil {
		if msg == "" {
			msg = e.cause.Error()
		} else {
			msg = msg + ": " + e.cause.Error()
		}
	}

	if len(path) == 0 {
		return msg
	}
	return strings.Join(path, " -> ") + ": " + msg
}

func (e *Error) Unwrap() error {
	return e.cause
}

func (e *Error) AddClass(class string) *Error {
	if e.Class == "" {
		e.Class = class
	}
	return e
}

func (e *Error) AddField(field string) *Error {
	if e.Field == "" {
		e.Field = field
	}
	return e
}

func (e *Error) AddObject(id string) *Error {
	if e.Object == "" {
		e.Object = id
	}
	return e
}

func (e *Error) WithLog(path string) *Error {
	if e.LogPath == "" {
		e.LogPath = path
	}
	return e
}

// ToHTTPError converts the error for the API edge.
func (e *Error) ToHTTPError() *httperror.HTTPError {
	status := http.StatusInternalServerError
	switch e.Kind {
	case KindInvalidInput:
		status = http.StatusBadRequest
	case KindMappingError, KindIntegrityError, KindReferentialDrop:
		status = http.StatusUnprocessableEntity
	case KindToolFailure:
		status = http.StatusBadGateway
	case KindCanceled:
		status = http.StatusRequestTimeout
	}

	return httperror.NewHTTPError(status, e.Error()).
		AddMetaValue("kind", string(e.Kind)).
		AddMetaValue("log_path", e.LogPath).
		AddMetaValue("class", e.Class).
		AddMetaValue("field", e.Field)
}

// KindOf returns the kind of err, KindMappingError for unclassified errors.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	if stderrors.Is(err, context.Canceled) {
		return KindCanceled
	}
	return KindMappingError
}

func Is(err error, kind Kind) bool {
	var e *Error
	return stderrors.As(err, &e) && e.Kind == kind
}

// LogPathOf returns the log path attached to err, if any.
func LogPathOf(err error) string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.LogPath
	}
	return ""
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
