package ohm

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrNotSaved is returned when an operation needs a persisted id but the
	// record's id is still 0.
	ErrNotSaved = errors.New("ohm: record not saved")

	// ErrNotFound is wrapped into a DecoderError when a record hash is missing.
	ErrNotFound = errors.New("not found")

	ErrUniqueIndexViolation = errors.New("unique index violation")
	ErrUnknownIndex         = errors.New("unknown index")
)

// StoreError wraps a transport or protocol failure reported by the Store.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func storeErrf(op, key string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{op, key, err}
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Error() string {
	var buf strings.Builder
	buf.WriteString("ohm: store ")
	buf.WriteString(e.Op)
	if e.Key != "" {
		buf.WriteByte(' ')
		buf.WriteString(e.Key)
	}
	buf.WriteString(": ")
	buf.WriteString(e.Err.Error())
	return buf.String()
}

// EncodingError means a field value cannot be rendered to the store's scalar
// representation.
type EncodingError struct {
	Model string
	Field string
	Err   error
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("ohm: encoding %s.%s: %v", e.Model, e.Field, e.Err)
}

// DecoderError means stored data is missing or malformed for a required field.
type DecoderError struct {
	Model string
	Field string
	Err   error
}

func decoderErrf(model, field string, err error, format string, args ...any) error {
	if format != "" {
		err = fmt.Errorf(format+": %w", append(args, err)...)
	}
	return &DecoderError{model, field, err}
}

func (e *DecoderError) Unwrap() error {
	return e.Err
}

func (e *DecoderError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("ohm: decoding %s: %v", e.Model, e.Err)
	}
	return fmt.Sprintf("ohm: decoding %s.%s: %v", e.Model, e.Field, e.Err)
}

// UnknownIndexError is a configuration error: a declared unique or indexed
// field is absent from the encoded attributes.
type UnknownIndexError struct {
	Model string
	Field string
}

func (e *UnknownIndexError) Is(target error) bool {
	return target == ErrUnknownIndex
}

func (e *UnknownIndexError) Error() string {
	return fmt.Sprintf("ohm: %s: unknown index %q", e.Model, e.Field)
}

// UniqueIndexViolationError reports that another record already owns the
// value of a unique field. Nothing has been written when it is returned.
type UniqueIndexViolationError struct {
	Model string
	Field string
}

func (e *UniqueIndexViolationError) Is(target error) bool {
	return target == ErrUniqueIndexViolation
}

func (e *UniqueIndexViolationError) Error() string {
	if e.Model == "" {
		return "UniqueIndexViolation: " + e.Field
	}
	return fmt.Sprintf("ohm: %s: UniqueIndexViolation: %s", e.Model, e.Field)
}

// CommandError means a command token produced by the solver is not valid
// text and cannot be sent to the store.
type CommandError struct {
	Token []byte
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("ohm: invalid command token %x", e.Token)
}

var uniqueViolationRe = regexp.MustCompile(`UniqueIndexViolation: (\w+)`)

// asUniqueViolation recognizes both typed violations and the textual form
// produced by server-side scripts.
func asUniqueViolation(model string, err error) (*UniqueIndexViolationError, bool) {
	var uv *UniqueIndexViolationError
	if errors.As(err, &uv) {
		return &UniqueIndexViolationError{model, uv.Field}, true
	}
	if m := uniqueViolationRe.FindStringSubmatch(err.Error()); m != nil {
		return &UniqueIndexViolationError{model, m[1]}, true
	}
	return nil, false
}
