package upload

import (
	"errors"
	"fmt"
)

// Kind classifies why a session did not complete.
type Kind string

const (
	KindHash         Kind = "hash"
	KindValidation   Kind = "validation"
	KindTransfer     Kind = "transfer"
	KindVerification Kind = "verification"
	KindFinalize     Kind = "finalize"
	KindRegister     Kind = "register"
	KindCancelled    Kind = "cancelled"
)

// Error carries the kind and the step that failed along with the cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of an upload error, or "" for other errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
