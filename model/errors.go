package model

import "errors"

// Error kinds. Match with errors.Is.
var (
	ErrPersistence = errors.New("persistence error")
	ErrNotFound    = errors.New("response not found")
	ErrExport      = errors.New("export error")
	ErrBackup      = errors.New("backup error")
	ErrValidation  = errors.New("validation error")
)

// Error carries the kind of a core failure, the dotted operation code that
// produced it and the underlying cause.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return e.Kind == target }

func Persistence(op string, err error) error { return &Error{ErrPersistence, op, err} }
func NotFound(op string) error               { return &Error{ErrNotFound, op, nil} }
func Export(op string, err error) error      { return &Error{ErrExport, op, err} }
func Backup(op string, err error) error      { return &Error{ErrBackup, op, err} }
func Validation(op string, err error) error  { return &Error{ErrValidation, op, err} }
