package db

import "errors"

var (
	ErrUnknownColumn = errors.New("db: column is not updatable")
	ErrNoAssignments = errors.New("db: no columns to update")
)

// StorageError marks a failure to connect, bind or execute. Its message is
// the driver's own text so it can be reported to clients unchanged.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return e.Err.Error() }

func (e *StorageError) Unwrap() error { return e.Err }

func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
