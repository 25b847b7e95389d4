package cache

import "fmt"

// StorageError reports a failed local cache operation. Callers treat these
// as non-fatal: read paths fall back to the remote service and write paths
// log and continue with in-memory state.
type StorageError struct {
	// Op is the cache operation that failed (e.g. "put scan").
	Op string

	// Err is the underlying failure.
	Err error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("cache %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// storageErr wraps err as a *StorageError unless it is nil.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
