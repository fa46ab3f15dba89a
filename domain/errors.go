package domain

import (
	"github.com/juju/errors"
)

const (
	// ErrUpstream marks failures of the speech analysis provider or the
	// feedback generation backend.
	ErrUpstream = errors.ConstError("upstream failure")

	// ErrStorage marks unrecoverable write faults of the feedback store.
	ErrStorage = errors.ConstError("storage failure")
)

// UpstreamError wraps err so that errors.Is(err, ErrUpstream) holds.
func UpstreamError(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.WithType(errors.Annotatef(err, format, args...), ErrUpstream)
}

// StorageError wraps err so that errors.Is(err, ErrStorage) holds.
func StorageError(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.WithType(errors.Annotatef(err, format, args...), ErrStorage)
}

// IsUpstream reports whether err was caused by an upstream collaborator.
func IsUpstream(err error) bool {
	return errors.Is(err, ErrUpstream)
}

// IsStorage reports whether err is a storage fault.
func IsStorage(err error) bool {
	return errors.Is(err, ErrStorage)
}
