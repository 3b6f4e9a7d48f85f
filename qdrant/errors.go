package qdrant

import (
	"errors"
	"fmt"
)

var (
	// ErrURLRequired is returned when the store URL is not provided.
	ErrURLRequired = errors.New("qdrant URL required")

	// ErrCollectionRequired is returned when the collection name is not
	// provided.
	ErrCollectionRequired = errors.New("collection name required")

	// ErrSourceRequired is returned when the source label is not provided.
	ErrSourceRequired = errors.New("source label required")
)

// ConfigError indicates the collection schema does not match what the
// pipeline requires. It is fatal: construction fails before any point is
// read or written, and the message names the failed expectation and how
// to remedy it.
type ConfigError struct {
	msg string
}

func (e *ConfigError) Error() string {
	return e.msg
}

func configErrorf(format string, args ...any) *ConfigError {
	return &ConfigError{msg: fmt.Sprintf(format, args...)}
}
