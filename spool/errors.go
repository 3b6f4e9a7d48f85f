package spool

import "errors"

var (
	// ErrSpoolDrained signals end-of-stream on a spool iterator.
	ErrSpoolDrained = errors.New("spool drained")
)
