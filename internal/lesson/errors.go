package lesson

import "errors"

var (
	// ErrCancelled marks a record that was explicitly cancelled upstream.
	// Cancelled records are dropped, not failed.
	ErrCancelled = errors.New("lesson: record cancelled")

	// ErrMalformed marks a record missing a required field. Such records
	// are skipped; they never abort a batch.
	ErrMalformed = errors.New("lesson: malformed record")
)
