package model

import "errors"

// Error kinds signalled by the ingestion and query flow.
// Callers pick "show previous data", "show empty state" or "show error state"
// by classifying with errors.Is.
var (
	// ErrEmptyDocument indicates no usable content after line normalization.
	ErrEmptyDocument = errors.New("empty document")

	// ErrMissingHeaders indicates no header row survived line filtering.
	ErrMissingHeaders = errors.New("missing headers")

	// ErrTransport indicates the raw document could not be fetched.
	ErrTransport = errors.New("transport failure")

	// ErrPersistence indicates the cache medium rejected a read or write.
	// Always recovered locally.
	ErrPersistence = errors.New("persistence failure")

	// ErrNoSource indicates no source URL is configured.
	ErrNoSource = errors.New("no source configured")

	// ErrRecordNotFound indicates a record position outside the loaded data set.
	ErrRecordNotFound = errors.New("record not found")
)
