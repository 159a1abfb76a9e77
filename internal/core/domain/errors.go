package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAlreadyQueued indicates a document already has a non-terminal
	// item in the target queue.
	ErrAlreadyQueued = errors.New("document already queued")

	// ErrItemClaimed indicates a queue item was claimed by another worker.
	ErrItemClaimed = errors.New("queue item already claimed")

	// ErrBackendUnavailable indicates no model backend is configured or
	// reachable.
	ErrBackendUnavailable = errors.New("model backend unavailable")

	// ErrFileUnreadable indicates the stored artifact could not be read.
	ErrFileUnreadable = errors.New("document file unreadable")

	// ErrUploadFailed indicates the remote file store rejected the artifact.
	ErrUploadFailed = errors.New("artifact upload failed")

	// ErrProcessingTimeout indicates remote preprocessing never reached
	// the ready state within the poll budget.
	ErrProcessingTimeout = errors.New("remote processing timed out")

	// ErrMalformedOutput indicates the model returned output that failed
	// schema validation.
	ErrMalformedOutput = errors.New("malformed model output")
)
