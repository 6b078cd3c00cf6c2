package domain

import "errors"

// EmptyResultMessage is shown in the dashboard's message slot whenever a
// filter matches nothing.
const EmptyResultMessage = "No data fit selected criteria"

var (
	// ErrEmptyResult means a filter pass matched zero records.
	ErrEmptyResult = errors.New("no records matched the active filters")

	// ErrMissingBaseline means refine or reset ran with no generated set.
	ErrMissingBaseline = errors.New("working set is empty: generate first")

	// ErrSessionNotFound means the session ID is unknown or expired.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidField means a present form field holds an out-of-domain value.
	ErrInvalidField = errors.New("invalid form field")

	// ErrDatasetUnavailable means the base dataset has not been loaded.
	ErrDatasetUnavailable = errors.New("dataset not loaded")
)
