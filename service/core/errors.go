package core

import "errors"

var (
	// ErrDataUnavailable means a ticker could not be fetched or came back with no usable prices
	ErrDataUnavailable = errors.New("market data unavailable")

	// ErrInsufficientOverlap means the aligned series are too short to produce returns or a fit
	ErrInsufficientOverlap = errors.New("insufficient overlapping observations")

	// ErrDegenerateRegression means the benchmark excess return has no variance over the fitted rows
	ErrDegenerateRegression = errors.New("degenerate regression, benchmark excess return has zero variance")

	// ErrMalformedCommand means a text command started with the trigger but its arguments could not be read
	ErrMalformedCommand = errors.New("malformed command")

	// ErrUnrecognizedCommand means a text message did not start with the trigger phrase
	ErrUnrecognizedCommand = errors.New("unrecognized command")
)

// ErrInvalidRequest means an analysis request is missing a ticker or has an unknown frequency
var ErrInvalidRequest = errors.New("invalid analysis request")
