// Package core defines sentinel errors and address types shared by every layer.
package core

import "errors"

// Sentinel errors. Call sites wrap them with fmt.Errorf("...: %w", err) and
// callers check with errors.Is.
var (
	// Bit-level errors
	ErrLength     = errors.New("framesmith: value exceeds field width")
	ErrAlignment  = errors.New("framesmith: range not aligned to 8 bits")
	ErrOutOfRange = errors.New("framesmith: bit range out of bounds")

	// Header construction and parsing errors
	ErrConstruct    = errors.New("framesmith: cannot construct header")
	ErrParse        = errors.New("framesmith: cannot parse address")
	ErrUnwrapHeader = errors.New("framesmith: header is of another protocol")
	ErrMissingLayer = errors.New("framesmith: frame layer missing or of wrong protocol")

	// Transport errors
	ErrChannel   = errors.New("framesmith: channel error")
	ErrInterface = errors.New("framesmith: interface not found")
	ErrTimeout   = errors.New("framesmith: receive timed out")

	// Configuration errors
	ErrConfigInvalid = errors.New("framesmith: invalid configuration")
	ErrUnknownAction = errors.New("framesmith: unknown rule action")
)
