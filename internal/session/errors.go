package session

import "classd/pkg/types"

// loadFailureError: the remote asset could not be fetched or parsed.
type loadFailureError struct{ msg string }

func (e loadFailureError) Error() string { return e.msg }

func ErrLoadFailure(msg string) error { return loadFailureError{msg: msg} }

// IsLoadFailure reports whether err indicates an unreachable or unreadable asset.
func IsLoadFailure(err error) bool {
	_, ok := err.(loadFailureError)
	return ok
}

// formatMismatchError: the runtime cannot execute the asset.
type formatMismatchError struct{ msg string }

func (e formatMismatchError) Error() string { return e.msg }

func ErrFormatMismatch(msg string) error { return formatMismatchError{msg: msg} }

// IsFormatMismatch reports whether err indicates a version/opset incompatibility.
func IsFormatMismatch(err error) bool {
	_, ok := err.(formatMismatchError)
	return ok
}

// parseFailureError: the native output shape was not recognized. Reported
// as an error, never as a fabricated neutral result.
type parseFailureError struct{ msg string }

func (e parseFailureError) Error() string { return e.msg }

func ErrParseFailure(msg string) error { return parseFailureError{msg: msg} }

// IsParseFailure reports whether err indicates an unrecognized output shape.
func IsParseFailure(err error) bool {
	_, ok := err.(parseFailureError)
	return ok
}

// inferenceFailureError: the runtime failed while executing a single line.
type inferenceFailureError struct{ msg string }

func (e inferenceFailureError) Error() string { return e.msg }

func ErrInferenceFailure(msg string) error { return inferenceFailureError{msg: msg} }

// IsInferenceFailure reports whether err indicates a per-line runtime error.
func IsInferenceFailure(err error) bool {
	_, ok := err.(inferenceFailureError)
	return ok
}

// Kind maps a session error to its wire-level error kind string.
func Kind(err error) string {
	switch {
	case IsLoadFailure(err):
		return types.ErrKindLoadFailure
	case IsFormatMismatch(err):
		return types.ErrKindFormatMismatch
	case IsParseFailure(err):
		return types.ErrKindParseFailure
	case IsInferenceFailure(err):
		return types.ErrKindInferenceFailure
	default:
		return ""
	}
}
