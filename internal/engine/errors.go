package engine

// alreadyRunningError signals a second concurrent run attempt. Runs are
// never queued or interleaved.
type alreadyRunningError struct{}

func (alreadyRunningError) Error() string { return "a run is already active" }

func ErrAlreadyRunning() error { return alreadyRunningError{} }

// IsAlreadyRunning reports whether err indicates a concurrent run attempt.
func IsAlreadyRunning(err error) bool {
	_, ok := err.(alreadyRunningError)
	return ok
}

// emptyInputError signals there is nothing to process. Rejected before any
// host is spawned.
type emptyInputError struct{}

func (emptyInputError) Error() string { return "no input lines to process" }

func ErrEmptyInput() error { return emptyInputError{} }

// IsEmptyInput reports whether err indicates an empty batch.
func IsEmptyInput(err error) bool {
	_, ok := err.(emptyInputError)
	return ok
}
