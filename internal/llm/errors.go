package llm

import "errors"

// dependencyUnavailableError signals a runtime that is not built in or not
// installed (e.g., llama.cpp, llama-server).
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing runtime dependency.
func IsDependencyUnavailable(err error) bool {
	var e dependencyUnavailableError
	return errors.As(err, &e)
}

// invalidAdapterError signals an adapter directory that cannot be used.
type invalidAdapterError struct {
	dir    string
	reason string
}

func (e invalidAdapterError) Error() string { return "invalid adapter " + e.dir + ": " + e.reason }

// ErrInvalidAdapter constructs an invalidAdapterError.
func ErrInvalidAdapter(dir, reason string) error {
	return invalidAdapterError{dir: dir, reason: reason}
}

// IsInvalidAdapter reports whether err indicates a malformed adapter directory.
func IsInvalidAdapter(err error) bool {
	var e invalidAdapterError
	return errors.As(err, &e)
}
