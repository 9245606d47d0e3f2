// pkg/inview/errors.go
package inview

import "fmt"

// Both error types are returned as pointers so callers can classify failures
// with errors.As instead of matching on message text.

// InvalidContainerError reports a container that cannot act as a viewport
// boundary for the queried element.
type InvalidContainerError struct {
	Reason string
}

func (e *InvalidContainerError) Error() string {
	return "invalid container: " + e.Reason
}

func newInvalidContainer(format string, args ...any) *InvalidContainerError {
	return &InvalidContainerError{Reason: fmt.Sprintf(format, args...)}
}

// InvalidArgumentError reports a malformed option or an argument of the wrong kind.
type InvalidArgumentError struct {
	Name   string
	Value  string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid argument %s = %q: %s", e.Name, e.Value, e.Reason)
	}
	return fmt.Sprintf("invalid argument %s = %q", e.Name, e.Value)
}

func newInvalidArgument(name, value, reason string) *InvalidArgumentError {
	return &InvalidArgumentError{Name: name, Value: value, Reason: reason}
}
