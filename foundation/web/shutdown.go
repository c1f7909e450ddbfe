package web

import "errors"

// shutdown is a type used to help with the graceful termination of
// the service.
type shutdown struct {
	Message string
}

// NewShutdownError returns an error that causes the framework to
// signal a graceful shutdown.
func NewShutdownError(message string) error {
	return &shutdown{message}
}

// Error implements the error interface.
func (s *shutdown) Error() string {
	return s.Message
}

// IsShutdown checks to see if the shutdown error is contained in the
// specified error value.
func IsShutdown(err error) bool {
	var sd *shutdown
	return errors.As(err, &sd)
}
