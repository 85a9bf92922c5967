// Package apperrors provides typed application errors that carry an HTTP
// status code and support wrapping. Errors form chains: a package defines a
// root error and derives more specific errors from it with New, so that
// errors.Is matches anywhere along the chain.
package apperrors

// Error is the interface implemented by all application errors. It extends
// the standard error interface with status code management and wrapping.
// Methods return Error to support chaining.
type Error interface {
	error
	Unwrap() error // support for errors.Is / errors.As

	New(msg string) Error                  // derives a new error using the current one as template
	Msg(msg string) Error                  // creates an error with a new message, wrapping the original
	MsgErr(msg string, err ...error) Error // like Msg, additionally wrapping the given errors
	Err(err ...error) Error                // keeps the message, attaches the given errors
	SetStatusCode(int) Error               // sets the HTTP status code
	StatusCode() int                       // returns the HTTP status code
	ErrorAll() string                      // message including all wrapped errors
	UnwrapAll() []error                    // all wrapped errors
}
