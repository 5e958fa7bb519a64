package shared

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrUnknownSource      = fmt.Errorf("unknown source")

	// Source errors. All of them are recoverable: they cost a search one
	// candidate and never surface to the caller.
	ErrSourceTimeout      = fmt.Errorf("source timed out")
	ErrSourceTransport    = fmt.Errorf("source transport error")
	ErrMalformedCandidate = fmt.Errorf("malformed candidate")
	ErrNoMatch            = fmt.Errorf("no candidate cleared the relevance gate")

	// Persistence errors
	ErrArchiveNotFound = fmt.Errorf("archive entry not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
	ErrRateLimited     = fmt.Errorf("too many requests")
)

// ClassifySourceError maps an error returned by a source call onto the source taxonomy.
//
// Errors already wrapping one of the source sentinels are returned unchanged.
// Context deadline and cancellation errors become [ErrSourceTimeout]; anything else is
// treated as [ErrSourceTransport].
func ClassifySourceError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrSourceTimeout),
		errors.Is(err, ErrSourceTransport),
		errors.Is(err, ErrMalformedCandidate),
		errors.Is(err, ErrNoMatch):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %w", ErrSourceTimeout, err)
	default:
		return fmt.Errorf("%w: %w", ErrSourceTransport, err)
	}
}

// ErrorKind returns a short label for a classified source error, used as a log field.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrSourceTimeout):
		return "timeout"
	case errors.Is(err, ErrMalformedCandidate):
		return "malformed"
	case errors.Is(err, ErrNoMatch):
		return "no_match"
	case errors.Is(err, ErrSourceTransport):
		return "transport"
	default:
		return "unknown"
	}
}
