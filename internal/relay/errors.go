package relay

import "errors"

// Domain errors for the relay package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, relay.ErrMissingParameters) {
//	    // reject the request, nothing was forwarded
//	}
var (
	// ErrMissingParameters is returned when the command lacks the target
	// IP, the relay identifier, or the desired state. No network call is
	// made in this case.
	ErrMissingParameters = errors.New("relay: missing required parameters")

	// ErrUpstreamUnreachable is returned when the controller cannot be
	// reached (connection refused, timeout, DNS failure). It wraps the
	// transport error.
	ErrUpstreamUnreachable = errors.New("relay: controller unreachable")
)
