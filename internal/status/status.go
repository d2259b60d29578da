package status

import "errors"

var (
	ErrUnknownQueue      = errors.New("queue: unknown queue")
	ErrInvalidGroupSize  = errors.New("ticket: group size must be positive")
	ErrTicketNotFound    = errors.New("ticket: ticket not found")
	ErrIllegalTransition = errors.New("ticket: illegal status transition")

	// ErrNoneWaiting is the empty-queue signal from call-next. It is not a
	// failure; handlers translate it into an empty 200 response.
	ErrNoneWaiting = errors.New("queue: no waiting tickets")
)
