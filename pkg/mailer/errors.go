package mailer

import "errors"

var (
	// ErrInvalidRecipient is returned when a recipient is neither a string nor a Recipient.
	ErrInvalidRecipient = errors.New("invalid recipient")
	// ErrQueueClosed is returned by Dispatch after the queue was closed.
	ErrQueueClosed = errors.New("mail queue closed")
	// ErrQueueFull is returned when the queue has no room and no overflow spool.
	ErrQueueFull = errors.New("mail queue full")
	// ErrNoTransport is returned when the selected delivery path is not configured.
	ErrNoTransport = errors.New("no mail transport configured")
)
