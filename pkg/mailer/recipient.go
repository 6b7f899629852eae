package mailer

import (
	"fmt"
	"strings"
)

// Recipient is anything that has an email address.
type Recipient interface {
	EmailAddress() string
}

// Address is a plain email address.
type Address string

// EmailAddress implements Recipient.
func (a Address) EmailAddress() string {
	return string(a)
}

func resolveAddress(recipient any) (string, error) {
	var address string

	switch r := recipient.(type) {
	case string:
		address = r
	case Recipient:
		address = r.EmailAddress()
	default:
		return "", fmt.Errorf("%w: unsupported type %T", ErrInvalidRecipient, recipient)
	}

	if strings.TrimSpace(address) == "" {
		return "", fmt.Errorf("%w: empty address", ErrInvalidRecipient)
	}

	return address, nil
}
