package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNoMensaSelected means the user never picked a canteen. Terminal for
	// the current delivery attempt; the user has to run /mensa first.
	ErrNoMensaSelected = errors.New("no mensa selected")

	// ErrUpstream marks a retryable failure of the menu backend: a network
	// error or a payload that did not decode.
	ErrUpstream = errors.New("upstream failure")

	// ErrBotBlocked means Telegram refuses deliveries to this chat. The
	// subscription has to be dropped; retrying can never succeed.
	ErrBotBlocked = errors.New("bot blocked by user")
)
