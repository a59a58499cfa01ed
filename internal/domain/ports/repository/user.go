package repository

import (
	"context"
)

// -----------------------------
// Users
// -----------------------------

// UserRepository is the per-user settings store. Every operation touches a
// single field so that concurrent command handlers and the scheduler
// callback never lose each other's updates; last-write-wins per field is
// acceptable.
type UserRepository interface {
	// MensaOf returns the selected canteen code, or domain.ErrNoMensaSelected
	// when the user never picked one.
	MensaOf(ctx context.Context, chatID int64) (int, error)
	SetMensa(ctx context.Context, chatID int64, code int) error

	AllergensOf(ctx context.Context, chatID int64) ([]string, error)
	SetAllergens(ctx context.Context, chatID int64, codes []string) error
	ResetAllergens(ctx context.Context, chatID int64) error

	IsSubscriber(ctx context.Context, chatID int64) (bool, error)
	SetSubscription(ctx context.Context, chatID int64, subscribed bool) error

	MenuFilterOf(ctx context.Context, chatID int64) (string, error)
	SetMenuFilter(ctx context.Context, chatID int64, filter string) error

	// SubscriptionTimeOf returns "" when the user has no explicit time; the
	// caller falls back to the configured default.
	SubscriptionTimeOf(ctx context.Context, chatID int64) (string, error)
	SetSubscriptionTime(ctx context.Context, chatID int64, hhmm string) error

	Users(ctx context.Context) ([]int64, error)
	RemoveUser(ctx context.Context, chatID int64) error
	Count(ctx context.Context) (int, error)
}
