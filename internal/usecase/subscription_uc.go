package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/kmein/menstruation-telegram/internal/domain/model"
	"github.com/kmein/menstruation-telegram/internal/domain/ports/repository"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

// SubscribeOutcome tells the caller which reply to send.
type SubscribeOutcome int

const (
	// SubscribeNoop means the user was already subscribed with the same filter.
	SubscribeNoop SubscribeOutcome = iota
	// SubscribeNew means a fresh subscription was created.
	SubscribeNew
	// SubscribeRefreshed means an existing subscription got a new filter.
	SubscribeRefreshed
)

type SubscriptionUseCase interface {
	Subscribe(ctx context.Context, chatID int64, filterText string) (SubscribeOutcome, error)
	// Unsubscribe reports whether the user actually had a subscription.
	Unsubscribe(ctx context.Context, chatID int64) (bool, error)
	// SetTime stores a new "HH:MM" delivery time and, for subscribers,
	// reschedules the trigger. Returns domain.ErrInvalidArgument for
	// malformed input.
	SetTime(ctx context.Context, chatID int64, hhmm string) error
}

type subscriptionUC struct {
	users repository.UserRepository
	jobs  JobScheduler
	log   *zerolog.Logger
}

func NewSubscriptionUseCase(users repository.UserRepository, jobs JobScheduler, logger *zerolog.Logger) *subscriptionUC {
	return &subscriptionUC{users: users, jobs: jobs, log: logger}
}

func (u *subscriptionUC) Subscribe(ctx context.Context, chatID int64, filterText string) (SubscribeOutcome, error) {
	oldFilter, err := u.users.MenuFilterOf(ctx, chatID)
	if err != nil {
		return SubscribeNoop, err
	}
	subscribed, err := u.users.IsSubscriber(ctx, chatID)
	if err != nil {
		return SubscribeNoop, err
	}
	// Any change of the stored filter text counts as a refresh, including
	// going from no filter to one.
	refreshed := oldFilter != filterText

	if subscribed && !refreshed {
		return SubscribeNoop, nil
	}
	if err := u.users.SetSubscription(ctx, chatID, true); err != nil {
		return SubscribeNoop, err
	}
	if err := u.users.SetMenuFilter(ctx, chatID, filterText); err != nil {
		return SubscribeNoop, err
	}
	// AddSubscriber replaces any existing trigger, so this covers both the
	// fresh and the refreshed case.
	if err := u.jobs.AddSubscriber(ctx, chatID); err != nil {
		return SubscribeNoop, err
	}
	u.log.Info().Int64("chat_id", chatID).Str("filter", filterText).Msg("subscribed")
	if subscribed && refreshed {
		return SubscribeRefreshed, nil
	}
	return SubscribeNew, nil
}

func (u *subscriptionUC) Unsubscribe(ctx context.Context, chatID int64) (bool, error) {
	subscribed, err := u.users.IsSubscriber(ctx, chatID)
	if err != nil {
		return false, err
	}
	if !subscribed {
		return false, nil
	}
	if err := u.users.SetSubscription(ctx, chatID, false); err != nil {
		return false, err
	}
	u.jobs.RemoveSubscriber(chatID)
	u.log.Info().Int64("chat_id", chatID).Msg("unsubscribed")
	return true, nil
}

func (u *subscriptionUC) SetTime(ctx context.Context, chatID int64, hhmm string) error {
	if _, _, err := model.ParseTime(hhmm); err != nil {
		return err
	}
	if err := u.users.SetSubscriptionTime(ctx, chatID, hhmm); err != nil {
		return err
	}
	subscribed, err := u.users.IsSubscriber(ctx, chatID)
	if err != nil {
		return err
	}
	if subscribed {
		if err := u.jobs.AddSubscriber(ctx, chatID); err != nil {
			return err
		}
	}
	u.log.Info().Int64("chat_id", chatID).Str("time", hhmm).Msg("subscription time set")
	return nil
}
