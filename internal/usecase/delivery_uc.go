package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kmein/menstruation-telegram/internal/domain"
	"github.com/kmein/menstruation-telegram/internal/domain/model"
	"github.com/kmein/menstruation-telegram/internal/domain/ports/adapter"
	"github.com/kmein/menstruation-telegram/internal/domain/ports/repository"
	"github.com/kmein/menstruation-telegram/internal/infra/metrics"
)

// Compile-time check
var _ DeliveryUseCase = (*deliveryUC)(nil)

// JobScheduler is the slice of the scheduler the use cases need: keeping a
// user's recurring trigger in sync with their subscription flag.
type JobScheduler interface {
	AddSubscriber(ctx context.Context, chatID int64) error
	RemoveSubscriber(chatID int64)
}

type DeliveryUseCase interface {
	// Deliver runs one scheduled menu delivery for a chat. It never returns
	// an error for conditions that are the user's own state (no mensa
	// selected, unsubscribed meanwhile, bot blocked); those are handled and
	// absorbed here. Errors mean the delivery itself failed.
	Deliver(ctx context.Context, chatID int64) error
}

type deliveryUC struct {
	users repository.UserRepository
	menu  adapter.MenuService
	bot   adapter.TelegramBotAdapter
	jobs  JobScheduler

	retries     int
	backoffBase time.Duration
	backoffCap  time.Duration
	now         func() time.Time
	log         *zerolog.Logger
}

func NewDeliveryUseCase(users repository.UserRepository, menu adapter.MenuService, bot adapter.TelegramBotAdapter, jobs JobScheduler, retries int, logger *zerolog.Logger) *deliveryUC {
	if retries < 1 {
		retries = 1
	}
	return &deliveryUC{
		users:       users,
		menu:        menu,
		bot:         bot,
		jobs:        jobs,
		retries:     retries,
		backoffBase: 500 * time.Millisecond,
		backoffCap:  15 * time.Second,
		now:         time.Now,
		log:         logger,
	}
}

func (u *deliveryUC) Deliver(ctx context.Context, chatID int64) error {
	// one trace id per delivery so the retry attempts correlate in the logs
	log := u.log.With().Str("delivery_id", uuid.NewString()).Int64("chat_id", chatID).Logger()

	subscribed, err := u.users.IsSubscriber(ctx, chatID)
	if err != nil {
		metrics.IncDelivery("fatal")
		return err
	}
	if !subscribed {
		// the persisted flag wins over a stale trigger
		log.Warn().Msg("trigger for unsubscribed user; removing")
		u.jobs.RemoveSubscriber(chatID)
		metrics.IncDelivery("stale")
		return nil
	}

	code, err := u.users.MensaOf(ctx, chatID)
	if errors.Is(err, domain.ErrNoMensaSelected) {
		log.Warn().Msg("subscriber has no mensa selected")
		metrics.IncDelivery("no_mensa")
		return nil
	}
	if err != nil {
		metrics.IncDelivery("fatal")
		return err
	}

	filter, err := u.users.MenuFilterOf(ctx, chatID)
	if err != nil {
		metrics.IncDelivery("fatal")
		return err
	}
	allergens, err := u.users.AllergensOf(ctx, chatID)
	if err != nil {
		metrics.IncDelivery("fatal")
		return err
	}
	q := model.ParseQuery(filter, u.now()).WithAllergens(allergens)

	groups, err := u.fetchWithRetry(ctx, &log, code, q)
	if err != nil {
		metrics.IncDelivery("transient")
		return err
	}

	text := RenderGroups(q.FilterGroups(groups))
	if text == "" {
		err = u.bot.SendMessage(ctx, chatID, "Kein Essen gefunden. "+ErrorEmoji())
	} else {
		err = u.bot.SendMarkdown(ctx, chatID, text)
	}
	if errors.Is(err, domain.ErrBotBlocked) {
		log.Info().Msg("bot blocked; dropping subscription")
		if serr := u.users.SetSubscription(ctx, chatID, false); serr != nil {
			log.Error().Err(serr).Msg("unsubscribe after block failed")
		}
		u.jobs.RemoveSubscriber(chatID)
		metrics.IncDelivery("permanent")
		return nil
	}
	if err != nil {
		metrics.IncDelivery("fatal")
		return err
	}
	if text == "" {
		metrics.IncDelivery("empty")
	} else {
		metrics.IncDelivery("ok")
	}
	return nil
}

// fetchWithRetry retries upstream failures with capped exponential backoff
// and jitter; any other error aborts immediately.
func (u *deliveryUC) fetchWithRetry(ctx context.Context, log *zerolog.Logger, code int, q model.Query) ([]model.MealGroup, error) {
	var lastErr error
	for attempt := 0; attempt < u.retries; attempt++ {
		if attempt > 0 {
			metrics.IncDeliveryRetry()
			if err := sleepCtx(ctx, backoffDelay(u.backoffBase, u.backoffCap, attempt)); err != nil {
				return nil, err
			}
		}
		groups, err := u.menu.GetMenu(ctx, code, q)
		if err == nil {
			return groups, nil
		}
		if !errors.Is(err, domain.ErrUpstream) {
			return nil, err
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt+1).Msg("menu fetch failed")
	}
	return nil, fmt.Errorf("after %d attempts: %w", u.retries, lastErr)
}

// backoffDelay returns base*2^(attempt-1) capped at max, with ±20% jitter.
func backoffDelay(base, max time.Duration, attempt int) time.Duration {
	d := base << (attempt - 1)
	if d > max || d <= 0 {
		d = max
	}
	jitter := time.Duration(rand.Int63n(2*int64(d)/5+1)) - d/5
	return d + jitter
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
