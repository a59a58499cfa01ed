package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/kmein/menstruation-telegram/internal/domain"
	"github.com/kmein/menstruation-telegram/internal/domain/ports/adapter"
	"github.com/kmein/menstruation-telegram/internal/domain/ports/repository"
	"github.com/kmein/menstruation-telegram/internal/infra/metrics"
)

// Compile-time check
var _ BroadcastUseCase = (*broadcastUC)(nil)

type BroadcastUseCase interface {
	// Broadcast sends text to every known chat except the sender. Chats
	// that blocked the bot are removed from the store. Returns how many
	// sends succeeded and failed.
	Broadcast(ctx context.Context, fromChatID int64, text string) (sent, failed int, err error)
}

type broadcastUC struct {
	users   repository.UserRepository
	bot     adapter.TelegramBotAdapter
	limiter *rate.Limiter
	log     *zerolog.Logger
}

// NewBroadcastUseCase takes a send limiter so a broadcast cannot trip the
// platform's flood control for everyone else.
func NewBroadcastUseCase(users repository.UserRepository, bot adapter.TelegramBotAdapter, limiter *rate.Limiter, logger *zerolog.Logger) *broadcastUC {
	return &broadcastUC{users: users, bot: bot, limiter: limiter, log: logger}
}

func (u *broadcastUC) Broadcast(ctx context.Context, fromChatID int64, text string) (int, int, error) {
	ids, err := u.users.Users(ctx)
	if err != nil {
		return 0, 0, err
	}
	sent, failed := 0, 0
	for _, id := range ids {
		if id == fromChatID {
			continue
		}
		if err := u.limiter.Wait(ctx); err != nil {
			return sent, failed, err
		}
		err := u.bot.SendMessage(ctx, id, text)
		switch {
		case err == nil:
			sent++
			metrics.IncBroadcast(true)
		case errors.Is(err, domain.ErrBotBlocked):
			u.log.Info().Int64("chat_id", id).Msg("blocked during broadcast; removing user")
			if rerr := u.users.RemoveUser(ctx, id); rerr != nil {
				u.log.Error().Err(rerr).Int64("chat_id", id).Msg("remove after block failed")
			}
			failed++
			metrics.IncBroadcast(false)
		default:
			u.log.Error().Err(err).Int64("chat_id", id).Msg("broadcast send failed")
			failed++
			metrics.IncBroadcast(false)
		}
	}
	u.log.Info().Int("sent", sent).Int("failed", failed).Msg("broadcast finished")
	return sent, failed, nil
}
