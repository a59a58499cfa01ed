//go:build !integration

package usecase

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/kmein/menstruation-telegram/internal/domain"
)

func testBroadcastUC(repo *memUserRepo, bot *recorderBot) *broadcastUC {
	log := zerolog.Nop()
	return NewBroadcastUseCase(repo, bot, rate.NewLimiter(rate.Inf, 1), &log)
}

func TestBroadcast(t *testing.T) {
	ctx := context.Background()

	t.Run("should reach everyone except the sender", func(t *testing.T) {
		repo := newMemUserRepo()
		for _, id := range []int64{1, 2, 3} {
			repo.SetMenuFilter(ctx, id, "")
		}
		bot := newRecorderBot()
		uc := testBroadcastUC(repo, bot)

		sent, failed, err := uc.Broadcast(ctx, 1, "Hallo")
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if sent != 2 || failed != 0 {
			t.Errorf("sent = %d, failed = %d", sent, failed)
		}
		if len(bot.messagesTo(1)) != 0 {
			t.Error("sender must not receive the broadcast")
		}
	})

	t.Run("should remove users who blocked the bot", func(t *testing.T) {
		repo := newMemUserRepo()
		repo.SetMenuFilter(ctx, 1, "")
		repo.SetMenuFilter(ctx, 2, "")
		bot := newRecorderBot()
		bot.errs[2] = domain.ErrBotBlocked
		uc := testBroadcastUC(repo, bot)

		sent, failed, err := uc.Broadcast(ctx, 99, "Hallo")
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if sent != 1 || failed != 1 {
			t.Errorf("sent = %d, failed = %d", sent, failed)
		}
		ids, _ := repo.Users(ctx)
		for _, id := range ids {
			if id == 2 {
				t.Error("blocked user should have been removed")
			}
		}
	})
}
