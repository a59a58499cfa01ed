//go:build !integration

package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/kmein/menstruation-telegram/internal/domain"
)

func testSubscriptionUC(repo *memUserRepo, sched *fakeSched) *subscriptionUC {
	log := zerolog.Nop()
	return NewSubscriptionUseCase(repo, sched, &log)
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()

	t.Run("should create a subscription and schedule a trigger", func(t *testing.T) {
		repo := newMemUserRepo()
		sched := &fakeSched{}
		uc := testSubscriptionUC(repo, sched)

		outcome, err := uc.Subscribe(ctx, 42, "vegan")
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if outcome != SubscribeNew {
			t.Errorf("outcome = %v, want SubscribeNew", outcome)
		}
		subscribed, _ := repo.IsSubscriber(ctx, 42)
		if !subscribed {
			t.Error("user should be subscribed")
		}
		filter, _ := repo.MenuFilterOf(ctx, 42)
		if filter != "vegan" {
			t.Errorf("filter = %q", filter)
		}
		if len(sched.added) != 1 || sched.added[0] != 42 {
			t.Errorf("added = %v, want [42]", sched.added)
		}
	})

	t.Run("should be a no-op when already subscribed with the same filter", func(t *testing.T) {
		repo := newMemUserRepo()
		sched := &fakeSched{}
		uc := testSubscriptionUC(repo, sched)

		if _, err := uc.Subscribe(ctx, 42, "vegan"); err != nil {
			t.Fatal(err)
		}
		outcome, err := uc.Subscribe(ctx, 42, "vegan")
		if err != nil {
			t.Fatal(err)
		}
		if outcome != SubscribeNoop {
			t.Errorf("outcome = %v, want SubscribeNoop", outcome)
		}
		if len(sched.added) != 1 {
			t.Errorf("trigger must not be re-added, added = %v", sched.added)
		}
	})

	t.Run("should refresh when a filter is added to a filterless subscription", func(t *testing.T) {
		repo := newMemUserRepo()
		sched := &fakeSched{}
		uc := testSubscriptionUC(repo, sched)

		if _, err := uc.Subscribe(ctx, 42, ""); err != nil {
			t.Fatal(err)
		}
		outcome, err := uc.Subscribe(ctx, 42, "vegan 3€")
		if err != nil {
			t.Fatal(err)
		}
		if outcome != SubscribeRefreshed {
			t.Errorf("outcome = %v, want SubscribeRefreshed", outcome)
		}
		filter, _ := repo.MenuFilterOf(ctx, 42)
		if filter != "vegan 3€" {
			t.Errorf("filter = %q, want the new filter stored", filter)
		}
		if len(sched.added) != 2 {
			t.Errorf("added = %v, want a reschedule", sched.added)
		}
	})

	t.Run("should refresh the filter and reschedule", func(t *testing.T) {
		repo := newMemUserRepo()
		sched := &fakeSched{}
		uc := testSubscriptionUC(repo, sched)

		if _, err := uc.Subscribe(ctx, 42, "vegan"); err != nil {
			t.Fatal(err)
		}
		outcome, err := uc.Subscribe(ctx, 42, "vegetarisch 3€")
		if err != nil {
			t.Fatal(err)
		}
		if outcome != SubscribeRefreshed {
			t.Errorf("outcome = %v, want SubscribeRefreshed", outcome)
		}
		filter, _ := repo.MenuFilterOf(ctx, 42)
		if filter != "vegetarisch 3€" {
			t.Errorf("filter = %q", filter)
		}
		if len(sched.added) != 2 {
			t.Errorf("added = %v, want two entries", sched.added)
		}
	})
}

func TestUnsubscribe(t *testing.T) {
	ctx := context.Background()

	t.Run("should drop subscription and trigger", func(t *testing.T) {
		repo := newMemUserRepo()
		sched := &fakeSched{}
		uc := testSubscriptionUC(repo, sched)

		if _, err := uc.Subscribe(ctx, 42, ""); err != nil {
			t.Fatal(err)
		}
		had, err := uc.Unsubscribe(ctx, 42)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if !had {
			t.Error("expected an existing subscription")
		}
		subscribed, _ := repo.IsSubscriber(ctx, 42)
		if subscribed {
			t.Error("user should be unsubscribed")
		}
		if len(sched.removed) != 1 || sched.removed[0] != 42 {
			t.Errorf("removed = %v, want [42]", sched.removed)
		}
	})

	t.Run("should report when there was nothing to cancel", func(t *testing.T) {
		repo := newMemUserRepo()
		sched := &fakeSched{}
		uc := testSubscriptionUC(repo, sched)

		had, err := uc.Unsubscribe(ctx, 42)
		if err != nil {
			t.Fatal(err)
		}
		if had {
			t.Error("no subscription existed")
		}
		if len(sched.removed) != 0 {
			t.Errorf("removed = %v, want none", sched.removed)
		}
	})
}

func TestSetTime(t *testing.T) {
	ctx := context.Background()

	t.Run("should store the time and reschedule subscribers", func(t *testing.T) {
		repo := newMemUserRepo()
		sched := &fakeSched{}
		uc := testSubscriptionUC(repo, sched)

		if _, err := uc.Subscribe(ctx, 42, ""); err != nil {
			t.Fatal(err)
		}
		if err := uc.SetTime(ctx, 42, "12:30"); err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		at, _ := repo.SubscriptionTimeOf(ctx, 42)
		if at != "12:30" {
			t.Errorf("time = %q", at)
		}
		if len(sched.added) != 2 {
			t.Errorf("added = %v, want reschedule", sched.added)
		}
	})

	t.Run("should not reschedule non-subscribers", func(t *testing.T) {
		repo := newMemUserRepo()
		sched := &fakeSched{}
		uc := testSubscriptionUC(repo, sched)

		if err := uc.SetTime(ctx, 42, "08:15"); err != nil {
			t.Fatal(err)
		}
		if len(sched.added) != 0 {
			t.Errorf("added = %v, want none", sched.added)
		}
	})

	t.Run("should reject malformed times", func(t *testing.T) {
		repo := newMemUserRepo()
		uc := testSubscriptionUC(repo, &fakeSched{})

		for _, bad := range []string{"25:00", "9", "09:99", "noon"} {
			if err := uc.SetTime(ctx, 42, bad); !errors.Is(err, domain.ErrInvalidArgument) {
				t.Errorf("SetTime(%q) = %v, want ErrInvalidArgument", bad, err)
			}
		}
	})
}
