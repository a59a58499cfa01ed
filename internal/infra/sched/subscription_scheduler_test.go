//go:build !integration

package sched

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kmein/menstruation-telegram/internal/domain"
	"github.com/kmein/menstruation-telegram/internal/infra/worker"
)

// fakeRepo implements the subset of repository.UserRepository the scheduler
// touches; everything else panics to catch accidental use.
type fakeRepo struct {
	mu         sync.Mutex
	subscribed map[int64]bool
	times      map[int64]string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{subscribed: map[int64]bool{}, times: map[int64]string{}}
}

func (r *fakeRepo) MensaOf(ctx context.Context, chatID int64) (int, error) {
	return 0, domain.ErrNoMensaSelected
}
func (r *fakeRepo) SetMensa(ctx context.Context, chatID int64, code int) error { panic("unused") }
func (r *fakeRepo) AllergensOf(ctx context.Context, chatID int64) ([]string, error) {
	return nil, nil
}
func (r *fakeRepo) SetAllergens(ctx context.Context, chatID int64, codes []string) error {
	panic("unused")
}
func (r *fakeRepo) ResetAllergens(ctx context.Context, chatID int64) error { panic("unused") }

func (r *fakeRepo) IsSubscriber(ctx context.Context, chatID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.subscribed[chatID], nil
}

func (r *fakeRepo) SetSubscription(ctx context.Context, chatID int64, subscribed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribed[chatID] = subscribed
	return nil
}

func (r *fakeRepo) MenuFilterOf(ctx context.Context, chatID int64) (string, error) { return "", nil }
func (r *fakeRepo) SetMenuFilter(ctx context.Context, chatID int64, filter string) error {
	panic("unused")
}

func (r *fakeRepo) SubscriptionTimeOf(ctx context.Context, chatID int64) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.times[chatID], nil
}

func (r *fakeRepo) SetSubscriptionTime(ctx context.Context, chatID int64, hhmm string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.times[chatID] = hhmm
	return nil
}

func (r *fakeRepo) Users(ctx context.Context) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int64, 0, len(r.subscribed))
	for id := range r.subscribed {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *fakeRepo) RemoveUser(ctx context.Context, chatID int64) error { panic("unused") }
func (r *fakeRepo) Count(ctx context.Context) (int, error)             { return len(r.subscribed), nil }

type countingDeliverer struct {
	mu      sync.Mutex
	started chan struct{}
	release chan struct{}
	calls   []int64
}

func (d *countingDeliverer) Deliver(ctx context.Context, chatID int64) error {
	d.mu.Lock()
	d.calls = append(d.calls, chatID)
	d.mu.Unlock()
	if d.started != nil {
		d.started <- struct{}{}
	}
	if d.release != nil {
		<-d.release
	}
	return nil
}

func testScheduler(t *testing.T, repo *fakeRepo) (*SubscriptionScheduler, *worker.Pool) {
	t.Helper()
	log := zerolog.Nop()
	pool := worker.NewPool(2, &log)
	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)
	t.Cleanup(func() {
		cancel()
		pool.Stop()
	})
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatal(err)
	}
	return NewSubscriptionScheduler(repo, pool, "09:00", loc, &log), pool
}

func TestAddSubscriber(t *testing.T) {
	ctx := context.Background()

	t.Run("should register a single trigger per chat", func(t *testing.T) {
		repo := newFakeRepo()
		s, _ := testScheduler(t, repo)

		if err := s.AddSubscriber(ctx, 42); err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if got := len(s.Jobs()); got != 1 {
			t.Errorf("jobs = %d, want 1", got)
		}
	})

	t.Run("should replace the trigger when re-adding the same chat", func(t *testing.T) {
		repo := newFakeRepo()
		s, _ := testScheduler(t, repo)

		repo.times[42] = "08:00"
		if err := s.AddSubscriber(ctx, 42); err != nil {
			t.Fatal(err)
		}
		repo.times[42] = "12:30"
		if err := s.AddSubscriber(ctx, 42); err != nil {
			t.Fatal(err)
		}
		if got := len(s.Jobs()); got != 1 {
			t.Errorf("jobs = %d, want 1", got)
		}
	})

	t.Run("should reject an invalid subscription time", func(t *testing.T) {
		repo := newFakeRepo()
		s, _ := testScheduler(t, repo)

		repo.times[42] = "25:99"
		if err := s.AddSubscriber(ctx, 42); err == nil {
			t.Fatal("expected error for invalid time")
		}
		if got := len(s.Jobs()); got != 0 {
			t.Errorf("jobs = %d, want 0", got)
		}
	})
}

func TestTriggerTimes(t *testing.T) {
	ctx := context.Background()

	// cron computes an entry's fire time once the loop runs, so poll briefly.
	waitNext := func(t *testing.T, s *SubscriptionScheduler) time.Time {
		t.Helper()
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			jobs := s.Jobs()
			if len(jobs) == 1 && !jobs[0].Next.IsZero() {
				return jobs[0].Next
			}
			time.Sleep(10 * time.Millisecond)
		}
		t.Fatal("trigger never got a fire time")
		return time.Time{}
	}

	t.Run("should fire at the default time when none is stored", func(t *testing.T) {
		repo := newFakeRepo()
		s, _ := testScheduler(t, repo)

		if err := s.AddSubscriber(ctx, 42); err != nil {
			t.Fatal(err)
		}
		s.Start()
		t.Cleanup(s.Stop)

		next := waitNext(t, s)
		if next.Hour() != 9 || next.Minute() != 0 {
			t.Errorf("next = %v, want a 09:00 fire time", next)
		}
		if wd := next.Weekday(); wd == time.Saturday || wd == time.Sunday {
			t.Errorf("next = %v, want a weekday", next)
		}
	})

	t.Run("should fire at the stored subscription time", func(t *testing.T) {
		repo := newFakeRepo()
		repo.times[42] = "12:30"
		s, _ := testScheduler(t, repo)

		if err := s.AddSubscriber(ctx, 42); err != nil {
			t.Fatal(err)
		}
		s.Start()
		t.Cleanup(s.Stop)

		next := waitNext(t, s)
		if next.Hour() != 12 || next.Minute() != 30 {
			t.Errorf("next = %v, want a 12:30 fire time", next)
		}
	})
}

func TestRemoveSubscriber(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	s, _ := testScheduler(t, repo)

	if err := s.AddSubscriber(ctx, 42); err != nil {
		t.Fatal(err)
	}
	s.RemoveSubscriber(42)
	if got := len(s.Jobs()); got != 0 {
		t.Errorf("jobs = %d, want 0", got)
	}

	// removing again must be a no-op
	s.RemoveSubscriber(42)
	s.RemoveSubscriber(7)
}

func TestReplay(t *testing.T) {
	ctx := context.Background()

	t.Run("should register triggers only for subscribed users", func(t *testing.T) {
		repo := newFakeRepo()
		repo.subscribed[1] = true
		repo.subscribed[2] = false
		repo.subscribed[3] = true
		s, _ := testScheduler(t, repo)

		if err := s.Replay(ctx); err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if got := len(s.Jobs()); got != 2 {
			t.Errorf("jobs = %d, want 2", got)
		}
	})

	t.Run("should run at most once", func(t *testing.T) {
		repo := newFakeRepo()
		repo.subscribed[1] = true
		s, _ := testScheduler(t, repo)

		if err := s.Replay(ctx); err != nil {
			t.Fatal(err)
		}
		repo.subscribed[9] = true
		if err := s.Replay(ctx); err != nil {
			t.Fatal(err)
		}
		if got := len(s.Jobs()); got != 1 {
			t.Errorf("jobs = %d, want 1", got)
		}
	})
}

func TestDispatch(t *testing.T) {
	t.Run("should run the delivery on the pool", func(t *testing.T) {
		repo := newFakeRepo()
		s, _ := testScheduler(t, repo)
		d := &countingDeliverer{started: make(chan struct{}, 1)}
		s.SetDeliverer(d)

		s.dispatch(42)
		select {
		case <-d.started:
		case <-time.After(2 * time.Second):
			t.Fatal("delivery never ran")
		}
		d.mu.Lock()
		defer d.mu.Unlock()
		if len(d.calls) != 1 || d.calls[0] != 42 {
			t.Errorf("calls = %v", d.calls)
		}
	})

	t.Run("should skip a firing while one is still in flight", func(t *testing.T) {
		repo := newFakeRepo()
		s, _ := testScheduler(t, repo)
		d := &countingDeliverer{started: make(chan struct{}, 1), release: make(chan struct{})}
		s.SetDeliverer(d)

		s.dispatch(42)
		<-d.started
		s.dispatch(42) // must be dropped
		close(d.release)

		time.Sleep(50 * time.Millisecond)
		d.mu.Lock()
		defer d.mu.Unlock()
		if len(d.calls) != 1 {
			t.Errorf("calls = %d, want 1", len(d.calls))
		}
	})
}
