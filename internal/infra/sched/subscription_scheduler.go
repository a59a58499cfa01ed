package sched

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/kmein/menstruation-telegram/internal/domain/model"
	"github.com/kmein/menstruation-telegram/internal/domain/ports/repository"
	"github.com/kmein/menstruation-telegram/internal/infra/metrics"
	"github.com/kmein/menstruation-telegram/internal/infra/worker"
)

// Menus only exist on weekdays.
const weekdays = "1-5"

// Deliverer is what the scheduler fires. The callback only gets the chat id;
// all user state is re-read inside the pipeline so filter or allergen
// changes apply without rescheduling.
type Deliverer interface {
	Deliver(ctx context.Context, chatID int64) error
}

type JobInfo struct {
	ChatID int64
	Next   time.Time
}

// SubscriptionScheduler owns at most one recurring cron entry per chat id
// and dispatches deliveries through the worker pool, so a slow upstream
// never blocks the cron goroutine or other users' fire times.
type SubscriptionScheduler struct {
	repo        repository.UserRepository
	pool        *worker.Pool
	log         *zerolog.Logger
	defaultTime string

	mu        sync.Mutex
	c         *cron.Cron
	entries   map[int64]cron.EntryID
	inflight  map[int64]bool
	deliverer Deliverer

	replayOnce sync.Once
}

func NewSubscriptionScheduler(repo repository.UserRepository, pool *worker.Pool, defaultTime string, loc *time.Location, logger *zerolog.Logger) *SubscriptionScheduler {
	compLog := logger.With().Str("component", "SubscriptionScheduler").Logger()
	return &SubscriptionScheduler{
		repo:        repo,
		pool:        pool,
		log:         &compLog,
		defaultTime: defaultTime,
		c:           cron.New(cron.WithLocation(loc)),
		entries:     map[int64]cron.EntryID{},
		inflight:    map[int64]bool{},
	}
}

// SetDeliverer wires the delivery pipeline. Must be called before Replay or
// Start; it exists because the pipeline in turn needs the scheduler to drop
// jobs on permanent failure.
func (s *SubscriptionScheduler) SetDeliverer(d Deliverer) {
	s.mu.Lock()
	s.deliverer = d
	s.mu.Unlock()
}

// AddSubscriber registers the user's recurring weekday trigger, replacing
// any existing one so that re-subscribing can never produce duplicate daily
// messages.
func (s *SubscriptionScheduler) AddSubscriber(ctx context.Context, chatID int64) error {
	at, err := s.repo.SubscriptionTimeOf(ctx, chatID)
	if err != nil {
		return err
	}
	if at == "" {
		at = s.defaultTime
	}
	hour, minute, err := model.ParseTime(at)
	if err != nil {
		return err
	}
	spec := fmt.Sprintf("%d %d * * %s", minute, hour, weekdays)

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.entries[chatID]; ok {
		s.c.Remove(old)
		delete(s.entries, chatID)
	}
	id, err := s.c.AddFunc(spec, func() { s.dispatch(chatID) })
	if err != nil {
		return err
	}
	s.entries[chatID] = id
	metrics.SetSubscribers(len(s.entries))
	s.log.Debug().Int64("chat_id", chatID).Str("at", at).Msg("subscriber added")
	return nil
}

// RemoveSubscriber cancels the user's trigger. Removing an unknown id is a
// no-op.
func (s *SubscriptionScheduler) RemoveSubscriber(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.entries[chatID]
	if !ok {
		return
	}
	s.c.Remove(id)
	delete(s.entries, chatID)
	metrics.SetSubscribers(len(s.entries))
	s.log.Debug().Int64("chat_id", chatID).Msg("subscriber removed")
}

// Replay registers triggers for every persisted subscriber. It runs at most
// once per process, before Start.
func (s *SubscriptionScheduler) Replay(ctx context.Context) error {
	var outer error
	s.replayOnce.Do(func() {
		ids, err := s.repo.Users(ctx)
		if err != nil {
			outer = err
			return
		}
		added := 0
		for _, id := range ids {
			subscribed, err := s.repo.IsSubscriber(ctx, id)
			if err != nil {
				s.log.Error().Err(err).Int64("chat_id", id).Msg("replay: subscriber check failed")
				continue
			}
			if !subscribed {
				continue
			}
			if err := s.AddSubscriber(ctx, id); err != nil {
				s.log.Error().Err(err).Int64("chat_id", id).Msg("replay: add failed")
				continue
			}
			added++
		}
		s.log.Info().Int("count", added).Msg("subscriptions replayed")
	})
	return outer
}

func (s *SubscriptionScheduler) Start() {
	s.c.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop halts the cron loop and waits for already-fired jobs to drain from
// the cron side. In-flight deliveries on the pool are allowed to finish.
func (s *SubscriptionScheduler) Stop() {
	<-s.c.Stop().Done()
	s.mu.Lock()
	s.entries = map[int64]cron.EntryID{}
	metrics.SetSubscribers(0)
	s.mu.Unlock()
	s.log.Info().Msg("scheduler stopped")
}

// Jobs returns a snapshot of the registered triggers, for the moderator
// /jobs command.
func (s *SubscriptionScheduler) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]JobInfo, 0, len(s.entries))
	for chatID, id := range s.entries {
		out = append(out, JobInfo{ChatID: chatID, Next: s.c.Entry(id).Next})
	}
	return out
}

// JobCount reports the number of registered triggers.
func (s *SubscriptionScheduler) JobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// dispatch hands one firing to the pool. A second firing for the same chat
// while one is still running is skipped; that only happens when a manual
// re-subscribe races the timer, and skipping prevents duplicate sends.
func (s *SubscriptionScheduler) dispatch(chatID int64) {
	s.mu.Lock()
	d := s.deliverer
	if d == nil {
		s.mu.Unlock()
		s.log.Error().Int64("chat_id", chatID).Msg("no deliverer wired")
		return
	}
	if s.inflight[chatID] {
		s.mu.Unlock()
		s.log.Warn().Int64("chat_id", chatID).Msg("delivery already in flight; skipping")
		return
	}
	s.inflight[chatID] = true
	s.mu.Unlock()

	err := s.pool.Submit(func(ctx context.Context) error {
		defer s.clearInflight(chatID)
		return d.Deliver(ctx, chatID)
	})
	if err != nil {
		s.clearInflight(chatID)
		s.log.Error().Err(err).Int64("chat_id", chatID).Msg("delivery submit failed")
	}
}

func (s *SubscriptionScheduler) clearInflight(chatID int64) {
	s.mu.Lock()
	delete(s.inflight, chatID)
	s.mu.Unlock()
}
