// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"sync"

	"github.com/kmein/menstruation-telegram/internal/domain"
	"github.com/kmein/menstruation-telegram/internal/domain/model"
	"github.com/kmein/menstruation-telegram/internal/domain/ports/adapter"
)

// memUserRepo is a small in-memory implementation used by unit tests.
type memUserRepo struct {
	mu    sync.RWMutex
	store map[int64]*model.User
	err   error // used by tests to simulate store failures
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{store: make(map[int64]*model.User)}
}

func (m *memUserRepo) get(chatID int64) *model.User {
	u, ok := m.store[chatID]
	if !ok {
		u = &model.User{ChatID: chatID}
		m.store[chatID] = u
	}
	return u
}

func (m *memUserRepo) MensaOf(ctx context.Context, chatID int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return 0, m.err
	}
	u, ok := m.store[chatID]
	if !ok || u.MensaCode == nil {
		return 0, domain.ErrNoMensaSelected
	}
	return *u.MensaCode, nil
}

func (m *memUserRepo) SetMensa(ctx context.Context, chatID int64, code int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.get(chatID).MensaCode = &code
	return nil
}

func (m *memUserRepo) AllergensOf(ctx context.Context, chatID int64) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	if u, ok := m.store[chatID]; ok {
		return append([]string(nil), u.Allergens...), nil
	}
	return nil, nil
}

func (m *memUserRepo) SetAllergens(ctx context.Context, chatID int64, codes []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.get(chatID).Allergens = append([]string(nil), codes...)
	return nil
}

func (m *memUserRepo) ResetAllergens(ctx context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.get(chatID).Allergens = nil
	return nil
}

func (m *memUserRepo) IsSubscriber(ctx context.Context, chatID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return false, m.err
	}
	if u, ok := m.store[chatID]; ok {
		return u.Subscribed, nil
	}
	return false, nil
}

func (m *memUserRepo) SetSubscription(ctx context.Context, chatID int64, subscribed bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.get(chatID).Subscribed = subscribed
	return nil
}

func (m *memUserRepo) MenuFilterOf(ctx context.Context, chatID int64) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.store[chatID]; ok {
		return u.MenuFilter, nil
	}
	return "", nil
}

func (m *memUserRepo) SetMenuFilter(ctx context.Context, chatID int64, filter string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.get(chatID).MenuFilter = filter
	return nil
}

func (m *memUserRepo) SubscriptionTimeOf(ctx context.Context, chatID int64) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.store[chatID]; ok {
		return u.SubscriptionTime, nil
	}
	return "", nil
}

func (m *memUserRepo) SetSubscriptionTime(ctx context.Context, chatID int64, hhmm string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.get(chatID).SubscriptionTime = hhmm
	return nil
}

func (m *memUserRepo) Users(ctx context.Context) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	ids := make([]int64, 0, len(m.store))
	for id := range m.store {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *memUserRepo) RemoveUser(ctx context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, chatID)
	return nil
}

func (m *memUserRepo) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store), nil
}

// fakeMenu is a scripted MenuService. failures counts down: while positive,
// GetMenu returns an upstream error.
type fakeMenu struct {
	mu        sync.Mutex
	groups    []model.MealGroup
	mensas    map[int]string
	allergens map[string]string
	failures  int
	calls     int
	lastQuery model.Query
}

func (f *fakeMenu) GetMenu(ctx context.Context, mensaCode int, q model.Query) ([]model.MealGroup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastQuery = q
	if f.failures > 0 {
		f.failures--
		return nil, domain.ErrUpstream
	}
	return f.groups, nil
}

func (f *fakeMenu) GetMensas(ctx context.Context, pattern string) (map[int]string, error) {
	return f.mensas, nil
}

func (f *fakeMenu) GetAllergens(ctx context.Context) (map[string]string, error) {
	return f.allergens, nil
}

type sentMessage struct {
	ChatID   int64
	Text     string
	Markdown bool
}

// recorderBot captures outgoing messages; errs maps a chat id to the error
// every send to it returns.
type recorderBot struct {
	mu   sync.Mutex
	sent []sentMessage
	errs map[int64]error
}

func newRecorderBot() *recorderBot {
	return &recorderBot{errs: map[int64]error{}}
}

func (b *recorderBot) send(chatID int64, text string, markdown bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.errs[chatID]; err != nil {
		return err
	}
	b.sent = append(b.sent, sentMessage{ChatID: chatID, Text: text, Markdown: markdown})
	return nil
}

func (b *recorderBot) SendMessage(ctx context.Context, chatID int64, text string) error {
	return b.send(chatID, text, false)
}

func (b *recorderBot) SendMarkdown(ctx context.Context, chatID int64, text string) error {
	return b.send(chatID, text, true)
}

func (b *recorderBot) SendButtons(ctx context.Context, chatID int64, text string, rows [][]adapter.InlineButton) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, sentMessage{ChatID: chatID, Text: text})
	return nil
}

func (b *recorderBot) messagesTo(chatID int64) []sentMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []sentMessage
	for _, m := range b.sent {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

// fakeSched records trigger bookkeeping.
type fakeSched struct {
	mu      sync.Mutex
	added   []int64
	removed []int64
	addErr  error
}

func (s *fakeSched) AddSubscriber(ctx context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addErr != nil {
		return s.addErr
	}
	s.added = append(s.added, chatID)
	return nil
}

func (s *fakeSched) RemoveSubscriber(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, chatID)
}
