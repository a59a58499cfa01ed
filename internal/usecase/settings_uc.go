package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/kmein/menstruation-telegram/internal/domain"
	"github.com/kmein/menstruation-telegram/internal/domain/ports/adapter"
	"github.com/kmein/menstruation-telegram/internal/domain/ports/repository"
)

// Compile-time check
var _ SettingsUseCase = (*settingsUC)(nil)

// InfoReport is the material for the /info reply.
type InfoReport struct {
	MensaName     string // empty when no canteen is selected
	Subscribed    bool
	Filter        string
	Time          string // empty means the configured default
	AllergenNames []string
}

type SettingsUseCase interface {
	// MensaOptions returns one button per canteen matching the pattern,
	// sorted by name. Button data carries the canteen code.
	MensaOptions(ctx context.Context, pattern string) ([][]adapter.InlineButton, error)
	// SelectMensa stores the choice and returns the canteen's name.
	SelectMensa(ctx context.Context, chatID int64, code int) (string, error)

	// AllergenOptions returns one button per known allergen, sorted by
	// code. Button data is "A" plus the allergen code.
	AllergenOptions(ctx context.Context) ([][]adapter.InlineButton, error)
	// AddAllergen adds the code to the user's set and returns its name.
	AddAllergen(ctx context.Context, chatID int64, code string) (string, error)
	ResetAllergens(ctx context.Context, chatID int64) error

	Info(ctx context.Context, chatID int64) (*InfoReport, error)
	// Status returns how many chats are known and how many subscribe.
	Status(ctx context.Context) (registered, subscribed int, err error)
}

type settingsUC struct {
	users repository.UserRepository
	menu  adapter.MenuService
	log   *zerolog.Logger
}

func NewSettingsUseCase(users repository.UserRepository, menu adapter.MenuService, logger *zerolog.Logger) *settingsUC {
	return &settingsUC{users: users, menu: menu, log: logger}
}

func (u *settingsUC) MensaOptions(ctx context.Context, pattern string) ([][]adapter.InlineButton, error) {
	codeName, err := u.menu.GetMensas(ctx, pattern)
	if err != nil {
		return nil, err
	}
	codes := make([]int, 0, len(codeName))
	for code := range codeName {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codeName[codes[i]] < codeName[codes[j]] })

	rows := make([][]adapter.InlineButton, 0, len(codes))
	for _, code := range codes {
		rows = append(rows, []adapter.InlineButton{{Text: codeName[code], Data: strconv.Itoa(code)}})
	}
	return rows, nil
}

func (u *settingsUC) SelectMensa(ctx context.Context, chatID int64, code int) (string, error) {
	codeName, err := u.menu.GetMensas(ctx, "")
	if err != nil {
		return "", err
	}
	name, ok := codeName[code]
	if !ok {
		return "", fmt.Errorf("%w: unknown mensa code %d", domain.ErrInvalidArgument, code)
	}
	if err := u.users.SetMensa(ctx, chatID, code); err != nil {
		return "", err
	}
	u.log.Info().Int64("chat_id", chatID).Int("mensa", code).Msg("mensa selected")
	return name, nil
}

func (u *settingsUC) AllergenOptions(ctx context.Context) ([][]adapter.InlineButton, error) {
	codeName, err := u.menu.GetAllergens(ctx)
	if err != nil {
		return nil, err
	}
	codes := make([]string, 0, len(codeName))
	for code := range codeName {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	rows := make([][]adapter.InlineButton, 0, len(codes))
	for _, code := range codes {
		rows = append(rows, []adapter.InlineButton{{Text: codeName[code], Data: "A" + code}})
	}
	return rows, nil
}

func (u *settingsUC) AddAllergen(ctx context.Context, chatID int64, code string) (string, error) {
	codeName, err := u.menu.GetAllergens(ctx)
	if err != nil {
		return "", err
	}
	name, ok := codeName[code]
	if !ok {
		return "", fmt.Errorf("%w: unknown allergen %q", domain.ErrInvalidArgument, code)
	}
	current, err := u.users.AllergensOf(ctx, chatID)
	if err != nil {
		return "", err
	}
	for _, c := range current {
		if c == code {
			return name, nil
		}
	}
	if err := u.users.SetAllergens(ctx, chatID, append(current, code)); err != nil {
		return "", err
	}
	u.log.Info().Int64("chat_id", chatID).Str("allergen", code).Msg("allergen added")
	return name, nil
}

func (u *settingsUC) ResetAllergens(ctx context.Context, chatID int64) error {
	return u.users.ResetAllergens(ctx, chatID)
}

func (u *settingsUC) Info(ctx context.Context, chatID int64) (*InfoReport, error) {
	report := &InfoReport{}

	code, err := u.users.MensaOf(ctx, chatID)
	switch {
	case err == nil:
		codeName, merr := u.menu.GetMensas(ctx, "")
		if merr != nil {
			return nil, merr
		}
		report.MensaName = codeName[code]
	case errors.Is(err, domain.ErrNoMensaSelected):
		// leave MensaName empty
	default:
		return nil, err
	}

	report.Subscribed, err = u.users.IsSubscriber(ctx, chatID)
	if err != nil {
		return nil, err
	}
	report.Filter, err = u.users.MenuFilterOf(ctx, chatID)
	if err != nil {
		return nil, err
	}
	report.Time, err = u.users.SubscriptionTimeOf(ctx, chatID)
	if err != nil {
		return nil, err
	}

	codes, err := u.users.AllergensOf(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if len(codes) > 0 {
		codeName, err := u.menu.GetAllergens(ctx)
		if err != nil {
			return nil, err
		}
		for _, c := range codes {
			name := codeName[c]
			if name == "" {
				name = c
			}
			report.AllergenNames = append(report.AllergenNames, name)
		}
	}
	return report, nil
}

func (u *settingsUC) Status(ctx context.Context) (int, int, error) {
	ids, err := u.users.Users(ctx)
	if err != nil {
		return 0, 0, err
	}
	subscribed := 0
	for _, id := range ids {
		ok, err := u.users.IsSubscriber(ctx, id)
		if err != nil {
			return 0, 0, err
		}
		if ok {
			subscribed++
		}
	}
	return len(ids), subscribed, nil
}
