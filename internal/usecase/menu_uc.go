package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/kmein/menstruation-telegram/internal/domain/model"
	"github.com/kmein/menstruation-telegram/internal/domain/ports/adapter"
	"github.com/kmein/menstruation-telegram/internal/domain/ports/repository"
)

// Compile-time check
var _ MenuUseCase = (*menuUC)(nil)

type MenuUseCase interface {
	// ShowMenu fetches and renders the menu for an interactive /menu
	// request. The returned string is Markdown; it is empty when nothing
	// matched the filter. Returns domain.ErrNoMensaSelected when the user
	// has not picked a canteen and domain.ErrUpstream on backend trouble.
	ShowMenu(ctx context.Context, chatID int64, filterText string) (string, error)
}

type menuUC struct {
	users repository.UserRepository
	menu  adapter.MenuService
	now   func() time.Time
	log   *zerolog.Logger
}

func NewMenuUseCase(users repository.UserRepository, menu adapter.MenuService, logger *zerolog.Logger) *menuUC {
	return &menuUC{users: users, menu: menu, now: time.Now, log: logger}
}

func (u *menuUC) ShowMenu(ctx context.Context, chatID int64, filterText string) (string, error) {
	code, err := u.users.MensaOf(ctx, chatID)
	if err != nil {
		return "", err
	}
	allergens, err := u.users.AllergensOf(ctx, chatID)
	if err != nil {
		return "", err
	}
	q := model.ParseQuery(filterText, u.now()).WithAllergens(allergens)
	groups, err := u.menu.GetMenu(ctx, code, q)
	if err != nil {
		return "", err
	}
	return RenderGroups(q.FilterGroups(groups)), nil
}
