package adapter

import (
	"context"

	"github.com/kmein/menstruation-telegram/internal/domain/model"
)

// MenuService is the port over the menu scraping backend. Network errors and
// malformed payloads surface wrapped in domain.ErrUpstream so callers can
// retry them.
type MenuService interface {
	GetMenu(ctx context.Context, mensaCode int, q model.Query) ([]model.MealGroup, error)
	// GetMensas returns canteen code -> name, optionally narrowed by a
	// search pattern.
	GetMensas(ctx context.Context, pattern string) (map[int]string, error)
	// GetAllergens returns allergen code (number plus optional index, e.g.
	// "1a") -> name.
	GetAllergens(ctx context.Context) (map[string]string, error)
}
