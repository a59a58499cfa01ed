package redis

import (
	"context"
	"errors"
	"strconv"

	"github.com/kmein/menstruation-telegram/internal/domain"
	"github.com/kmein/menstruation-telegram/internal/domain/model"
	"github.com/kmein/menstruation-telegram/internal/domain/ports/repository"
)

// Persisted hash fields, one hash per chat id. The schema is shared with the
// original deployment, so field names and encodings must not change:
// subscribed is "yes"/"no" and allergens are comma-joined codes.
const (
	fieldMensa            = "mensa"
	fieldSubscribed       = "subscribed"
	fieldMenuFilter       = "menu_filter"
	fieldSubscriptionTime = "subscription_time"
	fieldAllergens        = "allergens"
)

var _ repository.UserRepository = (*UserRepo)(nil)

// UserRepo stores user settings as one redis hash per chat id. Each write
// touches a single field, so concurrent handlers cannot lose each other's
// updates.
type UserRepo struct {
	client RedisClient
}

func NewUserRepo(client RedisClient) *UserRepo {
	return &UserRepo{client: client}
}

func key(chatID int64) string { return strconv.FormatInt(chatID, 10) }

func (r *UserRepo) MensaOf(ctx context.Context, chatID int64) (int, error) {
	v, err := r.client.HGet(ctx, key(chatID), fieldMensa)
	if errors.Is(err, domain.ErrNotFound) {
		return 0, domain.ErrNoMensaSelected
	}
	if err != nil {
		return 0, err
	}
	code, err := strconv.Atoi(v)
	if err != nil {
		return 0, domain.ErrNoMensaSelected
	}
	return code, nil
}

func (r *UserRepo) SetMensa(ctx context.Context, chatID int64, code int) error {
	return r.client.HSet(ctx, key(chatID), fieldMensa, strconv.Itoa(code))
}

func (r *UserRepo) AllergensOf(ctx context.Context, chatID int64) ([]string, error) {
	v, err := r.client.HGet(ctx, key(chatID), fieldAllergens)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return model.SplitAllergens(v), nil
}

func (r *UserRepo) SetAllergens(ctx context.Context, chatID int64, codes []string) error {
	return r.client.HSet(ctx, key(chatID), fieldAllergens, model.JoinAllergens(codes))
}

func (r *UserRepo) ResetAllergens(ctx context.Context, chatID int64) error {
	return r.client.HDel(ctx, key(chatID), fieldAllergens)
}

func (r *UserRepo) IsSubscriber(ctx context.Context, chatID int64) (bool, error) {
	v, err := r.client.HGet(ctx, key(chatID), fieldSubscribed)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v == "yes", nil
}

func (r *UserRepo) SetSubscription(ctx context.Context, chatID int64, subscribed bool) error {
	v := "no"
	if subscribed {
		v = "yes"
	}
	return r.client.HSet(ctx, key(chatID), fieldSubscribed, v)
}

func (r *UserRepo) MenuFilterOf(ctx context.Context, chatID int64) (string, error) {
	v, err := r.client.HGet(ctx, key(chatID), fieldMenuFilter)
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil
	}
	return v, err
}

func (r *UserRepo) SetMenuFilter(ctx context.Context, chatID int64, filter string) error {
	return r.client.HSet(ctx, key(chatID), fieldMenuFilter, filter)
}

func (r *UserRepo) SubscriptionTimeOf(ctx context.Context, chatID int64) (string, error) {
	v, err := r.client.HGet(ctx, key(chatID), fieldSubscriptionTime)
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if _, _, err := model.ParseTime(v); err != nil {
		// tolerate junk left by older revisions
		return "", nil
	}
	return v, nil
}

func (r *UserRepo) SetSubscriptionTime(ctx context.Context, chatID int64, hhmm string) error {
	if _, _, err := model.ParseTime(hhmm); err != nil {
		return err
	}
	return r.client.HSet(ctx, key(chatID), fieldSubscriptionTime, hhmm)
}

// Users lists every chat id with a stored hash. User keys are plain decimal
// numbers; cache keys carry a prefix and are skipped.
func (r *UserRepo) Users(ctx context.Context) ([]int64, error) {
	keys, err := r.client.Keys(ctx, "*")
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(keys))
	for _, k := range keys {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *UserRepo) RemoveUser(ctx context.Context, chatID int64) error {
	return r.client.Del(ctx, key(chatID))
}

func (r *UserRepo) Count(ctx context.Context) (int, error) {
	ids, err := r.Users(ctx)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}
