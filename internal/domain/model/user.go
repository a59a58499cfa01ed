package model

import (
	"sort"
	"strconv"
	"strings"

	"github.com/kmein/menstruation-telegram/internal/domain"
)

// User is the per-chat settings record. ChatID is the Telegram chat
// identifier and the storage key; every other field is optional and
// independently written.
type User struct {
	ChatID           int64
	MensaCode        *int
	Subscribed       bool
	MenuFilter       string
	SubscriptionTime string // "HH:MM", empty means the configured default
	Allergens        []string
}

// ParseTime validates a "HH:MM" clock string and returns hour and minute.
func ParseTime(s string) (hour, minute int, err error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, 0, domain.ErrInvalidArgument
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, domain.ErrInvalidArgument
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, domain.ErrInvalidArgument
	}
	return hour, minute, nil
}

// JoinAllergens renders an allergen set the way it is persisted: sorted and
// comma-joined, e.g. "1a,21,30".
func JoinAllergens(codes []string) string {
	cp := make([]string, len(codes))
	copy(cp, codes)
	sort.Strings(cp)
	return strings.Join(cp, ",")
}

// SplitAllergens is the inverse of JoinAllergens; empty input yields nil.
func SplitAllergens(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
