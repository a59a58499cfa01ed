package telegram

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/kmein/menstruation-telegram/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.TelegramBotAdapter = (*NoopBotAdapter)(nil)

// NoopBotAdapter logs outgoing messages instead of sending them. Used in dev
// mode, where no bot token is configured.
type NoopBotAdapter struct {
	log *zerolog.Logger
}

func NewNoopBotAdapter(logger *zerolog.Logger) *NoopBotAdapter {
	compLog := logger.With().Str("component", "NoopBot").Logger()
	return &NoopBotAdapter{log: &compLog}
}

func (n *NoopBotAdapter) SendMessage(ctx context.Context, chatID int64, text string) error {
	n.log.Info().Int64("chat_id", chatID).Str("text", text).Msg("send (noop)")
	return nil
}

func (n *NoopBotAdapter) SendMarkdown(ctx context.Context, chatID int64, text string) error {
	n.log.Info().Int64("chat_id", chatID).Str("text", text).Msg("send markdown (noop)")
	return nil
}

func (n *NoopBotAdapter) SendButtons(ctx context.Context, chatID int64, text string, rows [][]adapter.InlineButton) error {
	n.log.Info().Int64("chat_id", chatID).Str("text", text).Int("rows", len(rows)).Msg("send buttons (noop)")
	return nil
}
