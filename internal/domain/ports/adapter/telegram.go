package adapter

import "context"

type InlineButton struct {
	Text string
	Data string
}

// TelegramBotAdapter is the outbound messaging port. Implementations map the
// platform's "bot was blocked" response to domain.ErrBotBlocked so the
// delivery pipeline can tell permanent failures apart from transient ones.
type TelegramBotAdapter interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	// SendMarkdown sends with Markdown parse mode (menu rendering).
	SendMarkdown(ctx context.Context, chatID int64, text string) error
	SendButtons(ctx context.Context, chatID int64, text string, rows [][]InlineButton) error
}
