package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/kmein/menstruation-telegram/internal/application"
	"github.com/kmein/menstruation-telegram/internal/domain"
	"github.com/kmein/menstruation-telegram/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.TelegramBotAdapter = (*RealTelegramBotAdapter)(nil)

// RealTelegramBotAdapter implements adapter.TelegramBotAdapter using tgbotapi
// with concurrent polling. The command facade is handed to StartPolling, not
// the constructor, because the facade's use cases in turn send through this
// adapter.
type RealTelegramBotAdapter struct {
	bot    *tgbotapi.BotAPI
	facade *application.BotFacade
	log    *zerolog.Logger

	// updateWorkers is how many goroutines process updates concurrently.
	updateWorkers int
	cancelPolling context.CancelFunc
}

func NewRealTelegramBotAdapter(token string, updateWorkers int, logger *zerolog.Logger) (*RealTelegramBotAdapter, error) {
	if updateWorkers <= 0 {
		updateWorkers = 5
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	compLog := logger.With().Str("component", "TelegramBot").Logger()
	return &RealTelegramBotAdapter{
		bot:           bot,
		log:           &compLog,
		updateWorkers: updateWorkers,
	}, nil
}

// StartPolling polls Telegram for updates until ctx is canceled and fans them
// out to the update workers.
func (r *RealTelegramBotAdapter) StartPolling(ctx context.Context, facade *application.BotFacade) error {
	if facade == nil {
		return errors.New("bot facade is nil")
	}
	r.facade = facade
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := r.bot.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	r.cancelPolling = cancel

	var wg sync.WaitGroup
	updateChan := make(chan tgbotapi.Update, 100)

	for i := 0; i < r.updateWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for {
				select {
				case update, ok := <-updateChan:
					if !ok {
						return
					}
					if err := r.handleUpdate(ctx, update); err != nil {
						r.log.Error().Err(err).Int("worker", workerID).Msg("update handling failed")
					}
				case <-ctx.Done():
					return
				}
			}
		}(i + 1)
	}

	go func() {
		defer close(updateChan)
		for {
			select {
			case update := <-updates:
				select {
				case updateChan <- update:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	r.log.Info().Str("bot", r.bot.Self.UserName).Msg("polling started")
	<-ctx.Done()
	r.bot.StopReceivingUpdates()
	wg.Wait()
	return nil
}

func (r *RealTelegramBotAdapter) StopPolling() {
	if r.cancelPolling != nil {
		r.cancelPolling()
	}
}

// wrapSendErr maps the platform's "blocked" responses onto the domain error.
func wrapSendErr(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "Forbidden: bot was blocked by the user") ||
		strings.Contains(msg, "Forbidden: user is deactivated") ||
		strings.Contains(msg, "chat not found") {
		return fmt.Errorf("%w: %v", domain.ErrBotBlocked, err)
	}
	return err
}

func (r *RealTelegramBotAdapter) SendMessage(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := r.bot.Send(msg)
	return wrapSendErr(err)
}

func (r *RealTelegramBotAdapter) SendMarkdown(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := r.bot.Send(msg)
	return wrapSendErr(err)
}

func (r *RealTelegramBotAdapter) SendButtons(ctx context.Context, chatID int64, text string, rows [][]adapter.InlineButton) error {
	keyboard := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		keyboard = append(keyboard, buttons)
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(keyboard...)
	_, err := r.bot.Send(msg)
	return wrapSendErr(err)
}

func (r *RealTelegramBotAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	if update.CallbackQuery != nil {
		return r.handleCallback(ctx, update.CallbackQuery)
	}
	if update.Message == nil {
		return nil
	}
	msg := update.Message
	chatID := msg.Chat.ID

	if !msg.IsCommand() {
		return r.SendMessage(ctx, chatID, "Das habe ich nicht verstanden. Probier mal /help.")
	}

	args := strings.TrimSpace(msg.CommandArguments())
	switch msg.Command() {
	case "start", "help":
		return r.SendMarkdown(ctx, chatID, r.facade.HandleHelp())
	case "menu":
		text, markdown := r.facade.HandleMenu(ctx, chatID, args)
		if markdown {
			return r.SendMarkdown(ctx, chatID, text)
		}
		return r.SendMessage(ctx, chatID, text)
	case "mensa":
		text, rows := r.facade.HandleMensa(ctx, chatID, args)
		if len(rows) == 0 {
			return r.SendMessage(ctx, chatID, text)
		}
		return r.SendButtons(ctx, chatID, text, rows)
	case "allergens":
		text, rows := r.facade.HandleAllergens(ctx, chatID)
		if len(rows) == 0 {
			return r.SendMessage(ctx, chatID, text)
		}
		return r.SendButtons(ctx, chatID, text, rows)
	case "resetallergens":
		return r.SendMessage(ctx, chatID, r.facade.HandleResetAllergens(ctx, chatID))
	case "subscribe":
		return r.SendMessage(ctx, chatID, r.facade.HandleSubscribe(ctx, chatID, args))
	case "unsubscribe":
		return r.SendMessage(ctx, chatID, r.facade.HandleUnsubscribe(ctx, chatID))
	case "time":
		return r.SendMessage(ctx, chatID, r.facade.HandleTime(ctx, chatID, args))
	case "chatid":
		return r.SendMessage(ctx, chatID, r.facade.HandleChatID(chatID))
	case "info":
		return r.SendMarkdown(ctx, chatID, r.facade.HandleInfo(ctx, chatID))
	case "status":
		return r.SendMessage(ctx, chatID, r.facade.HandleStatus(ctx, chatID))
	case "broadcast":
		return r.SendMessage(ctx, chatID, r.facade.HandleBroadcast(ctx, chatID, args))
	case "jobs":
		return r.SendMessage(ctx, chatID, r.facade.HandleJobs(chatID))
	default:
		return r.SendMessage(ctx, chatID, "Diesen Befehl kenne ich nicht. Probier mal /help.")
	}
}

func (r *RealTelegramBotAdapter) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	if query.Message == nil {
		return nil
	}
	answer := r.facade.HandleCallback(ctx, query.Message.Chat.ID, query.Data)
	callback := tgbotapi.NewCallback(query.ID, answer)
	if _, err := r.bot.Request(callback); err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}
