package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/enescakir/emoji"
	"github.com/rs/zerolog"

	"github.com/kmein/menstruation-telegram/internal/domain"
	"github.com/kmein/menstruation-telegram/internal/domain/ports/adapter"
	"github.com/kmein/menstruation-telegram/internal/infra/sched"
	"github.com/kmein/menstruation-telegram/internal/usecase"
)

// JobLister exposes the scheduler's trigger table for the moderator
// /jobs command.
type JobLister interface {
	Jobs() []sched.JobInfo
}

// BotFacade composes usecases into high-level bot commands. Facade methods
// return the reply text so the Telegram adapter just forwards it to the chat.
type BotFacade struct {
	MenuUC     usecase.MenuUseCase
	SubUC      usecase.SubscriptionUseCase
	SettingsUC usecase.SettingsUseCase
	BcastUC    usecase.BroadcastUseCase
	Jobs       JobLister

	moderators map[int64]bool
	log        *zerolog.Logger
}

func NewBotFacade(
	menuUC usecase.MenuUseCase,
	subUC usecase.SubscriptionUseCase,
	settingsUC usecase.SettingsUseCase,
	bcastUC usecase.BroadcastUseCase,
	jobs JobLister,
	moderators []int64,
	logger *zerolog.Logger,
) *BotFacade {
	mods := make(map[int64]bool, len(moderators))
	for _, id := range moderators {
		mods[id] = true
	}
	return &BotFacade{
		MenuUC:     menuUC,
		SubUC:      subUC,
		SettingsUC: settingsUC,
		BcastUC:    bcastUC,
		Jobs:       jobs,
		moderators: mods,
		log:        logger,
	}
}

func (b *BotFacade) IsModerator(chatID int64) bool { return b.moderators[chatID] }

// HandleHelp returns the static command and legend overview.
func (b *BotFacade) HandleHelp() string {
	commands := [][2]string{
		{"/menu " + emoji.Seedling.String() + " 3€", "Heutige Speiseangebote (vegan bis 3€)."},
		{"/menu tomorrow", "Morgige Speiseangebote."},
		{"/menu 2018-10-22", "Speiseangebote für den 22.10.2018."},
		{"/help", "Dieser Hilfetext."},
		{"/mensa beuth", "Auswahlmenü für die Mensen der Beuth Hochschule."},
		{"/subscribe", "Abonniere tägliche Benachrichtigungen der Speiseangebote."},
		{"/unsubscribe", "Abonnement kündigen."},
		{"/time 09:00", "Benachrichtigungszeit einstellen."},
		{"/allergens", "Allergene auswählen."},
		{"/resetallergens", "Allergene zurücksetzen"},
		{"/info", "Informationen über gewählte Mensa, Abonnement und Allergene."},
	}
	legend := [][2]string{
		{emoji.Carrot.String(), "vegetarisch"},
		{emoji.Seedling.String(), "vegan"},
		{emoji.SmilingFaceWithHalo.String(), "Bio"},
		{emoji.Fish.String(), "nachhaltig gefischt"},
		{emoji.GlobeShowingAmericas.String(), "klimafreundlich"},
		{emoji.YellowHeart.String(), "Lebensmittelampel gelb"},
		{emoji.GreenHeart.String(), "Lebensmittelampel grün"},
		{emoji.RedHeart.String(), "Lebensmittelampel rot"},
	}
	var sb strings.Builder
	sb.WriteString("*BEFEHLE*\n")
	for _, c := range commands {
		sb.WriteString(c[0] + " – " + c[1] + "\n")
	}
	sb.WriteString("\n*LEGENDE*\n")
	for _, l := range legend {
		sb.WriteString(l[0] + " – " + l[1] + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// HandleMenu returns the rendered menu, or a German hint when the user has
// no canteen selected or the backend has nothing to offer.
func (b *BotFacade) HandleMenu(ctx context.Context, chatID int64, args string) (text string, markdown bool) {
	out, err := b.MenuUC.ShowMenu(ctx, chatID, args)
	switch {
	case errors.Is(err, domain.ErrNoMensaSelected):
		return fmt.Sprintf("Wie es aussieht, hast Du noch keine Mensa ausgewählt. %s\nTu dies zum Beispiel mit „/mensa adlershof“ %s",
			usecase.ErrorEmoji(), emoji.Information.String()), false
	case err != nil:
		b.log.Warn().Err(err).Int64("chat_id", chatID).Msg("menu request failed")
		return fmt.Sprintf("Entweder ist diese Mensa noch nicht unterstützt, %s\noder es gibt an diesem Tag dort kein Essen. %s",
			usecase.ErrorEmoji(), usecase.ErrorEmoji()), false
	case out == "":
		return "Kein Essen gefunden. " + usecase.ErrorEmoji(), false
	}
	return out, true
}

// HandleMensa returns the canteen chooser for the given search pattern.
func (b *BotFacade) HandleMensa(ctx context.Context, chatID int64, pattern string) (string, [][]adapter.InlineButton) {
	rows, err := b.SettingsUC.MensaOptions(ctx, strings.TrimSpace(pattern))
	if err != nil {
		b.log.Warn().Err(err).Int64("chat_id", chatID).Msg("mensa listing failed")
		return "Die Mensen konnten gerade nicht abgerufen werden. " + usecase.ErrorEmoji(), nil
	}
	return "Wähle Deine Mensa aus. " + emoji.IndexPointingUp.String(), rows
}

// HandleAllergens returns the allergen chooser.
func (b *BotFacade) HandleAllergens(ctx context.Context, chatID int64) (string, [][]adapter.InlineButton) {
	rows, err := b.SettingsUC.AllergenOptions(ctx)
	if err != nil {
		b.log.Warn().Err(err).Int64("chat_id", chatID).Msg("allergen listing failed")
		return "Die Allergene konnten gerade nicht abgerufen werden. " + usecase.ErrorEmoji(), nil
	}
	return "Wähle Deine Allergene aus. " + emoji.IndexPointingUp.String(), rows
}

func (b *BotFacade) HandleResetAllergens(ctx context.Context, chatID int64) string {
	if err := b.SettingsUC.ResetAllergens(ctx, chatID); err != nil {
		b.log.Error().Err(err).Int64("chat_id", chatID).Msg("allergen reset failed")
		return "Das hat leider nicht geklappt. " + usecase.ErrorEmoji()
	}
	return "Allergene zurückgesetzt. " + emoji.CheckMark.String()
}

// HandleCallback resolves an inline button press. Data starting with "A" is
// an allergen code, anything else a canteen code. The returned text is shown
// as the callback answer.
func (b *BotFacade) HandleCallback(ctx context.Context, chatID int64, data string) string {
	if code, ok := strings.CutPrefix(data, "A"); ok {
		name, err := b.SettingsUC.AddAllergen(ctx, chatID, code)
		if err != nil {
			b.log.Warn().Err(err).Int64("chat_id", chatID).Str("data", data).Msg("allergen callback failed")
			return "Das hat leider nicht geklappt. " + usecase.ErrorEmoji()
		}
		return fmt.Sprintf("„%s” ausgewählt. %s", name, emoji.CheckMark.String())
	}
	code, err := strconv.Atoi(data)
	if err != nil {
		return "Das hat leider nicht geklappt. " + usecase.ErrorEmoji()
	}
	name, err := b.SettingsUC.SelectMensa(ctx, chatID, code)
	if err != nil {
		b.log.Warn().Err(err).Int64("chat_id", chatID).Str("data", data).Msg("mensa callback failed")
		return "Das hat leider nicht geklappt. " + usecase.ErrorEmoji()
	}
	return fmt.Sprintf("„%s“ ausgewählt. %s", name, emoji.CheckMark.String())
}

func (b *BotFacade) HandleSubscribe(ctx context.Context, chatID int64, filterText string) string {
	outcome, err := b.SubUC.Subscribe(ctx, chatID, filterText)
	if err != nil {
		b.log.Error().Err(err).Int64("chat_id", chatID).Msg("subscribe failed")
		return "Das hat leider nicht geklappt. " + usecase.ErrorEmoji()
	}
	switch outcome {
	case usecase.SubscribeRefreshed:
		return "Du hast dein Abonnement erfolgreich aktualisiert."
	case usecase.SubscribeNoop:
		return "Du hast den Speiseplan schon abonniert."
	default:
		return "Du bekommst ab jetzt täglich den Speiseplan zugeschickt."
	}
}

func (b *BotFacade) HandleUnsubscribe(ctx context.Context, chatID int64) string {
	had, err := b.SubUC.Unsubscribe(ctx, chatID)
	if err != nil {
		b.log.Error().Err(err).Int64("chat_id", chatID).Msg("unsubscribe failed")
		return "Das hat leider nicht geklappt. " + usecase.ErrorEmoji()
	}
	if !had {
		return "Du hast den Speiseplan gar nicht abonniert."
	}
	return "Du hast den Speiseplan erfolgreich abbestellt."
}

func (b *BotFacade) HandleTime(ctx context.Context, chatID int64, arg string) string {
	arg = strings.TrimSpace(arg)
	err := b.SubUC.SetTime(ctx, chatID, arg)
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return "Bitte gib die Zeit im Format HH:MM an. " + usecase.ErrorEmoji()
	case err != nil:
		b.log.Error().Err(err).Int64("chat_id", chatID).Msg("time change failed")
		return "Das hat leider nicht geklappt. " + usecase.ErrorEmoji()
	}
	return fmt.Sprintf("Benachrichtigungszeit auf %s gesetzt. %s", arg, emoji.CheckMark.String())
}

func (b *BotFacade) HandleInfo(ctx context.Context, chatID int64) string {
	report, err := b.SettingsUC.Info(ctx, chatID)
	if err != nil {
		b.log.Error().Err(err).Int64("chat_id", chatID).Msg("info failed")
		return "Das hat leider nicht geklappt. " + usecase.ErrorEmoji()
	}
	mensa := report.MensaName
	if mensa == "" {
		mensa = "keine"
	}
	filter := report.Filter
	if filter == "" {
		filter = "kein Filter"
	}
	thumb := emoji.ThumbsDown.String()
	if report.Subscribed {
		thumb = emoji.ThumbsUp.String()
	}
	subscription := fmt.Sprintf("%s (%s)", thumb, filter)
	if report.Subscribed && report.Time != "" {
		subscription += fmt.Sprintf(" um %s", report.Time)
	}
	return fmt.Sprintf("*MENSA*\n%s\n\n*ABO*\n%s\n\n*ALLERGENE*\n%s",
		mensa, subscription, strings.Join(report.AllergenNames, "\n"))
}

// HandleChatID echoes the numeric chat id, e.g. for setting up moderators.
func (b *BotFacade) HandleChatID(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

func (b *BotFacade) HandleStatus(ctx context.Context, chatID int64) string {
	registered, subscribed, err := b.SettingsUC.Status(ctx)
	if err != nil {
		b.log.Error().Err(err).Int64("chat_id", chatID).Msg("status failed")
		return "Das hat leider nicht geklappt. " + usecase.ErrorEmoji()
	}
	return fmt.Sprintf("Registered: %d\nSubscribed: %d", registered, subscribed)
}

func (b *BotFacade) HandleBroadcast(ctx context.Context, chatID int64, text string) string {
	if !b.IsModerator(chatID) {
		b.log.Warn().Int64("chat_id", chatID).Msg("broadcast attempt by non-moderator")
		return "Du hast nicht die Berechtigung einen Broadcast zu versenden. " + usecase.ErrorEmoji()
	}
	if strings.TrimSpace(text) == "" {
		return "Broadcast-Text darf nicht leer sein. " + usecase.ErrorEmoji()
	}
	sent, failed, err := b.BcastUC.Broadcast(ctx, chatID, text)
	if err != nil {
		b.log.Error().Err(err).Int64("chat_id", chatID).Msg("broadcast failed")
		return "Das hat leider nicht geklappt. " + usecase.ErrorEmoji()
	}
	if failed > 0 {
		return fmt.Sprintf("Broadcast versendet: %d erreicht, %d nicht erreicht.", sent, failed)
	}
	return "Broadcast erfolgreich versendet. " + emoji.ThumbsUp.String()
}

func (b *BotFacade) HandleJobs(chatID int64) string {
	if !b.IsModerator(chatID) {
		return "Du hast nicht die Berechtigung dafür. " + usecase.ErrorEmoji()
	}
	jobs := b.Jobs.Jobs()
	if len(jobs) == 0 {
		return "Keine aktiven Abonnements."
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].ChatID < jobs[j].ChatID })
	var sb strings.Builder
	for _, j := range jobs {
		sb.WriteString(fmt.Sprintf("%d: nächste Benachrichtigung %s\n", j.ChatID, j.Next.Format("2006-01-02 15:04")))
	}
	return strings.TrimRight(sb.String(), "\n")
}
