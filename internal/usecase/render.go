package usecase

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/enescakir/emoji"

	"github.com/kmein/menstruation-telegram/internal/domain/model"
)

// RenderCents formats a cent amount the way menus print prices: "2,50 €".
func RenderCents(totalCents int) string {
	return fmt.Sprintf("%d,%02d €", totalCents/100, totalCents%100)
}

func renderMeal(m model.Meal) string {
	price := ""
	if m.Price != nil {
		price = fmt.Sprintf(` \[%s]`, RenderCents(m.Price.Student))
	}
	var tags strings.Builder
	for _, t := range m.Tags {
		tags.WriteString(t.Emoji().String())
	}
	return fmt.Sprintf("%s%s _%s_ %s", m.Color.Emoji(), price, m.Name, tags.String())
}

// RenderGroups renders a menu as the Markdown message sent to the chat. An
// empty result means nothing matched; callers send the fallback text instead.
func RenderGroups(groups []model.MealGroup) string {
	var b strings.Builder
	for _, g := range groups {
		if len(g.Items) == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("*%s*\n", strings.ToUpper(g.Name)))
		for _, m := range g.Items {
			b.WriteString(renderMeal(m))
			b.WriteByte('\n')
		}
		b.WriteString("\n")
	}
	return b.String()
}

var errorFaces = []emoji.Emoji{
	emoji.ConfusedFace,
	emoji.WorriedFace,
	emoji.SlightlyFrowningFace,
	emoji.FrowningFace,
	emoji.FaceWithOpenMouth,
	emoji.HushedFace,
	emoji.AstonishedFace,
	emoji.FlushedFace,
	emoji.PleadingFace,
	emoji.FrowningFaceWithOpenMouth,
	emoji.AnguishedFace,
	emoji.FearfulFace,
	emoji.AnxiousFaceWithSweat,
	emoji.SadButRelievedFace,
	emoji.CryingFace,
	emoji.LoudlyCryingFace,
	emoji.FaceScreamingInFear,
	emoji.ConfoundedFace,
	emoji.PerseveringFace,
	emoji.DisappointedFace,
	emoji.DowncastFaceWithSweat,
	emoji.WearyFace,
	emoji.TiredFace,
}

// ErrorEmoji picks a random unhappy face for error replies.
func ErrorEmoji() string {
	return errorFaces[rand.Intn(len(errorFaces))].String()
}
