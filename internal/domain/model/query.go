package model

import (
	"math"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/enescakir/emoji"
)

// Query is an immutable filter specification for one menu request. It is
// parsed fresh from the user's stored filter text at use time; allergens are
// never part of the text and get merged in from the user record so that
// allergen changes apply without re-subscribing.
type Query struct {
	MaxPrice  *int // student price in cents
	Colors    map[Color]bool
	Tags      map[Tag]bool
	Date      *time.Time
	Allergens map[string]bool
}

var (
	priceRe = regexp.MustCompile(`(\d+[.,]?\d*)\s*€`)
	dateRe  = regexp.MustCompile(`(\d{4}-\d{2}-\d{2}|today|tomorrow|heute|morgen)`)
)

// tagWords maps the spellings accepted in filter text (German and English
// words, emoji aliases, and the raw emoji Telegram clients send) to tags.
var tagWords = map[string]Tag{
	"vegetarian":                        TagVegetarian,
	"vegetarisch":                       TagVegetarian,
	":carrot:":                          TagVegetarian,
	emoji.Carrot.String():               TagVegetarian,
	"vegan":                             TagVegan,
	":seedling:":                        TagVegan,
	emoji.Seedling.String():             TagVegan,
	"organic":                           TagOrganic,
	"bio":                               TagOrganic,
	":smiling_face_with_halo:":          TagOrganic,
	emoji.SmilingFaceWithHalo.String():  TagOrganic,
	"fish":                              TagSustainableFishing,
	"fisch":                             TagSustainableFishing,
	":fish:":                            TagSustainableFishing,
	emoji.Fish.String():                 TagSustainableFishing,
	"climate":                           TagClimateFriendly,
	"klima":                             TagClimateFriendly,
	":globe_showing_americas:":          TagClimateFriendly,
	emoji.GlobeShowingAmericas.String(): TagClimateFriendly,
}

var colorWords = map[string]Color{
	"green":                    ColorGreen,
	"grün":                     ColorGreen,
	":green_heart:":            ColorGreen,
	emoji.GreenHeart.String():  ColorGreen,
	"yellow":                   ColorYellow,
	"gelb":                     ColorYellow,
	":yellow_heart:":           ColorYellow,
	emoji.YellowHeart.String(): ColorYellow,
	"red":                      ColorRed,
	"rot":                      ColorRed,
	":red_heart:":              ColorRed,
	emoji.RedHeart.String():    ColorRed,
}

// ParseQuery extracts a Query from free-form filter text such as
// "vegan 3€ tomorrow" or ":seedling: :green_heart: 2,50 €".
func ParseQuery(text string, now time.Time) Query {
	q := Query{
		Colors:    map[Color]bool{},
		Tags:      map[Tag]bool{},
		Allergens: map[string]bool{},
	}
	lower := strings.ToLower(text)

	if m := priceRe.FindStringSubmatch(lower); m != nil {
		euros, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
		if err == nil {
			cents := int(math.Round(euros * 100))
			q.MaxPrice = &cents
		}
	}

	if m := dateRe.FindStringSubmatch(lower); m != nil {
		var d time.Time
		switch m[1] {
		case "today", "heute":
			d = now
		case "tomorrow", "morgen":
			d = now.AddDate(0, 0, 1)
		default:
			parsed, err := time.ParseInLocation("2006-01-02", m[1], now.Location())
			if err == nil {
				d = parsed
			}
		}
		if !d.IsZero() {
			d = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, now.Location())
			q.Date = &d
		}
	}

	for word, tag := range tagWords {
		if strings.Contains(lower, word) {
			q.Tags[tag] = true
		}
	}
	for word, color := range colorWords {
		if strings.Contains(lower, word) {
			q.Colors[color] = true
		}
	}
	return q
}

// WithAllergens returns a copy of q with the given allergen codes merged in.
func (q Query) WithAllergens(codes []string) Query {
	merged := make(map[string]bool, len(q.Allergens)+len(codes))
	for c := range q.Allergens {
		merged[c] = true
	}
	for _, c := range codes {
		if c != "" {
			merged[c] = true
		}
	}
	q.Allergens = merged
	return q
}

// Params renders the query as backend URL parameters: date (ISO), max_price
// (cents), and repeated tag/color/allergen keys.
func (q Query) Params() url.Values {
	v := url.Values{}
	if q.Date != nil {
		v.Set("date", q.Date.Format("2006-01-02"))
	}
	if q.MaxPrice != nil {
		v.Set("max_price", strconv.Itoa(*q.MaxPrice))
	}
	for _, t := range sortedTags(q.Tags) {
		v.Add("tag", string(t))
	}
	for _, c := range sortedColors(q.Colors) {
		v.Add("color", string(c))
	}
	for _, a := range sortedKeys(q.Allergens) {
		v.Add("allergen", a)
	}
	return v
}

// Matches reports whether a meal survives the filter. The backend applies
// the same parameters server-side; filtering again here keeps the contract
// honest when the upstream ignores a parameter. Meals without a price pass a
// max-price filter, since the backend omits prices for sides.
func (q Query) Matches(m Meal) bool {
	if q.MaxPrice != nil && m.Price != nil && m.Price.Student > *q.MaxPrice {
		return false
	}
	for t := range q.Tags {
		if !m.HasTag(t) {
			return false
		}
	}
	if len(q.Colors) > 0 && !q.Colors[m.Color] {
		return false
	}
	for _, a := range m.Allergens {
		if q.Allergens[a] {
			return false
		}
	}
	return true
}

// FilterGroups applies Matches to every group, dropping groups that end up
// empty.
func (q Query) FilterGroups(groups []MealGroup) []MealGroup {
	var out []MealGroup
	for _, g := range groups {
		var items []Meal
		for _, m := range g.Items {
			if q.Matches(m) {
				items = append(items, m)
			}
		}
		if len(items) > 0 {
			out = append(out, MealGroup{Name: g.Name, Items: items})
		}
	}
	return out
}

func sortedTags(set map[Tag]bool) []Tag {
	out := make([]Tag, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

func sortedColors(set map[Color]bool) []Color {
	out := make([]Color, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
