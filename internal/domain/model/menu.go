package model

import "github.com/enescakir/emoji"

// Color is the food traffic light the student union assigns to each meal.
type Color string

const (
	ColorGreen  Color = "green"
	ColorYellow Color = "yellow"
	ColorRed    Color = "red"
)

func (c Color) Emoji() emoji.Emoji {
	switch c {
	case ColorGreen:
		return emoji.GreenHeart
	case ColorYellow:
		return emoji.YellowHeart
	case ColorRed:
		return emoji.RedHeart
	}
	return ""
}

// Tag is a dietary property of a meal, in the backend's wire spelling.
type Tag string

const (
	TagVegetarian         Tag = "vegetarian"
	TagVegan              Tag = "vegan"
	TagOrganic            Tag = "organic"
	TagSustainableFishing Tag = "sustainable fishing"
	TagClimateFriendly    Tag = "climate friendly"
)

// Emoji returns the symbol used in rendered menus; tags without one (the
// H2O/CO2 ratings the backend occasionally emits) render as nothing.
func (t Tag) Emoji() emoji.Emoji {
	switch t {
	case TagVegetarian:
		return emoji.Carrot
	case TagVegan:
		return emoji.Seedling
	case TagOrganic:
		return emoji.SmilingFaceWithHalo
	case TagSustainableFishing:
		return emoji.Fish
	case TagClimateFriendly:
		return emoji.GlobeShowingAmericas
	}
	return ""
}

// Price holds the three price tiers in cents. The backend omits the whole
// object for meals without a price (sides, sauces).
type Price struct {
	Student  int `json:"student"`
	Employee int `json:"employee"`
	Guest    int `json:"guest"`
}

type Meal struct {
	Name      string   `json:"name"`
	Color     Color    `json:"color"`
	Tags      []Tag    `json:"tags"`
	Price     *Price   `json:"price"`
	Allergens []string `json:"allergens"`
}

func (m Meal) HasTag(t Tag) bool {
	for _, mt := range m.Tags {
		if mt == t {
			return true
		}
	}
	return false
}

// MealGroup is one section of a day's menu ("Aktionen", "Suppen", ...).
type MealGroup struct {
	Name  string `json:"name"`
	Items []Meal `json:"items"`
}
