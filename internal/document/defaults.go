package document

import "github.com/starford/menuboard/internal/models"

// Position new elements land at unless the canvas is too small for it.
const (
	defaultX = 100
	defaultY = 100
)

// Defaults returns the geometry and paint a freshly added element of kind k gets.
// The ID, position and ZIndex are left for the caller.
func Defaults(k models.Kind) models.Element {
	base := models.Element{
		Type:            k,
		Opacity:         1,
		FontFamily:      "Inter, sans-serif",
		FontWeight:      "normal",
		Color:           "#000000",
		BackgroundColor: "transparent",
		TextAlign:       "center",
	}
	switch k {
	case models.KindText:
		base.Width, base.Height = 240, 60
		base.Content = "Double-click to edit"
		base.FontSize = 24
	case models.KindImage:
		base.Width, base.Height = 200, 200
		base.BackgroundColor = "#e5e7eb"
		base.FontSize = 16
	case models.KindShape:
		base.Width, base.Height = 150, 150
		base.BackgroundColor = "#3b82f6"
		base.BorderRadius = 8
		base.FontSize = 16
	case models.KindPrice:
		base.Width, base.Height = 160, 60
		base.Content = "$9.99"
		base.FontSize = 32
		base.FontWeight = "bold"
		base.Color = "#16a34a"
	case models.KindPromotion:
		base.Width, base.Height = 320, 100
		base.Content = "Special Offer!"
		base.FontSize = 28
		base.FontWeight = "bold"
		base.Color = "#ffffff"
		base.BackgroundColor = "#000000"
		base.BorderRadius = 8
	}
	return base
}
