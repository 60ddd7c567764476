package document

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/menuboard/internal/apperr"
	"github.com/starford/menuboard/internal/models"
)

// MaxCanvasSide bounds either canvas dimension.
const MaxCanvasSide = 16384

var kindRule = validation.In(models.KindText, models.KindImage, models.KindShape, models.KindPrice, models.KindPromotion)

// Validate checks the structural invariants of a committed document: a sane
// canvas, well-formed elements, unique ids and a dense zIndex permutation.
// Errors wrap apperr.ErrInvalid.
func Validate(doc models.Document) error {
	size := doc.CanvasSize
	if err := validation.ValidateStruct(&size,
		validation.Field(&size.Width, validation.Required, validation.Min(1), validation.Max(MaxCanvasSide)),
		validation.Field(&size.Height, validation.Required, validation.Min(1), validation.Max(MaxCanvasSide)),
	); err != nil {
		return fmt.Errorf("%w: canvasSize: %v", apperr.ErrInvalid, err)
	}

	seen := make(map[string]struct{}, len(doc.Elements))
	z := make([]bool, len(doc.Elements)+1)
	for i := range doc.Elements {
		el := doc.Elements[i]
		if err := validation.ValidateStruct(&el,
			validation.Field(&el.ID, validation.Required),
			validation.Field(&el.Type, validation.Required, kindRule),
			validation.Field(&el.Width, validation.Min(0.0)),
			validation.Field(&el.Height, validation.Min(0.0)),
			validation.Field(&el.Opacity, validation.Min(0.0), validation.Max(1.0)),
			validation.Field(&el.FontSize, validation.Min(0.0)),
		); err != nil {
			return fmt.Errorf("%w: elements[%d]: %v", apperr.ErrInvalid, i, err)
		}
		if _, dup := seen[el.ID]; dup {
			return fmt.Errorf("%w: duplicate element id %q", apperr.ErrInvalid, el.ID)
		}
		seen[el.ID] = struct{}{}
		if el.ZIndex < 1 || el.ZIndex > len(doc.Elements) || z[el.ZIndex] {
			return fmt.Errorf("%w: zIndex values are not a permutation of 1..%d", apperr.ErrInvalid, len(doc.Elements))
		}
		z[el.ZIndex] = true
	}
	return nil
}

// DenseZ reports whether the zIndex values form exactly {1..N}.
func DenseZ(doc models.Document) bool {
	z := make([]bool, len(doc.Elements)+1)
	for _, el := range doc.Elements {
		if el.ZIndex < 1 || el.ZIndex > len(doc.Elements) || z[el.ZIndex] {
			return false
		}
		z[el.ZIndex] = true
	}
	return true
}
