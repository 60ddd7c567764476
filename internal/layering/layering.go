// Package layering reorders elements in paint order.
//
// Every operation is a no-op for an empty selection and always finishes by
// renumbering zIndex densely (1..N) from the resulting paint order.
package layering

import (
	"github.com/starford/menuboard/internal/document"
	"github.com/starford/menuboard/internal/models"
)

// Op names a layering operation.
type Op string

const (
	OpBringForward Op = "bringForward"
	OpSendBackward Op = "sendBackward"
	OpBringToFront Op = "bringToFront"
	OpSendToBack   Op = "sendToBack"
)

// Apply dispatches op. Unknown ops leave the document unchanged and report false.
func Apply(op Op, doc models.Document, selected []string) (models.Document, bool) {
	switch op {
	case OpBringForward:
		return BringForward(doc, selected), true
	case OpSendBackward:
		return SendBackward(doc, selected), true
	case OpBringToFront:
		return BringToFront(doc, selected), true
	case OpSendToBack:
		return SendToBack(doc, selected), true
	default:
		return doc, false
	}
}

// BringForward moves each selected element one step up. Adjacent selected
// elements move together as a block; the topmost element stays put.
func BringForward(doc models.Document, selected []string) models.Document {
	if len(selected) == 0 {
		return doc
	}
	order, sel := stack(doc, selected)
	for i := len(order) - 2; i >= 0; i-- {
		if sel[order[i]] && !sel[order[i+1]] {
			order[i], order[i+1] = order[i+1], order[i]
		}
	}
	return document.Reorder(doc, order)
}

// SendBackward moves each selected element one step down. Adjacent selected
// elements move together as a block; the bottommost element stays put.
func SendBackward(doc models.Document, selected []string) models.Document {
	if len(selected) == 0 {
		return doc
	}
	order, sel := stack(doc, selected)
	for i := 1; i < len(order); i++ {
		if sel[order[i]] && !sel[order[i-1]] {
			order[i], order[i-1] = order[i-1], order[i]
		}
	}
	return document.Reorder(doc, order)
}

// BringToFront puts the selection above everything else, keeping the relative
// order inside both the selected and the unselected groups.
func BringToFront(doc models.Document, selected []string) models.Document {
	if len(selected) == 0 {
		return doc
	}
	order, sel := stack(doc, selected)
	rest, picked := partition(order, sel)
	return document.Reorder(doc, append(rest, picked...))
}

// SendToBack puts the selection below everything else, keeping the relative
// order inside both groups.
func SendToBack(doc models.Document, selected []string) models.Document {
	if len(selected) == 0 {
		return doc
	}
	order, sel := stack(doc, selected)
	rest, picked := partition(order, sel)
	return document.Reorder(doc, append(picked, rest...))
}

// stack returns element ids bottom-to-top and the membership of the selection.
func stack(doc models.Document, selected []string) ([]string, map[string]bool) {
	idx := document.PaintOrder(doc)
	order := make([]string, len(idx))
	for k, i := range idx {
		order[k] = doc.Elements[i].ID
	}
	sel := make(map[string]bool, len(selected))
	for _, id := range selected {
		sel[id] = true
	}
	return order, sel
}

func partition(order []string, sel map[string]bool) (rest, picked []string) {
	for _, id := range order {
		if sel[id] {
			picked = append(picked, id)
		} else {
			rest = append(rest, id)
		}
	}
	return rest, picked
}
