package services

import (
	"encoding/json"
	"math"

	"github.com/muralkit/engine/internal/models"
)

// AnchorMatch pairs an element with the anchor that satisfied the query.
type AnchorMatch struct {
	Element models.Element `json:"element"`
	Anchor  models.Anchor  `json:"anchor"`
	X       float64        `json:"x"`
	Y       float64        `json:"y"`
}

// filterByRegion keeps elements whose bounding box intersects rect. The
// store has no geometric index; callers pass the full element set and this
// filters in memory, which holds up for moderate element counts.
func filterByRegion(els []models.Element, rect models.Rect) []models.Element {
	out := make([]models.Element, 0)
	for _, el := range els {
		if el.X < rect.X+rect.W && el.X+el.Width > rect.X &&
			el.Y < rect.Y+rect.H && el.Y+el.Height > rect.Y {
			out = append(out, el)
		}
	}
	return out
}

// filterByAnchors returns (element, anchor) pairs whose absolute anchor
// position lies within Euclidean tolerance of point.
func filterByAnchors(els []models.Element, point models.Point, tolerance float64) []AnchorMatch {
	out := make([]AnchorMatch, 0)
	for _, el := range els {
		if len(el.Anchors) == 0 {
			continue
		}
		var anchors []models.Anchor
		if err := json.Unmarshal(el.Anchors, &anchors); err != nil {
			continue
		}
		for _, a := range anchors {
			ax := el.X + a.DX
			ay := el.Y + a.DY
			if math.Hypot(ax-point.X, ay-point.Y) <= tolerance {
				out = append(out, AnchorMatch{Element: el, Anchor: a, X: ax, Y: ay})
			}
		}
	}
	return out
}
