/*
Package catalog provides the store-map lookup engine.

PURPOSE:
  This package owns everything between the remote product sheet and the
  rendering layer: the catalog and shelf types, text normalization, the
  per-item search index, coordinate resolution against the shelf table,
  search, and the reconciliation controller that keeps cached and fresh
  data in a single swappable snapshot.

KEY CONCEPTS IN THIS FILE (types.go):
  - CatalogItem: One product row as published by the sheet
  - Text: A lenient free-text cell (string, number, bool or null)
  - ShelfMap: Shelf key -> map coordinate (percent of the map image)
  - Dataset: What one successful fetch produces (items + shelves)
  - ResolvedPosition: Where an item is drawn, computed at render time

COORDINATES:
  All positions are percentages of the map image (0-100 on both axes).
  There is no geographic projection.

SEE ALSO:
  - coord.go: Coordinate cell parsing
  - resolver.go: Shelf-key vs explicit coordinate resolution
  - controller.go: Cache/refresh reconciliation
*/
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// =============================================================================
// TEXT - Lenient free-text cell
// =============================================================================

// Text is a free-text cell. Spreadsheet exports send numbers or booleans
// where a string was expected (a shelf "12", a keyword 2024), so Text
// accepts any JSON scalar and keeps its string form.
type Text string

// String returns the cell as a plain string.
func (t Text) String() string { return string(t) }

// UnmarshalJSON accepts strings, numbers, booleans and null.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*t = Text(strconv.FormatBool(b))
		return nil
	case '{', '[':
		return fmt.Errorf("catalog: text cell cannot hold %s", jsonKind(data[0]))
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*t = Text(n.String())
		return nil
	}
}

func jsonKind(b byte) string {
	if b == '[' {
		return "an array"
	}
	return "an object"
}

// =============================================================================
// CATALOG ITEM - One product row
// =============================================================================

// CatalogItem is a product row. It is read-only once fetched; display
// positions are computed separately (see Resolve) and never written back.
type CatalogItem struct {
	Name     Text `json:"name,omitempty"`
	Category Text `json:"category,omitempty"`
	Brand    Text `json:"brand,omitempty"`
	Keywords Text `json:"keywords,omitempty"`
	Area     Text `json:"area,omitempty"`
	Note     Text `json:"note,omitempty"`

	// Area2 is the far end of a range item (a product spanning a shelf run).
	Area2 Text `json:"area2,omitempty"`

	// Label overrides Name on the map.
	Label Text `json:"label,omitempty"`

	// Explicit coordinates, used when the shelf key does not resolve.
	X  Coord `json:"x,omitzero"`
	Y  Coord `json:"y,omitzero"`
	X2 Coord `json:"x2,omitzero"`
	Y2 Coord `json:"y2,omitzero"`

	// SearchIndex is derived by BuildIndex at ingestion.
	SearchIndex string `json:"_index,omitempty"`
}

// DisplayLabel is the text drawn next to a pin.
func (c CatalogItem) DisplayLabel() string {
	if l := trimText(c.Label); l != "" {
		return l
	}
	return trimText(c.Name)
}

// =============================================================================
// SHELVES
// =============================================================================

// Point is a position on the map in percent units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ShelfMap maps a trimmed, case-sensitive shelf key to its position.
type ShelfMap map[string]Point

// ShelfRow is one raw row of the shelf table.
type ShelfRow struct {
	Key Text  `json:"key"`
	X   Coord `json:"x"`
	Y   Coord `json:"y"`
}

// BuildShelfMap turns raw rows into a ShelfMap. Rows with an empty key or
// non-finite coordinates are dropped; a later duplicate key overwrites an
// earlier one.
func BuildShelfMap(rows []ShelfRow) ShelfMap {
	m := make(ShelfMap, len(rows))
	for _, r := range rows {
		key := trimText(r.Key)
		if key == "" {
			continue
		}
		x, okX := r.X.Float()
		y, okY := r.Y.Float()
		if !okX || !okY {
			continue
		}
		m[key] = Point{X: x, Y: y}
	}
	return m
}

// Clone returns an independent copy.
func (m ShelfMap) Clone() ShelfMap {
	out := make(ShelfMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// =============================================================================
// DATASET - Result of one fetch
// =============================================================================

// Dataset is the catalog plus the shelf table, as one unit.
type Dataset struct {
	Items   []CatalogItem
	Shelves ShelfMap
}

// =============================================================================
// RESOLVED POSITION
// =============================================================================

// ResolvedPosition is the on-map placement of an item. Point is nil when
// the item cannot be plotted; End is set only for range items whose far
// end resolved.
type ResolvedPosition struct {
	Point *Point `json:"point,omitempty"`
	End   *Point `json:"end,omitempty"`
}

// Plottable reports whether the item has a primary point.
func (r ResolvedPosition) Plottable() bool { return r.Point != nil }

// IsLine reports whether the item should be drawn as a line.
func (r ResolvedPosition) IsLine() bool { return r.Point != nil && r.End != nil }

// DisplayItem is a display-only copy of an item with its position merged in.
type DisplayItem struct {
	CatalogItem
	Position ResolvedPosition
}
