/*
resolver.go - Map position resolution for catalog items

PURPOSE:
  Turns a catalog row into the point (or line) drawn on the map. Runs at
  render time against the current shelf table, because shelf coordinates
  can move between refreshes while the product rows stay the same.

RESOLUTION ORDER (per endpoint):
  1. Shelf key: the trimmed key, matched byte-for-byte in the ShelfMap
  2. Explicit coordinates on the row, coerced with Coord.Float
  3. Nothing: the endpoint is unresolved

  The near end uses area/x/y. The far end is only considered when area2
  is non-empty and uses area2/x2/y2 with the same rule. An unresolved far
  end degrades the item to a single point.

SHELF KEYS:
  Keys are opaque identifiers such as "①B2". They are trimmed but never
  case-folded or normalized; search normalization does not apply here.

SEE ALSO:
  - types.go: ResolvedPosition, ShelfMap
  - coord.go: Coordinate coercion
*/
package catalog

// Resolve computes where item is drawn. It reads item and shelves only and
// never modifies either.
func Resolve(item CatalogItem, shelves ShelfMap) ResolvedPosition {
	var pos ResolvedPosition
	pos.Point = resolveEndpoint(item.Area, item.X, item.Y, shelves)
	if trimText(item.Area2) != "" {
		pos.End = resolveEndpoint(item.Area2, item.X2, item.Y2, shelves)
	}
	return pos
}

// resolveEndpoint applies the shelf-key-first rule to one end of an item.
func resolveEndpoint(key Text, x, y Coord, shelves ShelfMap) *Point {
	if k := trimText(key); k != "" {
		if p, ok := shelves[k]; ok && finite(p.X) && finite(p.Y) {
			return &Point{X: p.X, Y: p.Y}
		}
	}
	fx, okX := x.Float()
	fy, okY := y.Float()
	if !okX || !okY {
		return nil
	}
	return &Point{X: fx, Y: fy}
}

// Display returns a display-only copy of item carrying its resolved position.
func Display(item CatalogItem, shelves ShelfMap) DisplayItem {
	return DisplayItem{CatalogItem: item, Position: Resolve(item, shelves)}
}

// DisplayAll resolves every item against the same shelf table.
func DisplayAll(items []CatalogItem, shelves ShelfMap) []DisplayItem {
	out := make([]DisplayItem, len(items))
	for i, it := range items {
		out[i] = Display(it, shelves)
	}
	return out
}
