package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// COORD - Coordinate cell as published by the sheet
// =============================================================================

// Coord holds a coordinate cell verbatim: a JSON number, a numeric string,
// an empty string, or nothing. Keeping the raw token means a cached item
// decodes back to exactly what was fetched; Float does the coercion.
type Coord struct {
	raw json.RawMessage
}

// NewCoord returns a numeric coordinate. NaN and infinities yield an
// absent coordinate because JSON cannot carry them.
func NewCoord(f float64) Coord {
	if !finite(f) {
		return Coord{}
	}
	return Coord{raw: json.RawMessage(strconv.FormatFloat(f, 'f', -1, 64))}
}

// CoordText returns a coordinate that arrived as a string cell.
func CoordText(s string) Coord {
	b, _ := json.Marshal(s)
	return Coord{raw: b}
}

// IsZero reports whether the cell is absent.
func (c Coord) IsZero() bool { return len(c.raw) == 0 }

// MarshalJSON writes the raw token back unchanged.
func (c Coord) MarshalJSON() ([]byte, error) {
	if len(c.raw) == 0 {
		return []byte("null"), nil
	}
	return c.raw, nil
}

// UnmarshalJSON keeps any scalar token; null clears the cell.
func (c *Coord) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		c.raw = nil
		return nil
	}
	if data[0] == '{' || data[0] == '[' {
		return errors.New("catalog: coordinate cell must be a scalar")
	}
	c.raw = append(json.RawMessage(nil), data...)
	return nil
}

// Float coerces the cell to a finite number. Numbers and numeric strings
// (surrounding whitespace allowed) convert; empty strings, booleans,
// absent cells and anything non-numeric report false.
func (c Coord) Float() (float64, bool) {
	if len(c.raw) == 0 {
		return 0, false
	}

	var text string
	switch c.raw[0] {
	case '"':
		if err := json.Unmarshal(c.raw, &text); err != nil {
			return 0, false
		}
		text = strings.TrimSpace(text)
	case 't', 'f':
		return 0, false
	default:
		text = string(c.raw)
	}
	if text == "" {
		return 0, false
	}

	d, err := decimal.NewFromString(text)
	if err != nil {
		return 0, false
	}
	f, _ := d.Float64()
	if !finite(f) {
		return 0, false
	}
	return f, true
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// String returns the cell for display ("" when absent).
func (c Coord) String() string {
	if len(c.raw) == 0 {
		return ""
	}
	if c.raw[0] == '"' {
		var s string
		if err := json.Unmarshal(c.raw, &s); err == nil {
			return s
		}
	}
	return string(c.raw)
}

// RoundPercent rounds a map coordinate to two decimals for display.
func RoundPercent(f float64) float64 {
	r, _ := decimal.NewFromFloat(f).Round(2).Float64()
	return r
}
