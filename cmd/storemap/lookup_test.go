package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warp/storemap/catalog"
)

func TestPrintResult(t *testing.T) {
	snap := catalog.Snapshot{
		Items: catalog.Enrich([]catalog.CatalogItem{
			{Name: "Shampoo", Area: "①B2"},
			{Name: "Shampoo refill"},
			{Name: "Shampoo travel"},
		}),
		Shelves: catalog.ShelfMap{"①B2": {X: 40, Y: 60}},
	}

	var buf bytes.Buffer
	printResult(&buf, snap, catalog.Query{Text: "shampoo"}, 2)

	out := buf.String()
	assert.Contains(t, out, "Category: All / Keyword: shampoo / 3 candidates")
	assert.Contains(t, out, "(40.00, 60.00)")
	assert.Contains(t, out, "(not on map)")
	assert.Contains(t, out, "… and 1 more")
}

func TestFormatPosition_Line(t *testing.T) {
	pos := catalog.ResolvedPosition{
		Point: &catalog.Point{X: 10, Y: 20},
		End:   &catalog.Point{X: 50.126, Y: 20},
	}
	assert.Equal(t, "(10.00, 20.00) - (50.13, 20.00)", formatPosition(pos))
}
