package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// Normalize folds a value for comparison: nil becomes "", everything else
// its string form, trimmed and lowercased. It never fails.
func Normalize(v any) string {
	return strings.ToLower(strings.TrimSpace(stringOf(v)))
}

func stringOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case Text:
		return string(t)
	case *Text:
		if t == nil {
			return ""
		}
		return string(*t)
	case Coord:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		// fmt recovers from nil-receiver String methods and prints <nil>.
		return fmt.Sprint(t)
	}
}

func trimText(t Text) string { return strings.TrimSpace(string(t)) }

// indexFields lists the fields the search index is built from, in order.
func indexFields(item CatalogItem) [6]Text {
	return [6]Text{item.Name, item.Category, item.Brand, item.Keywords, item.Area, item.Note}
}

// BuildIndex joins the normalized searchable fields with single spaces.
func BuildIndex(item CatalogItem) string {
	fields := indexFields(item)
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = Normalize(f)
	}
	return strings.Join(parts, " ")
}

// Enrich returns a copy of items with SearchIndex populated. It runs once
// at ingestion so interactive filtering never re-normalizes.
func Enrich(items []CatalogItem) []CatalogItem {
	out := make([]CatalogItem, len(items))
	for i, it := range items {
		it.SearchIndex = BuildIndex(it)
		out[i] = it
	}
	return out
}
