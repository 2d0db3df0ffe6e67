package catalog

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// =============================================================================
// SEARCH
// =============================================================================

// AllCategories selects every category.
const AllCategories = "all"

// Mode selects which field a query is matched against.
type Mode string

const (
	ModeAll      Mode = "all" // the combined search index
	ModeName     Mode = "name"
	ModeCategory Mode = "category"
	ModeBrand    Mode = "brand"
	ModeKeywords Mode = "keywords"
)

// ParseMode maps user input to a Mode; unknown values fall back to ModeAll.
func ParseMode(s string) Mode {
	switch m := Mode(Normalize(s)); m {
	case ModeName, ModeCategory, ModeBrand, ModeKeywords:
		return m
	default:
		return ModeAll
	}
}

// Query is one search submission. A scanned QR code is a Query with Text
// set to the decoded string.
type Query struct {
	Category string
	Text     string
	Mode     Mode
}

// Outcome classifies a search result for the status line.
type Outcome string

const (
	OutcomeGuide   Outcome = "guide"
	OutcomeNoMatch Outcome = "no_match"
	OutcomeFound   Outcome = "found"
)

const (
	MessageGuide   = "Pick a category or enter a keyword."
	MessageNoMatch = "No matching products found."
)

// SearchResult is what the UI renders: the matches, the first of which is
// the focus item, plus the status line.
type SearchResult struct {
	Items   []CatalogItem
	Outcome Outcome
	Message string
}

// Focus returns the first match.
func (r SearchResult) Focus() (CatalogItem, bool) {
	if len(r.Items) == 0 {
		return CatalogItem{}, false
	}
	return r.Items[0], true
}

// Search filters items by category, then by query text in the given mode.
// Items are expected to carry a SearchIndex (see Enrich).
func Search(items []CatalogItem, q Query) SearchResult {
	text := Normalize(q.Text)
	category := strings.TrimSpace(q.Category)
	allCats := category == "" || category == AllCategories

	if text == "" && allCats {
		return SearchResult{Outcome: OutcomeGuide, Message: MessageGuide}
	}

	pool := items
	if !allCats {
		want := Normalize(category)
		pool = filter(pool, func(it CatalogItem) bool { return Normalize(it.Category) == want })
	}

	found := pool
	if text != "" {
		mode := q.Mode
		found = filter(pool, func(it CatalogItem) bool {
			return strings.Contains(searchField(it, mode), text)
		})
	}

	if len(found) == 0 {
		return SearchResult{Outcome: OutcomeNoMatch, Message: MessageNoMatch}
	}

	label := "All"
	if !allCats {
		label = category
	}
	msg := fmt.Sprintf("Category: %s / %d candidates", label, len(found))
	if text != "" {
		msg = fmt.Sprintf("Category: %s / Keyword: %s / %d candidates", label, text, len(found))
	}
	return SearchResult{Items: found, Outcome: OutcomeFound, Message: msg}
}

func searchField(it CatalogItem, mode Mode) string {
	switch mode {
	case ModeName:
		return Normalize(it.Name)
	case ModeCategory:
		return Normalize(it.Category)
	case ModeBrand:
		return Normalize(it.Brand)
	case ModeKeywords:
		return Normalize(it.Keywords)
	default:
		return it.SearchIndex
	}
}

func filter(items []CatalogItem, keep func(CatalogItem) bool) []CatalogItem {
	var out []CatalogItem
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

// =============================================================================
// CATEGORIES
// =============================================================================

// Categories returns AllCategories followed by every distinct trimmed,
// non-empty category in Japanese collation order.
func Categories(items []CatalogItem) []string {
	seen := make(map[string]bool)
	var cats []string
	for _, it := range items {
		c := trimText(it.Category)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		cats = append(cats, c)
	}

	col := collate.New(language.Japanese)
	sort.SliceStable(cats, func(i, j int) bool {
		return col.CompareString(cats[i], cats[j]) < 0
	})
	return append([]string{AllCategories}, cats...)
}
