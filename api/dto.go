/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures the widget consumes. These types decouple
  the engine's types from the wire contract: coordinates are rounded for
  display, resolved positions are flattened, and lenient sheet cells are
  plain strings.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

SEE ALSO:
  - handlers.go: Uses these types
  - catalog/types.go: Engine types
*/
package api

import (
	"time"

	"github.com/warp/storemap/catalog"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// StatusDTO is the status line plus what the current snapshot holds.
type StatusDTO struct {
	Phase      string `json:"phase"`
	Kind       string `json:"kind"`
	Message    string `json:"message"`
	CacheTime  string `json:"cache_time,omitempty"`
	At         string `json:"at,omitempty"`
	Origin     string `json:"origin"`
	AsOf       string `json:"as_of,omitempty"`
	ItemCount  int    `json:"item_count"`
	ShelfCount int    `json:"shelf_count"`
}

// PositionDTO is a resolved map position in percent.
type PositionDTO struct {
	X  float64  `json:"x"`
	Y  float64  `json:"y"`
	X2 *float64 `json:"x2,omitempty"`
	Y2 *float64 `json:"y2,omitempty"`
}

// ItemDTO is one catalog item as shown in the result list.
type ItemDTO struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Category string `json:"category,omitempty"`
	Brand    string `json:"brand,omitempty"`
	Keywords string `json:"keywords,omitempty"`
	Area     string `json:"area,omitempty"`
	Area2    string `json:"area2,omitempty"`
	Note     string `json:"note,omitempty"`

	// Position is nil when the item cannot be plotted.
	Position *PositionDTO `json:"position,omitempty"`
	Line     bool         `json:"line"`
}

// SearchResponse is the result of a search or a scan.
type SearchResponse struct {
	Outcome string    `json:"outcome"`
	Message string    `json:"message"`
	Total   int       `json:"total"`
	Focus   *ItemDTO  `json:"focus,omitempty"`
	Items   []ItemDTO `json:"items"`
}

// ScanRequest carries one decoded QR string.
type ScanRequest struct {
	Text     string `json:"text"`
	Category string `json:"category,omitempty"`
	Mode     string `json:"mode,omitempty"`
}

// RefreshRunDTO is one recorded Init call.
type RefreshRunDTO struct {
	ID          string `json:"id"`
	Forced      bool   `json:"forced"`
	Outcome     string `json:"outcome"`
	ItemCount   int    `json:"item_count"`
	ShelfCount  int    `json:"shelf_count"`
	Error       string `json:"error,omitempty"`
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toItemDTO(d catalog.DisplayItem) ItemDTO {
	dto := ItemDTO{
		Name:     d.Name.String(),
		Label:    d.DisplayLabel(),
		Category: d.Category.String(),
		Brand:    d.Brand.String(),
		Keywords: d.Keywords.String(),
		Area:     d.Area.String(),
		Area2:    d.Area2.String(),
		Note:     d.Note.String(),
		Line:     d.Position.IsLine(),
	}
	if p := d.Position.Point; p != nil {
		pos := &PositionDTO{X: catalog.RoundPercent(p.X), Y: catalog.RoundPercent(p.Y)}
		if e := d.Position.End; e != nil {
			x2, y2 := catalog.RoundPercent(e.X), catalog.RoundPercent(e.Y)
			pos.X2, pos.Y2 = &x2, &y2
		}
		dto.Position = pos
	}
	return dto
}

func toStatusDTO(st catalog.Status, snap catalog.Snapshot, loc *time.Location) StatusDTO {
	dto := StatusDTO{
		Phase:      string(st.Phase),
		Kind:       string(st.Kind),
		Message:    st.Message,
		Origin:     string(snap.Origin),
		ItemCount:  len(snap.Items),
		ShelfCount: len(snap.Shelves),
	}
	if !st.CacheTime.IsZero() {
		dto.CacheTime = catalog.FormatCacheTime(st.CacheTime, loc)
	}
	if !st.At.IsZero() {
		dto.At = st.At.Format(time.RFC3339)
	}
	if !snap.AsOf.IsZero() {
		dto.AsOf = snap.AsOf.Format(time.RFC3339)
	}
	return dto
}

func toRefreshRunDTO(r catalog.RefreshRun) RefreshRunDTO {
	return RefreshRunDTO{
		ID:          r.ID,
		Forced:      r.Forced,
		Outcome:     string(r.Outcome),
		ItemCount:   r.ItemCount,
		ShelfCount:  r.ShelfCount,
		Error:       r.Error,
		StartedAt:   r.StartedAt.Format(time.RFC3339),
		CompletedAt: r.CompletedAt.Format(time.RFC3339),
	}
}
