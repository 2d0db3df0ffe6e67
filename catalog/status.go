package catalog

import "time"

// Phase is the controller's position in its state machine.
//
//	Empty ──► ShowingCache ──► ShowingFresh
//	  │            │                │
//	  └────────────┴──► Degraded ◄──┘
type Phase string

const (
	PhaseEmpty        Phase = "empty"
	PhaseShowingCache Phase = "showing_cache"
	PhaseShowingFresh Phase = "showing_fresh"
	PhaseDegraded     Phase = "degraded"
)

// StatusKind identifies the status line shown to the user.
type StatusKind string

const (
	StatusIdle    StatusKind = "idle"
	StatusLoading StatusKind = "loading"
	StatusCache   StatusKind = "cache"
	StatusReady   StatusKind = "ready"
	StatusOffline StatusKind = "offline"
	StatusFailed  StatusKind = "failed"
)

const (
	MessageIdle    = "Not loaded yet."
	MessageLoading = "Loading data…"
	MessageReady   = "Ready. Search or pick a category."
	MessageFailed  = "Failed to load data."
)

// CacheTimeLayout is how cache timestamps appear in status messages.
const CacheTimeLayout = "2006/01/02 15:04"

// Status is the short, user-facing state of the data. It carries no error
// codes; Message is all the UI shows.
type Status struct {
	Phase   Phase
	Kind    StatusKind
	Message string

	// CacheTime is the save time of the cached data in use, if any.
	CacheTime time.Time

	At time.Time
}
