package normalize

import "time"

// RawBatch is a scraped reservation table before any interpretation:
// the column labels as shown in the UI and the cell text per row.
type RawBatch struct {
	Columns []string
	Rows    [][]string
}

// CanonicalRow is one normalized reservation slot.
type CanonicalRow struct {
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	RoomLabel     string    `json:"room_label"`
	RoomCode      string    `json:"room_code"`
	LocationLabel string    `json:"location_label"`
	Fingerprint   string    `json:"fingerprint"`
}

// Role is a semantic column role the normalizer must resolve.
type Role string

const (
	RoleStart    Role = "start"
	RoleEnd      Role = "end"
	RoleRoom     Role = "room"
	RoleLocation Role = "location"
)

// ResolvedColumn records which physical column serves a role and which
// inference pass found it.
type ResolvedColumn struct {
	Index int    `json:"index"`
	Label string `json:"label"`
	Pass  string `json:"pass"` // alias, content or positional
}

// Diagnostics explains what the normalizer did to a batch. It is
// informational; a run never fails on normalization.
type Diagnostics struct {
	RowsIn      int                     `json:"rows_in"`
	RowsOut     int                     `json:"rows_out"`
	Dropped     int                     `json:"dropped"`
	Columns     map[Role]ResolvedColumn `json:"columns"`
	Unresolved  []Role                  `json:"unresolved,omitempty"`
	EarliestRaw time.Time               `json:"earliest_raw,omitempty"`
	LatestRaw   time.Time               `json:"latest_raw,omitempty"`
	Notes       []string                `json:"notes,omitempty"`
}
