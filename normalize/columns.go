package normalize

import (
	"regexp"
	"sort"
	"strings"
)

// roleAliases maps each role to header substrings, most specific first.
// Matching happens on the cleaned lowercase label.
var roleAliases = map[Role][]string{
	RoleStart:    {"von", "beginn", "start"},
	RoleEnd:      {"bis", "ende", "end"},
	RoleRoom:     {"ressource bezeichnung", "ressourcen id/bezeichnung", "raum", "ressource", "resource"},
	RoleLocation: {"standortbezeichnung", "standort", "adresse", "strasse"},
}

var (
	roomCodePattern = regexp.MustCompile(`^[A-Za-z]{1,3}\s?\d{1,4}\b|^\d{2,4}$`)
	streetKeywords  = []string{"strasse", "str.", "platz", "gasse", "weg", "allee", "quai", "ring"}
)

// positionalIndex is the last-resort column position per role, matching
// the layout the booking grid has shipped with for years.
var positionalIndex = map[Role]int{
	RoleStart:    1,
	RoleEnd:      2,
	RoleRoom:     6,
	RoleLocation: 13,
}

// cleanLabel prepares a header for alias matching: odd spaces replaced,
// trimmed, lowercased. The original label is kept for diagnostics.
func cleanLabel(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	s = strings.ReplaceAll(s, " ", " ")
	return strings.ToLower(strings.TrimSpace(s))
}

type columnScores struct {
	datetime []float64
	room     []float64
	location []float64
}

// scoreColumns rates every column over a bounded row sample. Rates are
// fractions of non-empty sampled cells matching the role's shape.
func (n *Normalizer) scoreColumns(batch RawBatch) columnScores {
	cols := len(batch.Columns)
	scores := columnScores{
		datetime: make([]float64, cols),
		room:     make([]float64, cols),
		location: make([]float64, cols),
	}

	sample := batch.Rows
	if len(sample) > n.sampleRows {
		sample = sample[:n.sampleRows]
	}

	for c := 0; c < cols; c++ {
		var seen, dt, room, loc int
		for _, row := range sample {
			if c >= len(row) {
				continue
			}
			cell := strings.TrimSpace(row[c])
			if cell == "" {
				continue
			}
			seen++
			if _, ok := parseTimestamp(cell, n.loc); ok {
				dt++
			}
			if roomCodePattern.MatchString(cell) {
				room++
			}
			if looksLikeLocation(cell) {
				loc++
			}
		}
		if seen == 0 {
			continue
		}
		scores.datetime[c] = float64(dt) / float64(seen)
		scores.room[c] = float64(room) / float64(seen)
		scores.location[c] = float64(loc) / float64(seen)
	}
	return scores
}

func looksLikeLocation(cell string) bool {
	if strings.Contains(cell, " - ") {
		return true
	}
	lower := strings.ToLower(cell)
	for _, kw := range streetKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// resolveColumns assigns a physical column to each role, trying aliases
// first, then content scores, then fixed positions. Roles that survive
// all three passes unresolved are returned so the caller can bail out
// softly.
func (n *Normalizer) resolveColumns(batch RawBatch) (map[Role]ResolvedColumn, []Role) {
	resolved := make(map[Role]ResolvedColumn)
	taken := make(map[int]bool)

	labels := make([]string, len(batch.Columns))
	for i, col := range batch.Columns {
		labels[i] = cleanLabel(col)
	}

	claim := func(role Role, idx int, pass string) {
		resolved[role] = ResolvedColumn{Index: idx, Label: batch.Columns[idx], Pass: pass}
		taken[idx] = true
	}

	// Pass 1: aliases, in role order so start/end claim their columns
	// before the looser room/location substrings get a chance.
	for _, role := range []Role{RoleStart, RoleEnd, RoleRoom, RoleLocation} {
		for _, alias := range roleAliases[role] {
			found := -1
			for i, label := range labels {
				if !taken[i] && strings.Contains(label, alias) {
					found = i
					break
				}
			}
			if found >= 0 {
				claim(role, found, "alias")
				break
			}
		}
	}

	// Pass 2: content scoring for whatever is still open.
	if missing(resolved, RoleStart) || missing(resolved, RoleEnd) ||
		missing(resolved, RoleRoom) || missing(resolved, RoleLocation) {
		scores := n.scoreColumns(batch)

		if missing(resolved, RoleStart) || missing(resolved, RoleEnd) {
			timeCols := rankedAbove(scores.datetime, n.timeThreshold, taken)
			if missing(resolved, RoleStart) && len(timeCols) > 0 {
				claim(RoleStart, timeCols[0], "content")
				timeCols = timeCols[1:]
			}
			if missing(resolved, RoleEnd) && len(timeCols) > 0 {
				claim(RoleEnd, timeCols[0], "content")
			}
		}
		if missing(resolved, RoleRoom) {
			if cols := rankedAbove(scores.room, n.roomThreshold, taken); len(cols) > 0 {
				claim(RoleRoom, cols[0], "content")
			}
		}
		if missing(resolved, RoleLocation) {
			if cols := rankedAbove(scores.location, n.locationThreshold, taken); len(cols) > 0 {
				claim(RoleLocation, cols[0], "content")
			}
		}
	}

	// Pass 3: fixed positions, only when the table is wide enough.
	for role, idx := range positionalIndex {
		if missing(resolved, role) && idx < len(batch.Columns) && !taken[idx] {
			claim(role, idx, "positional")
		}
	}

	var unresolved []Role
	for _, role := range []Role{RoleStart, RoleEnd, RoleRoom, RoleLocation} {
		if missing(resolved, role) {
			unresolved = append(unresolved, role)
		}
	}
	return resolved, unresolved
}

func missing(resolved map[Role]ResolvedColumn, role Role) bool {
	_, ok := resolved[role]
	return !ok
}

// rankedAbove returns unclaimed column indexes whose score clears the
// threshold, best first, position as tiebreak.
func rankedAbove(scores []float64, threshold float64, taken map[int]bool) []int {
	var idx []int
	for i, s := range scores {
		if s >= threshold && !taken[i] {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})
	return idx
}
