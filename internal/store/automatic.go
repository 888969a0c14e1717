package store

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"ims/internal/domain"
)

// Field name constants used in automatic report entry text and in
// metrics labels (internal/obsv/metrics). The journal format is
// "Changed <field> to: <value>", with set-valued fields rendered as a
// sorted comma-separated list.
const (
	FieldPriority            = "priority"
	FieldState               = "state"
	FieldSummary             = "summary"
	FieldLocationName        = "location name"
	FieldLocationConcentric  = "location concentric street"
	FieldLocationRadialHour  = "location radial hour"
	FieldLocationRadialMin   = "location radial minute"
	FieldLocationDescription = "location description"
	FieldRangers             = "rangers"
	FieldIncidentTypes       = "incident types"
)

// AutomaticEntry builds the automatic journal entry recorded for a
// single-valued field change.
func AutomaticEntry(now time.Time, field, value string) domain.ReportEntry {
	return domain.ReportEntry{
		Created:   now,
		Text:      domain.AutomaticText(field, value),
		Automatic: true,
	}
}

// AutomaticSetEntry builds the automatic journal entry for a set-valued
// field change (rangers, incident types): the text is a comma-separated,
// sorted list of the new values.
func AutomaticSetEntry(now time.Time, field string, values []string) domain.ReportEntry {
	sorted := append([]string(nil), values...)
	sort.Strings(sorted)
	return AutomaticEntry(now, field, strings.Join(sorted, ", "))
}

// FormatPriority renders an int priority the way automatic entries
// render every value: its plain decimal text.
func FormatPriority(priority int) string {
	return strconv.Itoa(priority)
}

// RangerHandleStrings converts a []domain.RangerHandle to []string for
// AutomaticSetEntry / export canonicalization.
func RangerHandleStrings(handles []domain.RangerHandle) []string {
	out := make([]string, len(handles))
	for i, h := range handles {
		out[i] = h.String()
	}
	return out
}
