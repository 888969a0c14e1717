package api

import (
	"time"

	"ims/internal/domain"
)

// Wire shapes for the JSON API. Reads render the fully-populated
// structs below; writes decode into the pointer-field edit structs so
// a handler can distinguish "field absent" from "field set to zero".

type locationWire struct {
	Name         string `json:"name,omitempty"`
	Type         string `json:"type,omitempty"`
	Concentric   string `json:"concentric,omitempty"`
	RadialHour   *int   `json:"radial_hour,omitempty"`
	RadialMinute *int   `json:"radial_minute,omitempty"`
	Description  string `json:"description,omitempty"`
}

type reportEntryWire struct {
	Author      string    `json:"author"`
	Created     time.Time `json:"created"`
	SystemEntry bool      `json:"system_entry"`
	Text        string    `json:"text"`
}

type incidentWire struct {
	Event         string            `json:"event"`
	Number        int               `json:"number"`
	Created       time.Time         `json:"created"`
	State         string            `json:"state"`
	Priority      int               `json:"priority"`
	Summary       string            `json:"summary,omitempty"`
	Location      locationWire      `json:"location"`
	RangerHandles []string          `json:"ranger_handles"`
	IncidentTypes []string          `json:"incident_types"`
	ReportEntries []reportEntryWire `json:"report_entries"`
}

type fieldReportWire struct {
	Event         string            `json:"event"`
	Number        int               `json:"number"`
	Created       time.Time         `json:"created"`
	Summary       string            `json:"summary,omitempty"`
	Incident      *int              `json:"incident,omitempty"`
	ReportEntries []reportEntryWire `json:"report_entries"`
}

func toLocationWire(l domain.Location) locationWire {
	out := locationWire{
		Name:        l.Name,
		Type:        string(l.Type),
		Concentric:  l.Concentric.String(),
		Description: l.Description,
	}
	if l.Type == domain.LocationTypeGarett {
		if l.RadialHour != 0 {
			hour := l.RadialHour
			out.RadialHour = &hour
		}
		minute := l.RadialMinute
		out.RadialMinute = &minute
	}
	return out
}

func toReportEntriesWire(entries []domain.ReportEntry) []reportEntryWire {
	out := make([]reportEntryWire, 0, len(entries))
	for _, e := range entries {
		out = append(out, reportEntryWire{
			Author:      e.Author.String(),
			Created:     e.Created.UTC(),
			SystemEntry: e.Automatic,
			Text:        e.Text,
		})
	}
	return out
}

func toIncidentWire(inc domain.Incident) incidentWire {
	handles := make([]string, 0, len(inc.RangerHandles))
	for _, h := range inc.RangerHandles {
		handles = append(handles, h.String())
	}
	types := inc.IncidentTypes
	if types == nil {
		types = []string{}
	}
	return incidentWire{
		Event:         inc.Event.String(),
		Number:        inc.Number.Int(),
		Created:       inc.Created.UTC(),
		State:         string(inc.State),
		Priority:      inc.Priority,
		Summary:       inc.Summary,
		Location:      toLocationWire(inc.Location),
		RangerHandles: handles,
		IncidentTypes: types,
		ReportEntries: toReportEntriesWire(inc.ReportEntries),
	}
}

func toFieldReportWire(fr domain.FieldReport) fieldReportWire {
	var incident *int
	if fr.Incident != nil {
		n := fr.Incident.Int()
		incident = &n
	}
	return fieldReportWire{
		Event:         fr.Event.String(),
		Number:        fr.Number.Int(),
		Created:       fr.Created.UTC(),
		Summary:       fr.Summary,
		Incident:      incident,
		ReportEntries: toReportEntriesWire(fr.ReportEntries),
	}
}

// incidentEdit is the partial-update request body for both incident
// creation and field-by-field edits. Every field is optional; pointer
// presence drives which store setters run.
type incidentEdit struct {
	Event         *string           `json:"event"`
	Number        *int              `json:"number"`
	Created       *time.Time        `json:"created"`
	State         *string           `json:"state"`
	Priority      *int              `json:"priority"`
	Summary       *string           `json:"summary"`
	Location      *locationEdit     `json:"location"`
	RangerHandles *[]string         `json:"ranger_handles"`
	IncidentTypes *[]string         `json:"incident_types"`
	ReportEntries []reportEntryWire `json:"report_entries"`
}

type locationEdit struct {
	Name         *string `json:"name"`
	Type         *string `json:"type"`
	Concentric   *string `json:"concentric"`
	RadialHour   *int    `json:"radial_hour"`
	RadialMinute *int    `json:"radial_minute"`
	Description  *string `json:"description"`
}

// fieldReportEdit is the partial-update body for field reports.
type fieldReportEdit struct {
	Event         *string           `json:"event"`
	Number        *int              `json:"number"`
	Created       *time.Time        `json:"created"`
	Summary       *string           `json:"summary"`
	ReportEntries []reportEntryWire `json:"report_entries"`
}

// userEntries converts the user-authored report entries of an edit
// request into domain entries stamped with the author and time. The
// client's own author/created/system_entry values are ignored: the
// server is authoritative for all three.
func userEntries(wires []reportEntryWire, author domain.RangerHandle, now time.Time) []domain.ReportEntry {
	out := make([]domain.ReportEntry, 0, len(wires))
	for _, wire := range wires {
		if wire.Text == "" {
			continue
		}
		out = append(out, domain.ReportEntry{
			Author:  author,
			Created: now,
			Text:    wire.Text,
		})
	}
	return out
}
