package domain

import (
	"time"

	dErrors "ims/pkg/domainerrors"
)

// IncidentState is the incident lifecycle enum.
type IncidentState string

const (
	IncidentStateNew        IncidentState = "new"
	IncidentStateOnHold     IncidentState = "on_hold"
	IncidentStateDispatched IncidentState = "dispatched"
	IncidentStateOnScene    IncidentState = "on_scene"
	IncidentStateClosed     IncidentState = "closed"
)

var validIncidentStates = map[IncidentState]struct{}{
	IncidentStateNew:        {},
	IncidentStateOnHold:     {},
	IncidentStateDispatched: {},
	IncidentStateOnScene:    {},
	IncidentStateClosed:     {},
}

const DefaultIncidentPriority = 3

// Incident is keyed by (event, number). Numbers are allocated
// monotonically within the event and never reused.
type Incident struct {
	Event         EventID        `json:"event"`
	Number        IncidentNumber `json:"number"`
	Version       int            `json:"version"`
	Created       time.Time      `json:"created"`
	Priority      int            `json:"priority"`
	State         IncidentState  `json:"state"`
	Summary       string         `json:"summary,omitempty"`
	Location      Location       `json:"location"`
	RangerHandles []RangerHandle `json:"ranger_handles"`
	IncidentTypes []string       `json:"incident_types"`
	ReportEntries []ReportEntry  `json:"report_entries"`
}

// Validate checks every invariant a stored incident must satisfy.
// The stores invoke it before persisting, and the Postgres store also on
// every read back so corruption surfaces immediately. It is idempotent: a value that
// passes once passes again unchanged.
func (i Incident) Validate() error {
	if i.Priority < 1 || i.Priority > 5 {
		return dErrors.New(dErrors.CodeBadRequest, "incident priority must be 1..5")
	}
	if _, ok := validIncidentStates[i.State]; !ok {
		return dErrors.Newf(dErrors.CodeBadRequest, "unknown incident state %q", i.State)
	}
	if i.Created.IsZero() {
		return dErrors.New(dErrors.CodeBadRequest, "incident created timestamp must not be zero")
	}
	if i.Created.Location() == nil {
		return dErrors.New(dErrors.CodeBadRequest, "incident created timestamp must be timezone-aware")
	}
	if err := i.Location.Validate(); err != nil {
		return err
	}
	for _, e := range i.ReportEntries {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// NewIncident builds a zero-version incident with defaults applied:
// priority defaults to 3, state defaults to "new".
func NewIncident(event EventID, number IncidentNumber, created time.Time) Incident {
	return Incident{
		Event:    event,
		Number:   number,
		Created:  created,
		Priority: DefaultIncidentPriority,
		State:    IncidentStateNew,
	}
}
