// Package domain holds the IMS entities, value objects, and validation
// rules that are shared by the store, directory, auth, event bus, and
// API packages. Nothing in this package depends on net/http, database/sql,
// or any transport concern.
package domain

import (
	"strings"

	dErrors "ims/pkg/domainerrors"
)

// EventID identifies a top-level tenant, e.g. "2024". Distinct from a
// plain string so a handler can't accidentally pass an incident summary
// where an event ID is expected.
type EventID string

// ParseEventID validates and returns an EventID. Event IDs are
// non-empty, URL-safe strings: no slashes and no surrounding whitespace.
func ParseEventID(s string) (EventID, error) {
	if strings.TrimSpace(s) == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "event id must not be empty")
	}
	if s != strings.TrimSpace(s) {
		return "", dErrors.New(dErrors.CodeBadRequest, "event id must not have surrounding whitespace")
	}
	if strings.ContainsAny(s, "/\\?#") {
		return "", dErrors.New(dErrors.CodeBadRequest, "event id must be URL-safe")
	}
	return EventID(s), nil
}

func (id EventID) String() string { return string(id) }

// IncidentNumber identifies an incident within its event. Numbers are
// monotonically allocated starting at 1 and never reused.
type IncidentNumber int

// ParseIncidentNumber validates an incident number is a positive integer.
func ParseIncidentNumber(n int) (IncidentNumber, error) {
	if n < 1 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "incident number must be >= 1")
	}
	return IncidentNumber(n), nil
}

func (n IncidentNumber) Int() int { return int(n) }

// FieldReportNumber identifies a field report within its event.
type FieldReportNumber int

// ParseFieldReportNumber validates a field report number is a positive
// integer.
func ParseFieldReportNumber(n int) (FieldReportNumber, error) {
	if n < 1 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "field report number must be >= 1")
	}
	return FieldReportNumber(n), nil
}

func (n FieldReportNumber) Int() int { return int(n) }

// ConcentricStreetID is the opaque, never-renumbered key into a
// per-event concentric-street dictionary.
type ConcentricStreetID string

func (id ConcentricStreetID) String() string { return string(id) }

// RangerHandle is a ranger's short name, used both as an ACL attribute
// and as the foreign key for incident ranger assignment.
type RangerHandle string

func (h RangerHandle) String() string { return string(h) }
