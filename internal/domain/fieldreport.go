package domain

import (
	"time"

	dErrors "ims/pkg/domainerrors"
)

// FieldReport is keyed by (event, number). It may attach to at most one
// incident within the same event; an incident may carry many field
// reports.
type FieldReport struct {
	Event         EventID           `json:"event"`
	Number        FieldReportNumber `json:"number"`
	Created       time.Time         `json:"created"`
	Summary       string            `json:"summary,omitempty"`
	Incident      *IncidentNumber   `json:"incident,omitempty"`
	ReportEntries []ReportEntry     `json:"report_entries"`
}

// Validate checks the field report invariants: created is
// timezone-aware and non-zero, and every report entry validates.
func (f FieldReport) Validate() error {
	if f.Created.IsZero() {
		return dErrors.New(dErrors.CodeBadRequest, "field report created timestamp must not be zero")
	}
	if f.Created.Location() == nil {
		return dErrors.New(dErrors.CodeBadRequest, "field report created timestamp must be timezone-aware")
	}
	for _, e := range f.ReportEntries {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// IsAttached reports whether the field report is attached to an
// incident.
func (f FieldReport) IsAttached() bool {
	return f.Incident != nil
}

// NewFieldReport builds a zero-entry field report with no attachment.
func NewFieldReport(event EventID, number FieldReportNumber, created time.Time) FieldReport {
	return FieldReport{Event: event, Number: number, Created: created}
}
