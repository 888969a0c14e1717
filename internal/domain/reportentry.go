package domain

import (
	"time"

	dErrors "ims/pkg/domainerrors"
)

// ReportEntry is one append-only journal line on an incident or field
// report. System-generated entries (Automatic == true) record a
// field-level change; user entries carry the requesting ranger's
// handle and free text.
type ReportEntry struct {
	Author    RangerHandle `json:"author"`
	Created   time.Time    `json:"created"`
	Text      string       `json:"text"`
	Automatic bool         `json:"system_entry"`
}

// Validate enforces the report entry invariants: created is
// timezone-aware and non-zero, and automatic entries still carry
// non-empty text. Idempotent: calling it twice on an already-valid
// entry returns nil both times.
func (e ReportEntry) Validate() error {
	if e.Created.IsZero() {
		return dErrors.New(dErrors.CodeBadRequest, "report entry created timestamp must not be zero")
	}
	if e.Created.Location() == nil {
		return dErrors.New(dErrors.CodeBadRequest, "report entry created timestamp must be timezone-aware")
	}
	if e.Text == "" {
		return dErrors.New(dErrors.CodeBadRequest, "report entry text must not be empty")
	}
	return nil
}

// AutomaticText builds the standard "Changed <field> to: <value>" entry
// text used by the store whenever a single-valued field changes.
func AutomaticText(field, value string) string {
	return "Changed " + field + " to: " + value
}
