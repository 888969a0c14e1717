package domain

import dErrors "ims/pkg/domainerrors"

// LocationType distinguishes a free-form text location from one
// expressed against the concentric-street grid.
type LocationType string

const (
	LocationTypeText     LocationType = "text"
	LocationTypeGarett   LocationType = "garett"
)

// Location is a tagged union: a text-only description, or a concentric
// address (street + radial hour:minute + optional free-form text). All
// inner fields are optional; Type alone selects which ones are
// meaningful.
type Location struct {
	Name         string             `json:"name,omitempty"`
	Type         LocationType       `json:"type,omitempty"`
	Concentric   ConcentricStreetID `json:"concentric,omitempty"`
	RadialHour   int                `json:"radial_hour,omitempty"`
	RadialMinute int                `json:"radial_minute,omitempty"`
	Description  string             `json:"description,omitempty"`
}

// Validate enforces the invariants on whichever fields Type makes
// meaningful: an empty Location (Type == "") is valid (location is
// optional on an incident); a concentric location's radial hour/minute
// must fall within a clock face.
func (l Location) Validate() error {
	switch l.Type {
	case "", LocationTypeText:
		return nil
	case LocationTypeGarett:
		// Zero means "not set"; both fields are optional per the data model.
		if l.RadialHour != 0 && (l.RadialHour < 1 || l.RadialHour > 12) {
			return dErrors.New(dErrors.CodeBadRequest, "location radial hour must be 1..12")
		}
		if l.RadialMinute < 0 || l.RadialMinute > 59 {
			return dErrors.New(dErrors.CodeBadRequest, "location radial minute must be 0..59")
		}
		return nil
	default:
		return dErrors.Newf(dErrors.CodeBadRequest, "unknown location type %q", l.Type)
	}
}

// IsZero reports whether the location carries no information at all.
func (l Location) IsZero() bool {
	return l == Location{}
}
